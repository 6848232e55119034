package library

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"z-novel-wizard/internal/domain/entity"
	"z-novel-wizard/internal/infrastructure/persistence/kv"
	"z-novel-wizard/internal/infrastructure/persistence/memory"
	apperrors "z-novel-wizard/pkg/errors"
)

func seed(t *testing.T) (*Service, []*entity.SavedNovel) {
	t.Helper()
	ctx := context.Background()
	store := kv.NewStore(memory.NewKV(), "")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	novels := []*entity.SavedNovel{
		entity.NewSavedNovel(entity.NewDraftRequest("唐家三少", "Dragon Saga", "斗气", "主角"), "魔法与斗气", nil),
		entity.NewSavedNovel(entity.NewDraftRequest("烽火戏诸侯", "雪中", "江湖", "主角"), "刀光剑影", nil),
		entity.NewSavedNovel(entity.NewDraftRequest("月关", "回到明朝", "穿越", "主角"), "a DRAGON appears", nil),
	}
	for i, n := range novels {
		n.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if err := store.AppendSaved(ctx, n); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return NewService(store), novels
}

func TestListNewestFirst(t *testing.T) {
	svc, novels := seed(t)
	got, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 novels, got %d", len(got))
	}
	for i, want := range []string{novels[2].ID, novels[1].ID, novels[0].ID} {
		if got[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestListQuery(t *testing.T) {
	svc, _ := seed(t)
	tests := []struct {
		query string
		want  int
	}{
		{query: "dragon", want: 2},
		{query: "月关", want: 1},
		{query: "刀光", want: 1},
		{query: "  ", want: 3},
		{query: "nothing", want: 0},
	}
	for _, tt := range tests {
		got, err := svc.List(context.Background(), tt.query)
		if err != nil {
			t.Fatalf("list %q: %v", tt.query, err)
		}
		if len(got) != tt.want {
			t.Fatalf("query %q: expected %d results, got %d", tt.query, tt.want, len(got))
		}
	}
}

func TestGet(t *testing.T) {
	svc, novels := seed(t)
	got, err := svc.Get(context.Background(), novels[1].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "雪中" {
		t.Fatalf("unexpected novel %+v", got)
	}
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type gatedStore struct {
	*kv.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) ListSaved(ctx context.Context) ([]*entity.SavedNovel, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.Store.ListSaved(ctx)
}

func TestSharedReadSurvivesFirstCallerCancel(t *testing.T) {
	inner := kv.NewStore(memory.NewKV(), "")
	novel := entity.NewSavedNovel(entity.NewDraftRequest("月关", "锦衣夜行", "谍海", "主角"), "正文", nil)
	if err := inner.AppendSaved(context.Background(), novel); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := &gatedStore{Store: inner, entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(store)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.List(firstCtx, "")
		firstErr <- err
	}()
	<-store.entered

	type result struct {
		novels []*entity.SavedNovel
		err    error
	}
	second := make(chan result, 1)
	go func() {
		novels, err := svc.List(context.Background(), "")
		second <- result{novels, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancelFirst()
	close(store.release)

	got := <-second
	if got.err != nil {
		t.Fatalf("second caller failed with the first caller's cancellation: %v", got.err)
	}
	if len(got.novels) != 1 || got.novels[0].ID != novel.ID {
		t.Fatalf("unexpected novels %+v", got.novels)
	}
	if err := <-firstErr; err != nil {
		t.Fatalf("shared read should not observe caller cancellation: %v", err)
	}
}
