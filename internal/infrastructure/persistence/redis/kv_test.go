package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"z-novel-wizard/internal/config"
	"z-novel-wizard/internal/domain/entity"
	"z-novel-wizard/internal/infrastructure/persistence/kv"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	client, err := NewClient(&config.RedisConfig{Host: mr.Host(), Port: port, PoolSize: 2})
	if err != nil {
		t.Fatalf("new redis client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestKVStorePrefixedKeys(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	store := kv.NewStore(NewKV(client), "wizard:")

	draft := entity.NewDraftRequest("月关", "回到明朝", "穿越", "主角")
	if err := store.SetActiveDraft(ctx, draft); err != nil {
		t.Fatalf("set draft: %v", err)
	}
	if !mr.Exists("wizard:currentNovel") {
		t.Fatalf("expected prefixed key in redis, keys=%v", mr.Keys())
	}

	got, err := store.GetActiveDraft(ctx)
	if err != nil || got == nil || *got != *draft {
		t.Fatalf("unexpected draft: %+v err=%v", got, err)
	}

	if err := store.ClearActiveDraft(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("wizard:currentNovel") {
		t.Fatalf("expected key removed")
	}
}

func TestKVStoreMalformedValue(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	store := kv.NewStore(NewKV(client), "")

	if err := mr.Set("novels", "[oops"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	novels, err := store.ListSaved(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(novels) != 0 {
		t.Fatalf("expected empty list, got %d", len(novels))
	}
}

func TestKVPingAfterServerClosed(t *testing.T) {
	client, mr := newTestClient(t)
	backend := NewKV(client)
	if err := backend.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	mr.Close()
	if err := backend.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error after server closed")
	}
}

func TestRateLimiterAllow(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client)
	key := BuildRateLimitKey("", "127.0.0.1", "/v1/session/start")

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, key, 2, time.Second)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d should pass", i)
		}
	}
	ok, err := limiter.Allow(ctx, key, 2, time.Second)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if ok {
		t.Fatalf("third request should be blocked")
	}

	remaining, err := limiter.Remaining(ctx, key, 2, time.Second)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", remaining)
	}
}
