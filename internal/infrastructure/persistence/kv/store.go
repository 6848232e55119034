// Package kv 基于键值后端实现会话存储
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-novel-wizard/internal/domain/entity"
	"z-novel-wizard/internal/domain/repository"
	apperrors "z-novel-wizard/pkg/errors"
	"z-novel-wizard/pkg/logger"
	"z-novel-wizard/pkg/metrics"
)

var tracer = otel.Tracer("store")

var errIncompleteDraft = errors.New("stored draft is missing title or background")

// Store 会话存储实现
type Store struct {
	kv     repository.KV
	prefix string
	// mu 串行化本进程内的读-改-写
	mu sync.Mutex
}

var _ repository.SessionStore = (*Store)(nil)

// NewStore 创建会话存储
func NewStore(kv repository.KV, prefix string) *Store {
	return &Store{kv: kv, prefix: prefix}
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

// GetActiveDraft 获取当前草稿
func (s *Store) GetActiveDraft(ctx context.Context) (*entity.DraftRequest, error) {
	ctx, span := tracer.Start(ctx, "store.GetActiveDraft")
	defer span.End()

	raw, found, err := s.get(ctx, span, "get_draft", repository.KeyActiveDraft)
	if err != nil || !found {
		return nil, err
	}

	var draft *entity.DraftRequest
	if err := json.Unmarshal(raw, &draft); err != nil {
		s.malformed(ctx, repository.KeyActiveDraft, err)
		return nil, nil
	}
	// null 或缺少标题/背景的草稿无法生成，按不存在处理
	if !draft.IsComplete() {
		s.malformed(ctx, repository.KeyActiveDraft, errIncompleteDraft)
		return nil, nil
	}
	return draft, nil
}

// SetActiveDraft 覆盖当前草稿
func (s *Store) SetActiveDraft(ctx context.Context, draft *entity.DraftRequest) error {
	ctx, span := tracer.Start(ctx, "store.SetActiveDraft")
	defer span.End()

	if draft == nil {
		return apperrors.Validation("draft is required")
	}
	raw, err := json.Marshal(draft)
	if err != nil {
		return apperrors.Persistence("encode draft", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(ctx, span, "set_draft", repository.KeyActiveDraft, raw)
}

// ClearActiveDraft 删除当前草稿
func (s *Store) ClearActiveDraft(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "store.ClearActiveDraft")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.kv.Delete(ctx, s.key(repository.KeyActiveDraft))
	s.observe("clear_draft", err)
	if err != nil {
		span.RecordError(err)
		return apperrors.Persistence("clear draft", err)
	}
	return nil
}

// ListSaved 按插入顺序返回已保存小说
func (s *Store) ListSaved(ctx context.Context) ([]*entity.SavedNovel, error) {
	ctx, span := tracer.Start(ctx, "store.ListSaved")
	defer span.End()

	novels, err := s.loadSaved(ctx, span)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("store.novel_count", len(novels)))
	return novels, nil
}

// AppendSaved 追加一条已保存小说
func (s *Store) AppendSaved(ctx context.Context, novel *entity.SavedNovel) error {
	ctx, span := tracer.Start(ctx, "store.AppendSaved")
	defer span.End()

	if novel == nil {
		return apperrors.Validation("novel is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	novels, err := s.loadSaved(ctx, span)
	if err != nil {
		return err
	}
	novels = append(novels, novel)

	raw, err := json.Marshal(novels)
	if err != nil {
		return apperrors.Persistence("encode novels", err)
	}
	return s.put(ctx, span, "append_saved", repository.KeySavedNovels, raw)
}

// Ping 检查后端可用性
func (s *Store) Ping(ctx context.Context) error {
	if err := s.kv.Ping(ctx); err != nil {
		return apperrors.Persistence("ping", err)
	}
	return nil
}

// Close 关闭后端
func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) loadSaved(ctx context.Context, span trace.Span) ([]*entity.SavedNovel, error) {
	raw, found, err := s.get(ctx, span, "list_saved", repository.KeySavedNovels)
	if err != nil {
		return nil, err
	}
	if !found {
		return []*entity.SavedNovel{}, nil
	}

	var novels []*entity.SavedNovel
	if err := json.Unmarshal(raw, &novels); err != nil {
		s.malformed(ctx, repository.KeySavedNovels, err)
		return []*entity.SavedNovel{}, nil
	}

	// 丢弃数组中的 null 元素
	out := novels[:0]
	for _, n := range novels {
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Store) get(ctx context.Context, span trace.Span, op, name string) ([]byte, bool, error) {
	span.SetAttributes(attribute.String("store.key", name))
	raw, found, err := s.kv.Get(ctx, s.key(name))
	s.observe(op, err)
	if err != nil {
		span.RecordError(err)
		return nil, false, apperrors.Persistence(op, err)
	}
	return raw, found, nil
}

func (s *Store) put(ctx context.Context, span trace.Span, op, name string, raw []byte) error {
	span.SetAttributes(attribute.String("store.key", name), attribute.Int("store.bytes", len(raw)))
	err := s.kv.Put(ctx, s.key(name), raw)
	s.observe(op, err)
	if err != nil {
		span.RecordError(err)
		return apperrors.Persistence(op, err)
	}
	return nil
}

func (s *Store) observe(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.StoreOperationsTotal.WithLabelValues(s.kv.Driver(), op, status).Inc()
}

func (s *Store) malformed(ctx context.Context, name string, err error) {
	metrics.StoreMalformedTotal.WithLabelValues(name).Inc()
	logger.Warn(ctx, "malformed stored value treated as absent",
		"key", name,
		"driver", s.kv.Driver(),
		"error", err.Error(),
	)
}
