// Package library 提供已保存小说的查询
package library

import (
	"context"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"z-novel-wizard/internal/domain/entity"
	"z-novel-wizard/internal/domain/repository"
	apperrors "z-novel-wizard/pkg/errors"
)

var tracer = otel.Tracer("library")

// Service 小说库服务
type Service struct {
	store repository.SessionStore
	// group 合并并发的列表读取
	group singleflight.Group
}

// NewService 创建小说库服务
func NewService(store repository.SessionStore) *Service {
	return &Service{store: store}
}

// List 按创建时间倒序返回已保存小说；query 对标题、风格、正文做大小写不敏感过滤
func (s *Service) List(ctx context.Context, query string) ([]*entity.SavedNovel, error) {
	ctx, span := tracer.Start(ctx, "library.List")
	defer span.End()

	all, shared, err := s.load(ctx)
	span.SetAttributes(attribute.Bool("library.shared", shared))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := make([]*entity.SavedNovel, 0, len(all))
	for _, n := range all {
		if n.Matches(query) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	span.SetAttributes(
		attribute.String("library.query", strings.TrimSpace(query)),
		attribute.Int("library.result_count", len(out)),
	)
	return out, nil
}

// Get 按 ID 获取小说
func (s *Service) Get(ctx context.Context, id string) (*entity.SavedNovel, error) {
	ctx, span := tracer.Start(ctx, "library.Get")
	defer span.End()
	span.SetAttributes(attribute.String("library.novel_id", id))

	all, _, err := s.load(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, n := range all {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, apperrors.ErrNotFound.WithDetail("novel " + id)
}

func (s *Service) load(ctx context.Context) ([]*entity.SavedNovel, bool, error) {
	// 共享读取不随首个调用方取消
	shared := context.WithoutCancel(ctx)
	v, err, coalesced := s.group.Do("list", func() (interface{}, error) {
		return s.store.ListSaved(shared)
	})
	if err != nil {
		return nil, coalesced, err
	}
	// 共享结果只读，返回切片副本
	novels := v.([]*entity.SavedNovel)
	out := make([]*entity.SavedNovel, len(novels))
	copy(out, novels)
	return out, coalesced, nil
}
