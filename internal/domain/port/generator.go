// Package port 定义应用层对外部服务的最小依赖
package port

import (
	"context"

	"z-novel-wizard/internal/domain/entity"
)

// NovelGenerator 外部小说生成服务（port）。
type NovelGenerator interface {
	// Generate 发起一次生成请求，成功时返回片段流
	Generate(ctx context.Context, draft *entity.DraftRequest) (FragmentStream, error)
}

// FragmentStream 有序文本片段流，只能消费一次。
// Recv 在流结束时返回一次 io.EOF，之后的调用返回 StreamAlreadyConsumed 错误。
type FragmentStream interface {
	Recv() (string, error)
	Close() error
}
