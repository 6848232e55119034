package interaction

import (
	"context"
	"time"

	"z-novel-wizard/internal/domain/entity"
)

// AckMessage 默认的反馈确认回复
const AckMessage = "AI正在根据您的反馈调整内容，请稍候..."

// Responder 为用户反馈生成回复
type Responder interface {
	// Respond 返回回复文本；返回空串表示不回复
	Respond(ctx context.Context, draft *entity.DraftRequest, document, feedback string) (string, error)
}

// PlaceholderResponder 延迟后回复固定确认语，不会影响正文
type PlaceholderResponder struct {
	delay time.Duration
}

// NewPlaceholderResponder 创建确认回复器
func NewPlaceholderResponder(delay time.Duration) *PlaceholderResponder {
	return &PlaceholderResponder{delay: delay}
}

// Respond 等待 delay 后返回 AckMessage；ctx 结束时放弃
func (r *PlaceholderResponder) Respond(ctx context.Context, _ *entity.DraftRequest, _ string, _ string) (string, error) {
	if r.delay <= 0 {
		return AckMessage, nil
	}
	timer := time.NewTimer(r.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return AckMessage, nil
	}
}
