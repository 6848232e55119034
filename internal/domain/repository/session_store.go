// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-novel-wizard/internal/domain/entity"
)

// 存储键
const (
	KeyActiveDraft = "currentNovel"
	KeySavedNovels = "novels"
)

// SessionStore 会话存储：一个当前草稿 + 一个有序的已保存小说列表
// 格式错误的数据按缺失处理，不返回错误；后端错误包装为 PersistenceError
type SessionStore interface {
	// GetActiveDraft 获取当前草稿，不存在时返回 nil
	GetActiveDraft(ctx context.Context) (*entity.DraftRequest, error)
	// SetActiveDraft 覆盖当前草稿
	SetActiveDraft(ctx context.Context, draft *entity.DraftRequest) error
	// ClearActiveDraft 删除当前草稿
	ClearActiveDraft(ctx context.Context) error
	// ListSaved 按插入顺序返回已保存小说
	ListSaved(ctx context.Context) ([]*entity.SavedNovel, error)
	// AppendSaved 追加一条已保存小说
	AppendSaved(ctx context.Context, novel *entity.SavedNovel) error
	// Ping 检查后端可用性
	Ping(ctx context.Context) error
	Close() error
}

// KV 存储后端的最小键值接口，各驱动只需实现字节级读写
type KV interface {
	// Get 读取键，不存在时 found=false
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
	// Driver 返回驱动名，用于指标标签
	Driver() string
}
