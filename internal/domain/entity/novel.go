package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SavedNovel 已保存的小说，创建后不可变
type SavedNovel struct {
	ID string `json:"id"`
	DraftRequest
	Content   string                `json:"content"`
	Messages  []*InteractionMessage `json:"messages"`
	CreatedAt time.Time             `json:"createdAt"`
}

// NewSavedNovel 以草稿、正文和消息记录创建一条新记录
func NewSavedNovel(draft *DraftRequest, content string, messages []*InteractionMessage) *SavedNovel {
	n := &SavedNovel{
		ID:        uuid.New().String(),
		Content:   content,
		Messages:  make([]*InteractionMessage, len(messages)),
		CreatedAt: time.Now(),
	}
	if draft != nil {
		n.DraftRequest = *draft
	}
	copy(n.Messages, messages)
	return n
}

// Matches 按标题、风格、正文做大小写不敏感匹配；空查询匹配全部
func (n *SavedNovel) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{n.Title, n.Style, n.Content} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
