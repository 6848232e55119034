package entity

import "time"

// InteractionMessage 反馈记录中的一条消息，只追加不修改
type InteractionMessage struct {
	ID         int64     `json:"id"`
	Text       string    `json:"text"`
	IsFromUser bool      `json:"isUser"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewUserMessage 创建用户消息
func NewUserMessage(id int64, text string) *InteractionMessage {
	return &InteractionMessage{ID: id, Text: text, IsFromUser: true, CreatedAt: time.Now()}
}

// NewSystemMessage 创建系统消息
func NewSystemMessage(id int64, text string) *InteractionMessage {
	return &InteractionMessage{ID: id, Text: text, CreatedAt: time.Now()}
}

// Author 返回消息作者标签
func (m *InteractionMessage) Author() string {
	if m.IsFromUser {
		return "user"
	}
	return "system"
}
