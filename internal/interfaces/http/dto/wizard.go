package dto

import (
	"z-novel-wizard/internal/application/interaction"
	"z-novel-wizard/internal/domain/entity"
)

// SelectStyleRequest 选择风格请求
type SelectStyleRequest struct {
	Style string `json:"style" binding:"required"`
}

// GoToStageRequest 切换阶段请求
type GoToStageRequest struct {
	Stage string `json:"stage" binding:"required"`
}

// SubmitDraftRequest 提交创作提示请求；字段校验由向导完成
type SubmitDraftRequest struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// CustomStyleRequest 自定义风格请求
type CustomStyleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Example     string   `json:"example"`
}

// ToEntity 转换为风格实体
func (r *CustomStyleRequest) ToEntity() entity.Style {
	return entity.Style{
		Name:        r.Name,
		Description: r.Description,
		Tags:        r.Tags,
		Example:     r.Example,
	}
}

// StyleListResponse 风格列表响应
type StyleListResponse struct {
	Styles []entity.Style `json:"styles"`
}

// SendMessageRequest 发送反馈请求
type SendMessageRequest struct {
	Text string `json:"text"`
}

// SessionResponse 会话快照响应
type SessionResponse struct {
	interaction.Snapshot
}

// SaveResponse 保存结果响应
type SaveResponse struct {
	Novel *entity.SavedNovel `json:"novel"`
}

// LibraryListResponse 小说库列表响应
type LibraryListResponse struct {
	Novels []*entity.SavedNovel `json:"novels"`
	Total  int                  `json:"total"`
}

// ContentEvent SSE content 事件
type ContentEvent struct {
	Delta    string `json:"delta"`
	Progress int    `json:"progress"`
}

// StateEvent SSE state 事件
type StateEvent struct {
	State     entity.SessionState `json:"state"`
	Progress  int                 `json:"progress"`
	LastError string              `json:"last_error,omitempty"`
}
