// Package entity 定义领域实体
package entity

import "strings"

// DraftRequest 小说生成请求（当前草稿）
// 交给生成客户端后不可变；存储与网络传输共用同一 JSON 字段名
type DraftRequest struct {
	Style             string `json:"style"`
	Title             string `json:"title"`
	Background        string `json:"background"`
	Character         string `json:"character"`
	Plot              string `json:"plot"`
	OtherRequirements string `json:"other_reqs"`
}

// NewDraftRequest 由标题和一段创作提示构建草稿，背景与情节共用同一提示
func NewDraftRequest(style, title, prompt, character string) *DraftRequest {
	return &DraftRequest{
		Style:      style,
		Title:      strings.TrimSpace(title),
		Background: strings.TrimSpace(prompt),
		Character:  character,
		Plot:       strings.TrimSpace(prompt),
	}
}

// Clone 返回副本
func (d *DraftRequest) Clone() *DraftRequest {
	if d == nil {
		return nil
	}
	cp := *d
	return &cp
}

// IsComplete 标题与背景均非空
func (d *DraftRequest) IsComplete() bool {
	return d != nil && strings.TrimSpace(d.Title) != "" && strings.TrimSpace(d.Background) != ""
}
