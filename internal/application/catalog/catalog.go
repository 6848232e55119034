// Package catalog 提供写作风格目录
package catalog

import (
	"strings"
	"sync"

	"z-novel-wizard/internal/domain/entity"
	apperrors "z-novel-wizard/pkg/errors"
)

// CustomStyleID 自定义风格的固定 ID
const CustomStyleID = "custom"

var builtins = []entity.Style{
	{
		ID:          "tangjiasanshao",
		Name:        "唐家三少",
		Description: "通俗易懂、返璞归真",
		Tags:        []string{"玄幻", "热血"},
		Example:     "这是一个充满魔法与斗气的世界...",
	},
	{
		ID:          "fenghuoxizhuhou",
		Name:        "烽火戏诸侯",
		Description: "大器晚成、语言感人",
		Tags:        []string{"武侠", "历史"},
		Example:     "江湖路远，刀光剑影中藏着多少儿女情长...",
	},
	{
		ID:          "yueguan",
		Name:        "月关",
		Description: "文笔成熟、人物感人、情节轻松幽默",
		Tags:        []string{"历史", "言情"},
		Example:     "穿越时空的爱恋，在历史长河中谱写新的篇章...",
	},
}

// Catalog 风格目录：内置风格只读，另有一个可替换的自定义风格
type Catalog struct {
	mu     sync.RWMutex
	custom *entity.Style
}

// New 创建风格目录
func New() *Catalog {
	return &Catalog{}
}

// List 返回全部风格，自定义风格排在最后
func (c *Catalog) List() []entity.Style {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]entity.Style, 0, len(builtins)+1)
	for _, s := range builtins {
		out = append(out, cloneStyle(s))
	}
	if c.custom != nil {
		out = append(out, cloneStyle(*c.custom))
	}
	return out
}

// Lookup 按名称或 ID 查找风格
func (c *Catalog) Lookup(name string) (entity.Style, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return entity.Style{}, false
	}
	for _, s := range builtins {
		if s.Name == name || s.ID == name {
			return cloneStyle(s), true
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.custom != nil && (c.custom.Name == name || c.custom.ID == name) {
		return cloneStyle(*c.custom), true
	}
	return entity.Style{}, false
}

// SetCustom 设置（替换）自定义风格
func (c *Catalog) SetCustom(style entity.Style) (entity.Style, error) {
	style.Name = strings.TrimSpace(style.Name)
	if style.Name == "" {
		return entity.Style{}, apperrors.Validation("style name is required")
	}
	for _, s := range builtins {
		if s.Name == style.Name || s.ID == style.Name {
			return entity.Style{}, apperrors.Validation("style name conflicts with a built-in style")
		}
	}

	style.ID = CustomStyleID
	style.Custom = true
	style.Description = strings.TrimSpace(style.Description)
	style.Example = strings.TrimSpace(style.Example)
	tags := make([]string, 0, len(style.Tags))
	for _, t := range style.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	style.Tags = tags

	c.mu.Lock()
	c.custom = &style
	c.mu.Unlock()
	return cloneStyle(style), nil
}

func cloneStyle(s entity.Style) entity.Style {
	s.Tags = append([]string(nil), s.Tags...)
	return s
}
