package catalog

import (
	"errors"
	"testing"

	"z-novel-wizard/internal/domain/entity"
	apperrors "z-novel-wizard/pkg/errors"
)

func TestListBuiltins(t *testing.T) {
	c := New()
	styles := c.List()
	if len(styles) != 3 {
		t.Fatalf("expected 3 built-in styles, got %d", len(styles))
	}
	want := []string{"唐家三少", "烽火戏诸侯", "月关"}
	for i, name := range want {
		if styles[i].Name != name {
			t.Fatalf("style %d: expected %s, got %s", i, name, styles[i].Name)
		}
	}

	// 修改返回值不影响目录
	styles[0].Tags[0] = "changed"
	if got, _ := c.Lookup("唐家三少"); got.Tags[0] != "玄幻" {
		t.Fatalf("catalog mutated through List result")
	}
}

func TestLookup(t *testing.T) {
	c := New()
	tests := []struct {
		name  string
		query string
		found bool
	}{
		{name: "by name", query: "月关", found: true},
		{name: "by id", query: "yueguan", found: true},
		{name: "trimmed", query: " 月关 ", found: true},
		{name: "unknown", query: "金庸", found: false},
		{name: "empty", query: "", found: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := c.Lookup(tt.query); ok != tt.found {
				t.Fatalf("lookup %q: expected found=%v", tt.query, tt.found)
			}
		})
	}
}

func TestSetCustomReplacesPrevious(t *testing.T) {
	c := New()
	if _, err := c.SetCustom(entity.Style{Name: "我的风格", Tags: []string{" 科幻 ", ""}}); err != nil {
		t.Fatalf("set custom: %v", err)
	}
	got, err := c.SetCustom(entity.Style{Name: "另一个风格"})
	if err != nil {
		t.Fatalf("replace custom: %v", err)
	}
	if !got.Custom || got.ID != CustomStyleID {
		t.Fatalf("unexpected custom style %+v", got)
	}

	styles := c.List()
	if len(styles) != 4 || styles[3].Name != "另一个风格" {
		t.Fatalf("expected replaced custom style last, got %+v", styles)
	}
	if _, ok := c.Lookup("我的风格"); ok {
		t.Fatalf("previous custom style should be gone")
	}
}

func TestSetCustomValidation(t *testing.T) {
	c := New()
	for _, name := range []string{"", "  ", "唐家三少"} {
		if _, err := c.SetCustom(entity.Style{Name: name}); !errors.Is(err, apperrors.ErrValidationFailed) {
			t.Fatalf("name %q: expected validation error, got %v", name, err)
		}
	}
}
