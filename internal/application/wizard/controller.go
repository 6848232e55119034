// Package wizard 实现写作向导：阶段切换、风格选择与草稿提交
package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"

	"z-novel-wizard/internal/application/catalog"
	"z-novel-wizard/internal/application/interaction"
	"z-novel-wizard/internal/config"
	"z-novel-wizard/internal/domain/entity"
	"z-novel-wizard/internal/domain/repository"
	apperrors "z-novel-wizard/pkg/errors"
	"z-novel-wizard/pkg/logger"
)

// MissingFieldsMessage 草稿字段缺失时的提示
const MissingFieldsMessage = "请填写所有必要的字段！"

const defaultCharacter = "主角"

// Session 向导驱动的交互会话
type Session interface {
	Start(ctx context.Context, draft *entity.DraftRequest) error
	Reset(ctx context.Context)
	Snapshot() interaction.Snapshot
}

// State 向导状态
type State struct {
	Stage         entity.Stage         `json:"stage"`
	SelectedStyle *entity.Style        `json:"selected_style,omitempty"`
	ActiveDraft   *entity.DraftRequest `json:"active_draft,omitempty"`
}

// Controller 向导控制器
type Controller struct {
	catalog *catalog.Catalog
	store   repository.SessionStore
	session Session

	defaultCharacter string
	resume           bool

	mu       sync.Mutex
	stage    entity.Stage
	selected *entity.Style
}

// NewController 创建向导控制器
func NewController(cat *catalog.Catalog, store repository.SessionStore, session Session, cfg *config.WizardConfig) *Controller {
	character := defaultCharacter
	resume := false
	if cfg != nil {
		if c := strings.TrimSpace(cfg.DefaultCharacter); c != "" {
			character = c
		}
		resume = cfg.ResumeActiveDraft
	}
	return &Controller{
		catalog:          cat,
		store:            store,
		session:          session,
		defaultCharacter: character,
		resume:           resume,
		stage:            entity.StageStyle,
	}
}

// Init 启动时恢复上次的草稿：存在草稿且开启恢复时直接进入交互阶段
func (c *Controller) Init(ctx context.Context) error {
	draft, err := c.store.GetActiveDraft(ctx)
	if err != nil {
		return err
	}
	if draft == nil || !c.resume {
		return nil
	}

	c.mu.Lock()
	if style, ok := c.catalog.Lookup(draft.Style); ok {
		c.selected = &style
	}
	c.mu.Unlock()

	logger.Info(ctx, "resuming active draft", "title", draft.Title, "style", draft.Style)
	return c.enter(ctx, entity.StageInteract)
}

// State 返回当前向导状态
func (c *Controller) State(ctx context.Context) (State, error) {
	draft, err := c.store.GetActiveDraft(ctx)
	if err != nil {
		return State{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{Stage: c.stage, ActiveDraft: draft}
	if c.selected != nil {
		selected := *c.selected
		st.SelectedStyle = &selected
	}
	return st, nil
}

// SelectStyle 选择写作风格
func (c *Controller) SelectStyle(ctx context.Context, name string) (State, error) {
	style, ok := c.catalog.Lookup(name)
	if !ok {
		return State{}, apperrors.Validation("unknown style: " + strings.TrimSpace(name))
	}

	c.mu.Lock()
	c.selected = &style
	c.mu.Unlock()

	return c.State(ctx)
}

// Next 前进到下一阶段
func (c *Controller) Next(ctx context.Context) (State, error) {
	c.mu.Lock()
	current := c.stage
	hasStyle := c.selected != nil
	c.mu.Unlock()

	switch current {
	case entity.StageStyle:
		if !hasStyle {
			return State{}, apperrors.Validation("select a style first")
		}
	case entity.StageCreate:
		draft, err := c.store.GetActiveDraft(ctx)
		if err != nil {
			return State{}, err
		}
		if draft == nil {
			return State{}, apperrors.Validation(MissingFieldsMessage)
		}
	}

	idx := current.Index()
	if idx < len(entity.Stages)-1 {
		if err := c.enter(ctx, entity.Stages[idx+1]); err != nil {
			return State{}, err
		}
	}
	return c.State(ctx)
}

// Back 返回上一阶段
func (c *Controller) Back(ctx context.Context) (State, error) {
	c.mu.Lock()
	idx := c.stage.Index()
	c.mu.Unlock()

	if idx > 0 {
		if err := c.enter(ctx, entity.Stages[idx-1]); err != nil {
			return State{}, err
		}
	}
	return c.State(ctx)
}

// GoTo 直接切换到指定阶段
func (c *Controller) GoTo(ctx context.Context, stage entity.Stage) (State, error) {
	if !stage.IsValid() {
		return State{}, apperrors.Validation("unknown stage: " + string(stage))
	}
	if err := c.enter(ctx, stage); err != nil {
		return State{}, err
	}
	return c.State(ctx)
}

// SubmitDraft 用标题和创作提示生成草稿，覆盖已有草稿并进入交互阶段
func (c *Controller) SubmitDraft(ctx context.Context, title, prompt string) (State, error) {
	c.mu.Lock()
	selected := c.selected
	c.mu.Unlock()

	if selected == nil || strings.TrimSpace(title) == "" || strings.TrimSpace(prompt) == "" {
		return State{}, apperrors.Validation(MissingFieldsMessage)
	}

	draft := entity.NewDraftRequest(selected.Name, title, prompt, c.defaultCharacter)
	if err := c.store.SetActiveDraft(ctx, draft); err != nil {
		return State{}, err
	}
	logger.Info(ctx, "draft submitted", "title", draft.Title, "style", draft.Style)

	if err := c.enter(ctx, entity.StageInteract); err != nil {
		return State{}, err
	}
	return c.State(ctx)
}

// NewNovel 清除当前草稿与会话，回到风格选择
func (c *Controller) NewNovel(ctx context.Context) (State, error) {
	if err := c.store.ClearActiveDraft(ctx); err != nil {
		return State{}, err
	}
	c.session.Reset(ctx)

	c.mu.Lock()
	c.stage = entity.StageStyle
	c.mu.Unlock()

	return c.State(ctx)
}

// enter 切换阶段；进入交互阶段时若有草稿且未在生成则自动开始生成
func (c *Controller) enter(ctx context.Context, stage entity.Stage) error {
	c.mu.Lock()
	c.stage = stage
	c.mu.Unlock()

	if stage != entity.StageInteract {
		return nil
	}

	draft, err := c.store.GetActiveDraft(ctx)
	if err != nil {
		return err
	}
	if draft == nil || c.session.Snapshot().State == entity.SessionStateGenerating {
		return nil
	}

	// 运行挂在会话自身的生命周期上，与当前请求无关
	if err := c.session.Start(ctx, draft); err != nil && !errors.Is(err, apperrors.ErrSessionBusy) {
		return err
	}
	return nil
}
