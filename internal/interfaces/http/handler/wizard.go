package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-wizard/internal/application/wizard"
	"z-novel-wizard/internal/domain/entity"
	"z-novel-wizard/internal/interfaces/http/dto"
	"z-novel-wizard/pkg/logger"
)

// WizardHandler 向导处理器
type WizardHandler struct {
	wizard *wizard.Controller
}

// NewWizardHandler 创建向导处理器
func NewWizardHandler(w *wizard.Controller) *WizardHandler {
	return &WizardHandler{wizard: w}
}

func (h *WizardHandler) respond(c *gin.Context, st wizard.State, err error) {
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, st)
}

// GetState 获取向导状态
// @Summary 获取向导状态
// @Tags Wizard
// @Produce json
// @Success 200 {object} dto.Response[wizard.State]
// @Router /v1/wizard [get]
func (h *WizardHandler) GetState(c *gin.Context) {
	st, err := h.wizard.State(c.Request.Context())
	h.respond(c, st, err)
}

// SelectStyle 选择写作风格
// @Summary 选择写作风格
// @Tags Wizard
// @Accept json
// @Produce json
// @Param body body dto.SelectStyleRequest true "风格名称"
// @Success 200 {object} dto.Response[wizard.State]
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/wizard/style [post]
func (h *WizardHandler) SelectStyle(c *gin.Context) {
	var req dto.SelectStyleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	st, err := h.wizard.SelectStyle(c.Request.Context(), req.Style)
	h.respond(c, st, err)
}

// Next 下一步
func (h *WizardHandler) Next(c *gin.Context) {
	st, err := h.wizard.Next(c.Request.Context())
	h.respond(c, st, err)
}

// Back 上一步
func (h *WizardHandler) Back(c *gin.Context) {
	st, err := h.wizard.Back(c.Request.Context())
	h.respond(c, st, err)
}

// GoTo 切换阶段
// @Router /v1/wizard/stage [put]
func (h *WizardHandler) GoTo(c *gin.Context) {
	var req dto.GoToStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	st, err := h.wizard.GoTo(c.Request.Context(), entity.Stage(req.Stage))
	h.respond(c, st, err)
}

// SubmitDraft 提交创作提示并开始生成
// @Summary 提交创作提示
// @Description 校验标题与提示，保存为当前草稿并进入交互阶段（自动开始生成）
// @Tags Wizard
// @Accept json
// @Produce json
// @Param body body dto.SubmitDraftRequest true "标题与提示"
// @Success 200 {object} dto.Response[wizard.State]
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/wizard/draft [post]
func (h *WizardHandler) SubmitDraft(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SubmitDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	st, err := h.wizard.SubmitDraft(ctx, req.Title, req.Prompt)
	if err != nil {
		logger.Warn(ctx, "draft submission rejected", "error", err.Error())
	}
	h.respond(c, st, err)
}

// Reset 新建小说
// @Router /v1/wizard/reset [post]
func (h *WizardHandler) Reset(c *gin.Context) {
	st, err := h.wizard.NewNovel(c.Request.Context())
	h.respond(c, st, err)
}
