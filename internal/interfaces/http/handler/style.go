package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-wizard/internal/application/catalog"
	"z-novel-wizard/internal/interfaces/http/dto"
)

// StyleHandler 写作风格处理器
type StyleHandler struct {
	catalog *catalog.Catalog
}

// NewStyleHandler 创建写作风格处理器
func NewStyleHandler(cat *catalog.Catalog) *StyleHandler {
	return &StyleHandler{catalog: cat}
}

// ListStyles 获取风格列表
// @Summary 获取写作风格列表
// @Tags Styles
// @Produce json
// @Success 200 {object} dto.Response[dto.StyleListResponse]
// @Router /v1/styles [get]
func (h *StyleHandler) ListStyles(c *gin.Context) {
	dto.Success(c, dto.StyleListResponse{Styles: h.catalog.List()})
}

// SetCustomStyle 设置自定义风格
// @Summary 设置自定义风格
// @Tags Styles
// @Accept json
// @Produce json
// @Param body body dto.CustomStyleRequest true "风格信息"
// @Success 200 {object} dto.Response[entity.Style]
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/styles/custom [put]
func (h *StyleHandler) SetCustomStyle(c *gin.Context) {
	var req dto.CustomStyleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	style, err := h.catalog.SetCustom(req.ToEntity())
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, style)
}
