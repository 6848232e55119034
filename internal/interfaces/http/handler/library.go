package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-wizard/internal/application/library"
	"z-novel-wizard/internal/interfaces/http/dto"
)

// LibraryHandler 小说库处理器
type LibraryHandler struct {
	library *library.Service
}

// NewLibraryHandler 创建小说库处理器
func NewLibraryHandler(svc *library.Service) *LibraryHandler {
	return &LibraryHandler{library: svc}
}

// ListNovels 获取已保存小说
// @Summary 获取已保存小说列表
// @Description 按创建时间倒序，q 对标题、风格、正文做模糊匹配
// @Tags Library
// @Produce json
// @Param q query string false "搜索关键字"
// @Success 200 {object} dto.Response[dto.LibraryListResponse]
// @Router /v1/library [get]
func (h *LibraryHandler) ListNovels(c *gin.Context) {
	novels, err := h.library.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.LibraryListResponse{Novels: novels, Total: len(novels)})
}

// GetNovel 获取小说详情
// @Summary 获取小说详情
// @Tags Library
// @Produce json
// @Param id path string true "小说 ID"
// @Success 200 {object} dto.Response[entity.SavedNovel]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/library/{id} [get]
func (h *LibraryHandler) GetNovel(c *gin.Context) {
	novel, err := h.library.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, novel)
}
