// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"z-novel-wizard/internal/config"
	"z-novel-wizard/internal/domain/repository"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	store   repository.SessionStore
	driver  string
	version string
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(store repository.SessionStore, cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		store:   store,
		driver:  cfg.Store.Driver,
		version: cfg.App.Version,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready 就绪检查接口，检查会话存储
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	check := &readinessCheck{Status: "ok"}
	start := time.Now()
	err := h.store.Ping(ctx)
	check.LatencyMs = time.Since(start).Milliseconds()

	resp := readinessResponse{
		Status: "ok",
		Checks: map[string]*readinessCheck{"store:" + h.driver: check},
	}
	if err != nil {
		check.Status = "error"
		check.Error = err.Error()
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
