package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"z-novel-wizard/internal/application/interaction"
	"z-novel-wizard/internal/domain/entity"
	"z-novel-wizard/internal/domain/repository"
	"z-novel-wizard/internal/interfaces/http/dto"
	apperrors "z-novel-wizard/pkg/errors"
	"z-novel-wizard/pkg/logger"
)

// SessionHandler 交互会话处理器
type SessionHandler struct {
	session *interaction.Session
	store   repository.SessionStore
}

// NewSessionHandler 创建交互会话处理器
func NewSessionHandler(session *interaction.Session, store repository.SessionStore) *SessionHandler {
	return &SessionHandler{session: session, store: store}
}

// GetSession 获取会话快照
// @Summary 获取会话快照
// @Tags Session
// @Produce json
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Router /v1/session [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	dto.Success(c, dto.SessionResponse{Snapshot: h.session.Snapshot()})
}

// StartRun 以当前草稿（重新）开始生成
// @Summary 开始生成
// @Tags Session
// @Produce json
// @Success 202 {object} dto.Response[dto.SessionResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/session/start [post]
func (h *SessionHandler) StartRun(c *gin.Context) {
	ctx := c.Request.Context()

	draft, err := h.store.GetActiveDraft(ctx)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	if draft == nil {
		dto.FromError(c, apperrors.Validation("no active draft"))
		return
	}

	if err := h.session.Start(ctx, draft); err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Accepted(c, dto.SessionResponse{Snapshot: h.session.Snapshot()})
}

// CancelRun 取消进行中的生成
// @Router /v1/session/run [delete]
func (h *SessionHandler) CancelRun(c *gin.Context) {
	if !h.session.CancelRun() {
		dto.FromError(c, apperrors.ErrNotFound.WithDetail("no generation in progress"))
		return
	}
	dto.Accepted(c, gin.H{"canceled": true})
}

// SendMessage 发送反馈
// @Summary 发送反馈
// @Tags Session
// @Accept json
// @Produce json
// @Param body body dto.SendMessageRequest true "反馈内容"
// @Success 201 {object} dto.Response[entity.InteractionMessage]
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/session/messages [post]
func (h *SessionHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	msg, err := h.session.SendMessage(c.Request.Context(), req.Text)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Created(c, msg)
}

// Save 保存当前小说
// @Summary 保存小说
// @Tags Session
// @Produce json
// @Success 201 {object} dto.Response[dto.SaveResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/session/save [post]
func (h *SessionHandler) Save(c *gin.Context) {
	novel, err := h.session.Save(c.Request.Context())
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Created(c, dto.SaveResponse{Novel: novel})
}

// Stream 通过 SSE 推送会话变化
// 事件：state（状态与进度）、content（正文增量）、message（反馈记录）、error（运行失败）
// @Summary 订阅会话事件
// @Tags Session
// @Produce text/event-stream
// @Success 200 "SSE stream"
// @Router /v1/session/stream [get]
func (h *SessionHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	var cur streamCursor
	snap := h.session.Snapshot()
	cur.emit(c, snap, true)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		next, err := h.session.Wait(ctx, cur.version)
		if err != nil {
			if ctx.Err() == nil {
				c.SSEvent("error", gin.H{"message": interaction.ErrorText(err)})
			}
			logger.Debug(ctx, "session stream closed", "reason", err.Error())
			return false
		}
		cur.emit(c, next, false)
		return true
	})
}

// streamCursor 记录已推送给某个订阅者的位置
type streamCursor struct {
	version  uint64
	run      uint64
	epoch    uint64
	docLen   int
	msgCount int
	state    entity.SessionState
	progress int
}

func (s *streamCursor) emit(c *gin.Context, snap interaction.Snapshot, initial bool) {
	// 新一轮运行从头推送正文，会话重置时反馈记录也从头推送
	reset := !initial && (snap.Run != s.run || snap.Epoch != s.epoch)
	if snap.Run != s.run {
		s.docLen = 0
	}
	if snap.Epoch != s.epoch {
		s.docLen, s.msgCount = 0, 0
	}

	if initial || reset || snap.State != s.state {
		c.SSEvent("state", dto.StateEvent{State: snap.State, Progress: snap.Progress, LastError: snap.LastError})
		if snap.State == entity.SessionStateFailed && !initial {
			c.SSEvent("error", gin.H{"message": snap.LastError})
		}
	}

	if len(snap.Document) > s.docLen || (snap.Progress != s.progress && snap.State == entity.SessionStateGenerating) {
		c.SSEvent("content", dto.ContentEvent{Delta: snap.Document[s.docLen:], Progress: snap.Progress})
	}

	for _, m := range snap.Messages[s.msgCount:] {
		c.SSEvent("message", m)
	}

	s.version = snap.Version
	s.run = snap.Run
	s.epoch = snap.Epoch
	s.docLen = len(snap.Document)
	s.msgCount = len(snap.Messages)
	s.state = snap.State
	s.progress = snap.Progress
}
