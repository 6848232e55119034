// Package interaction 管理一次小说生成的交互会话：运行状态、正文、进度、反馈记录与保存
package interaction

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"z-novel-wizard/internal/config"
	"z-novel-wizard/internal/domain/entity"
	"z-novel-wizard/internal/domain/port"
	"z-novel-wizard/internal/domain/repository"
	apperrors "z-novel-wizard/pkg/errors"
	"z-novel-wizard/pkg/logger"
	"z-novel-wizard/pkg/metrics"
)

// 反馈记录中的系统消息
const (
	GenerationFailedPrefix = "生成失败: "
	SaveSucceededMessage   = "小说已保存成功!"
	SaveFailedPrefix       = "保存失败: "
)

const (
	defaultProgressStep = 5
	defaultProgressCap  = 95
)

// Snapshot 会话状态的一致性副本
type Snapshot struct {
	ID        string                       `json:"id"`
	State     entity.SessionState          `json:"state"`
	Draft     *entity.DraftRequest         `json:"draft,omitempty"`
	Document  string                       `json:"document"`
	Progress  int                          `json:"progress"`
	Messages  []*entity.InteractionMessage `json:"messages"`
	Version   uint64                       `json:"version"`
	LastError string                       `json:"last_error,omitempty"`
	// Run 每次 Start 递增；Epoch 每次 Reset 递增
	Run   uint64 `json:"run"`
	Epoch uint64 `json:"epoch"`
}

// Session 交互会话
// 同一时刻最多一个生成运行；运行与回复 goroutine 都挂在会话生命周期 context 下
type Session struct {
	id        string
	generator port.NovelGenerator
	store     repository.SessionStore
	responder Responder

	progressStep int
	progressCap  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// replyCtx 随 Reset 取消，旧小说的待发送回复不会进入新记录
	replyCtx    context.Context
	replyCancel context.CancelFunc

	mu        sync.Mutex
	state     entity.SessionState
	draft     *entity.DraftRequest
	document  strings.Builder
	progress  int
	messages  []*entity.InteractionMessage
	nextMsgID int64
	lastErr   string
	runSeq    uint64
	epoch     uint64
	version   uint64
	changed   chan struct{}
	closed    bool

	runCancel context.CancelFunc
	runDone   chan struct{}
}

// NewSession 创建交互会话
func NewSession(generator port.NovelGenerator, store repository.SessionStore, responder Responder, cfg *config.SessionConfig) *Session {
	step, capValue := defaultProgressStep, defaultProgressCap
	if cfg != nil {
		if cfg.ProgressStep > 0 {
			step = cfg.ProgressStep
		}
		if cfg.ProgressCap > 0 && cfg.ProgressCap < 100 {
			capValue = cfg.ProgressCap
		}
	}
	if responder == nil {
		var delay time.Duration
		if cfg != nil {
			delay = cfg.AckDelay
		}
		responder = NewPlaceholderResponder(delay)
	}

	id := uuid.New().String()
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), logger.SessionIDKey, id))
	replyCtx, replyCancel := context.WithCancel(ctx)

	return &Session{
		id:           id,
		generator:    generator,
		store:        store,
		responder:    responder,
		progressStep: step,
		progressCap:  capValue,
		ctx:          ctx,
		cancel:       cancel,
		replyCtx:     replyCtx,
		replyCancel:  replyCancel,
		state:        entity.SessionStateIdle,
		nextMsgID:    1,
		changed:      make(chan struct{}),
	}
}

// ID 会话 ID
func (s *Session) ID() string {
	return s.id
}

// Start 以草稿启动一次生成运行；已有运行时返回 SessionBusy
// 正文与进度被重置，反馈记录保留
func (s *Session) Start(ctx context.Context, draft *entity.DraftRequest) error {
	if !draft.IsComplete() {
		return apperrors.Validation("draft title and background are required")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return apperrors.ErrServiceUnavailable.WithDetail("session closed")
	}
	if s.state == entity.SessionStateGenerating {
		s.mu.Unlock()
		return apperrors.ErrSessionBusy
	}

	runCtx, runCancel := context.WithCancel(s.ctx)
	done := make(chan struct{})

	s.state = entity.SessionStateGenerating
	s.draft = draft.Clone()
	s.document.Reset()
	s.progress = 0
	s.lastErr = ""
	s.runCancel = runCancel
	s.runDone = done
	s.runSeq++
	seq := s.runSeq
	s.bump()
	runDraft := s.draft.Clone()
	s.wg.Add(1)
	s.mu.Unlock()

	logger.Info(s.logContext(ctx), "generation run started", "run", seq, "style", runDraft.Style, "title", runDraft.Title)

	go s.run(runCtx, runCancel, done, seq, runDraft)
	return nil
}

// CancelRun 取消进行中的运行，返回是否存在运行
func (s *Session) CancelRun() bool {
	s.mu.Lock()
	cancel := s.runCancel
	generating := s.state == entity.SessionStateGenerating
	s.mu.Unlock()

	if !generating || cancel == nil {
		return false
	}
	cancel()
	return true
}

// run 读取生成流；seq 标识本次运行，会话被重置或重新开始后旧运行的写入被丢弃
func (s *Session) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}, seq uint64, draft *entity.DraftRequest) {
	defer s.wg.Done()
	defer close(done)
	defer cancel()

	start := time.Now()
	metrics.SessionActiveRuns.Inc()
	defer metrics.SessionActiveRuns.Dec()

	outcome := "completed"
	defer func() {
		metrics.SessionRunsTotal.WithLabelValues(outcome).Inc()
		metrics.SessionRunDuration.Observe(time.Since(start).Seconds())
	}()

	stream, err := s.generator.Generate(ctx, draft)
	if err != nil {
		outcome = s.fail(ctx, seq, err)
		return
	}
	defer stream.Close()

	fragments := 0
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			outcome = s.fail(ctx, seq, err)
			return
		}
		fragments++
		if !s.appendFragment(seq, chunk) {
			outcome = "canceled"
			return
		}
	}

	if fragments == 0 {
		outcome = s.fail(ctx, seq, apperrors.New(apperrors.CodeGenerationRequest, "empty document"))
		return
	}
	if !s.complete(ctx, seq) {
		outcome = "canceled"
	}
}

// appendFragment 追加片段；运行已被取代时返回 false
func (s *Session) appendFragment(seq uint64, chunk string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.runSeq {
		return false
	}
	s.document.WriteString(chunk)
	s.progress += s.progressStep
	if s.progress > s.progressCap {
		s.progress = s.progressCap
	}
	s.bump()
	return true
}

func (s *Session) complete(ctx context.Context, seq uint64) bool {
	s.mu.Lock()
	if seq != s.runSeq {
		s.mu.Unlock()
		logger.Info(ctx, "superseded run finished", "run", seq)
		return false
	}
	s.state = entity.SessionStateCompleted
	s.progress = 100
	s.runCancel = nil
	chars := len([]rune(s.document.String()))
	s.bump()
	s.mu.Unlock()

	metrics.SessionDocumentChars.Observe(float64(chars))
	logger.Info(ctx, "generation run completed", "run", seq, "chars", chars)
	return true
}

// fail 记录失败，保留已生成的部分正文；返回指标用的结果标签
func (s *Session) fail(ctx context.Context, seq uint64, err error) string {
	outcome := "failed"
	text := ErrorText(err)
	if ctx.Err() != nil {
		outcome = "canceled"
		text = "generation canceled"
	}

	s.mu.Lock()
	if seq != s.runSeq {
		s.mu.Unlock()
		logger.Info(ctx, "superseded run finished", "run", seq, "error", err.Error())
		return "canceled"
	}
	s.state = entity.SessionStateFailed
	s.lastErr = text
	s.runCancel = nil
	s.appendMessageLocked(entity.NewSystemMessage(s.nextMsgID, GenerationFailedPrefix+text))
	s.mu.Unlock()

	if outcome == "canceled" {
		logger.Info(ctx, "generation run canceled", "run", seq)
	} else {
		logger.Error(ctx, "generation run failed", err, "run", seq)
	}
	return outcome
}

// SendMessage 追加一条用户反馈，并异步等待回复器的回复
func (s *Session) SendMessage(ctx context.Context, text string) (*entity.InteractionMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validation("message text is required")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, apperrors.ErrServiceUnavailable.WithDetail("session closed")
	}
	msg := entity.NewUserMessage(s.nextMsgID, text)
	s.appendMessageLocked(msg)
	draft := s.draft.Clone()
	document := s.document.String()
	replyCtx, epoch := s.replyCtx, s.epoch
	s.wg.Add(1)
	s.mu.Unlock()

	logger.Debug(s.logContext(ctx), "feedback received", "message_id", msg.ID)

	go s.respond(replyCtx, epoch, draft, document, text)
	return msg, nil
}

// respond 等待回复器；会话关闭或重置后回复被丢弃
func (s *Session) respond(ctx context.Context, epoch uint64, draft *entity.DraftRequest, document, feedback string) {
	defer s.wg.Done()

	reply, err := s.responder.Respond(ctx, draft, document, feedback)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logger.Warn(ctx, "responder failed", "error", err.Error())
		return
	}
	if reply == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.epoch != epoch {
		return
	}
	s.appendMessageLocked(entity.NewSystemMessage(s.nextMsgID, reply))
}

// Save 把草稿、正文和反馈记录保存为一条新的小说记录，任何状态下都可调用
func (s *Session) Save(ctx context.Context) (*entity.SavedNovel, error) {
	s.mu.Lock()
	if s.draft == nil {
		s.mu.Unlock()
		return nil, apperrors.Validation("no draft to save")
	}
	novel := entity.NewSavedNovel(s.draft, s.document.String(), s.messages)
	s.mu.Unlock()

	if err := s.store.AppendSaved(ctx, novel); err != nil {
		s.mu.Lock()
		s.appendMessageLocked(entity.NewSystemMessage(s.nextMsgID, SaveFailedPrefix+ErrorText(err)))
		s.mu.Unlock()

		logger.Error(s.logContext(ctx), "failed to save novel", err)
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Persistence("append saved", err)
	}

	s.mu.Lock()
	s.appendMessageLocked(entity.NewSystemMessage(s.nextMsgID, SaveSucceededMessage))
	s.mu.Unlock()

	metrics.SavedNovelsTotal.Inc()
	logger.Info(s.logContext(ctx), "novel saved", "novel_id", novel.ID)
	return novel, nil
}

// Reset 取消进行中的运行并清空会话，用于开始一部新小说
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	cancel, done := s.runCancel, s.runDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// 未等到退出的旧运行凭 runSeq 失效，之后的写入全部丢弃
	s.runSeq++
	s.replyCancel()
	s.replyCtx, s.replyCancel = context.WithCancel(s.ctx)
	s.state = entity.SessionStateIdle
	s.draft = nil
	s.document.Reset()
	s.progress = 0
	s.messages = nil
	s.lastErr = ""
	s.runCancel = nil
	s.runDone = nil
	s.epoch++
	s.bump()
}

// logContext 为调用方上下文附加会话 ID
func (s *Session) logContext(ctx context.Context) context.Context {
	return logger.WithContext(ctx, logger.SessionIDKey, s.id)
}

// Snapshot 返回当前状态副本
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Wait 阻塞直到版本号超过 version、会话关闭或 ctx 结束
func (s *Session) Wait(ctx context.Context, version uint64) (Snapshot, error) {
	for {
		s.mu.Lock()
		if s.version > version {
			snap := s.snapshotLocked()
			s.mu.Unlock()
			return snap, nil
		}
		if s.closed {
			snap := s.snapshotLocked()
			s.mu.Unlock()
			return snap, apperrors.ErrServiceUnavailable.WithDetail("session closed")
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-ch:
		}
	}
}

// Close 取消运行与待发送的回复，并等待相关 goroutine 退出
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.bump()
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Session) snapshotLocked() Snapshot {
	msgs := make([]*entity.InteractionMessage, len(s.messages))
	copy(msgs, s.messages)
	return Snapshot{
		ID:        s.id,
		State:     s.state,
		Draft:     s.draft.Clone(),
		Document:  s.document.String(),
		Progress:  s.progress,
		Messages:  msgs,
		Version:   s.version,
		LastError: s.lastErr,
		Run:       s.runSeq,
		Epoch:     s.epoch,
	}
}

func (s *Session) appendMessageLocked(msg *entity.InteractionMessage) {
	s.messages = append(s.messages, msg)
	s.nextMsgID = msg.ID + 1
	metrics.SessionMessagesTotal.WithLabelValues(msg.Author()).Inc()
	s.bump()
}

// bump 增加版本号并唤醒等待者，调用方需持有锁
func (s *Session) bump() {
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
}

// ErrorText 返回面向用户的错误描述
func ErrorText(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Err != nil {
			return appErr.Message + ": " + appErr.Err.Error()
		}
		return appErr.Message
	}
	return err.Error()
}
