package generation

import (
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "z-novel-wizard/pkg/errors"
	"z-novel-wizard/pkg/metrics"
)

// FragmentStream 响应体上的增量 UTF-8 片段流
// Recv 只能由一个 goroutine 调用；Close 可并发调用以中断阻塞的读取
type FragmentStream struct {
	body    io.ReadCloser
	buf     []byte
	pending []byte // 跨读取边界的不完整字符

	eof      bool
	finished bool
	closed   atomic.Bool

	span      trace.Span
	endOnce   sync.Once
	fragments int
	bytes     int
}

func newFragmentStream(body io.ReadCloser, bufferSize int, span trace.Span) *FragmentStream {
	return &FragmentStream{
		body: body,
		buf:  make([]byte, bufferSize),
		span: span,
	}
}

// Recv 返回下一个片段；流结束返回 io.EOF（仅一次）
func (s *FragmentStream) Recv() (string, error) {
	if s.finished || s.closed.Load() {
		return "", apperrors.ErrStreamAlreadyConsumed
	}

	for {
		if s.eof {
			if len(s.pending) > 0 {
				// 流以不完整字符结尾，按替换字符输出
				text := strings.ToValidUTF8(string(s.pending), string(utf8.RuneError))
				s.pending = nil
				return s.emit(text), nil
			}
			s.finish(nil)
			return "", io.EOF
		}

		n, err := s.body.Read(s.buf)
		text := ""
		if n > 0 {
			text = s.decode(s.buf[:n])
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				if s.closed.Load() {
					s.finished = true
					return "", apperrors.ErrStreamAlreadyConsumed
				}
				readErr := apperrors.ErrStreamRead.WithError(err)
				s.finish(readErr)
				return "", readErr
			}
			s.eof = true
		}

		if text != "" {
			return s.emit(text), nil
		}
	}
}

// Close 释放响应体；之后的 Recv 返回 StreamAlreadyConsumed
func (s *FragmentStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	err := s.body.Close()
	s.endSpan(nil)
	return err
}

// decode 拼接上次残留的字节，返回完整字符部分并保留不完整的尾部
func (s *FragmentStream) decode(chunk []byte) string {
	data := chunk
	if len(s.pending) > 0 {
		data = append(s.pending, chunk...)
	}

	cut := len(data)
	for back := 1; back <= utf8.UTFMax && back <= len(data); back++ {
		start := len(data) - back
		if utf8.RuneStart(data[start]) {
			if !utf8.FullRune(data[start:]) {
				cut = start
			}
			break
		}
	}

	text := string(data[:cut])
	s.pending = append([]byte(nil), data[cut:]...)
	return text
}

func (s *FragmentStream) emit(text string) string {
	s.fragments++
	s.bytes += len(text)
	metrics.GenerationFragmentsTotal.Inc()
	metrics.GenerationBytesTotal.Add(float64(len(text)))
	return text
}

func (s *FragmentStream) finish(err error) {
	s.finished = true
	_ = s.body.Close()
	s.endSpan(err,
		attribute.Int("generation.fragments", s.fragments),
		attribute.Int("generation.bytes", s.bytes),
	)
}

func (s *FragmentStream) endSpan(err error, attrs ...attribute.KeyValue) {
	s.endOnce.Do(func() {
		if s.span == nil {
			return
		}
		s.span.SetAttributes(attrs...)
		if err != nil {
			s.span.RecordError(err)
		}
		s.span.End()
	})
}
