// Package generation 提供外部小说生成服务客户端
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-novel-wizard/internal/config"
	"z-novel-wizard/internal/domain/entity"
	"z-novel-wizard/internal/domain/port"
	apperrors "z-novel-wizard/pkg/errors"
	"z-novel-wizard/pkg/logger"
	"z-novel-wizard/pkg/metrics"
)

var tracer = otel.Tracer("generation")

// DefaultFailureMessage 服务未给出原因时的错误信息
const DefaultFailureMessage = "generation request failed"

// Client 生成服务客户端
type Client struct {
	endpoint   string
	bufferSize int
	httpClient *http.Client
}

var _ port.NovelGenerator = (*Client)(nil)

// NewClient 创建生成服务客户端
// 流式响应可能持续很久，因此只限制建连和等待响应头的时间
func NewClient(cfg *config.GenerationConfig) *Client {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	bufferSize := cfg.ReadBufferSize
	if bufferSize <= 0 {
		bufferSize = 4096
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	transport.ResponseHeaderTimeout = timeout

	return &Client{
		endpoint:   strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/") + "/generate",
		bufferSize: bufferSize,
		httpClient: &http.Client{Transport: transport},
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// Generate 发起 POST {API_URL}/generate，返回片段流
func (c *Client) Generate(ctx context.Context, draft *entity.DraftRequest) (port.FragmentStream, error) {
	ctx, span := tracer.Start(ctx, "generation.Generate",
		trace.WithAttributes(
			attribute.String("generation.style", draft.Style),
			attribute.String("http.url", c.endpoint),
		))

	body, err := json.Marshal(draft)
	if err != nil {
		span.RecordError(err)
		span.End()
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationRequest, DefaultFailureMessage)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.End()
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationRequest, DefaultFailureMessage)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues("transport_error").Inc()
		span.RecordError(err)
		span.End()
		logger.Error(ctx, "generation request failed", err, "url", c.endpoint)
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationRequest, DefaultFailureMessage)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		metrics.GenerationRequestsTotal.WithLabelValues("rejected").Inc()

		msg := DefaultFailureMessage
		var errResp errorBody
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&errResp); err == nil && strings.TrimSpace(errResp.Error) != "" {
			msg = strings.TrimSpace(errResp.Error)
		}
		appErr := apperrors.New(apperrors.CodeGenerationRequest, msg).WithDetail(resp.Status)
		span.RecordError(appErr)
		span.End()
		logger.Warn(ctx, "generation service rejected request", "status", resp.StatusCode, "message", msg)
		return nil, appErr
	}

	metrics.GenerationRequestsTotal.WithLabelValues("ok").Inc()
	return newFragmentStream(resp.Body, c.bufferSize, span), nil
}
