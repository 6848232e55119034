package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"z-novel-wizard/internal/interfaces/http/dto"
	apperrors "z-novel-wizard/pkg/errors"
	"z-novel-wizard/pkg/logger"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond int
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// KeyFunc 由请求构建限流 Key
type KeyFunc func(c *gin.Context) string

// RateLimit 按客户端 IP 与路由限流；限流器不可用时放行
func RateLimit(cfg RateLimitConfig, limiter RateLimiter, keyFn KeyFunc) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 20
	}

	return func(c *gin.Context) {
		key := keyFn(c)
		allowed, err := limiter.Allow(c.Request.Context(), key, cfg.RequestsPerSecond, time.Second)
		if err != nil {
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		if !allowed {
			dto.FromError(c, apperrors.ErrTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}
