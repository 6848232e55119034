// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"z-novel-wizard/internal/application/catalog"
	"z-novel-wizard/internal/application/interaction"
	"z-novel-wizard/internal/application/library"
	"z-novel-wizard/internal/application/wizard"
	"z-novel-wizard/internal/config"
	"z-novel-wizard/internal/domain/port"
	"z-novel-wizard/internal/domain/repository"
	"z-novel-wizard/internal/infrastructure/generation"
	"z-novel-wizard/internal/infrastructure/persistence"
	"z-novel-wizard/internal/infrastructure/persistence/redis"
	"z-novel-wizard/internal/interfaces/http/middleware"
	"z-novel-wizard/internal/interfaces/http/router"
	"z-novel-wizard/pkg/logger"
)

// App 已装配的应用
type App struct {
	Router     *router.Router
	Controller *wizard.Controller
	Session    *interaction.Session
	Backend    *persistence.Backend
}

// ProvideBackend 按配置打开存储后端
func ProvideBackend(ctx context.Context, cfg *config.Config) (*persistence.Backend, func(), error) {
	backend, err := persistence.Open(ctx, &cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := backend.Close(); err != nil {
			logger.Error(ctx, "failed to close session store", err)
		}
	}
	return backend, cleanup, nil
}

// ProvideSessionStore 提供会话存储
func ProvideSessionStore(backend *persistence.Backend) repository.SessionStore {
	return backend.Store
}

// ProvideGenerator 提供外部生成服务客户端
func ProvideGenerator(cfg *config.Config) port.NovelGenerator {
	return generation.NewClient(&cfg.Generation)
}

// ProvideResponder 提供反馈回复器
func ProvideResponder(cfg *config.Config) interaction.Responder {
	return interaction.NewPlaceholderResponder(cfg.Session.AckDelay)
}

// ProvideSession 提供进程内唯一的交互会话
func ProvideSession(generator port.NovelGenerator, store repository.SessionStore, responder interaction.Responder, cfg *config.Config) (*interaction.Session, func()) {
	session := interaction.NewSession(generator, store, responder, &cfg.Session)
	return session, session.Close
}

// ProvideController 提供向导控制器
func ProvideController(cat *catalog.Catalog, store repository.SessionStore, session wizard.Session, cfg *config.Config) *wizard.Controller {
	return wizard.NewController(cat, store, session, &cfg.Wizard)
}

// ProvideLibrary 提供小说库服务
func ProvideLibrary(store repository.SessionStore) *library.Service {
	return library.NewService(store)
}

// ProvideRateLimiter 仅在 redis 存储下提供限流器
func ProvideRateLimiter(backend *persistence.Backend) middleware.RateLimiter {
	if backend.Redis == nil {
		return nil
	}
	return redis.NewRateLimiter(backend.Redis)
}
