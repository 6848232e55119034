//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"z-novel-wizard/internal/application/catalog"
	"z-novel-wizard/internal/application/interaction"
	"z-novel-wizard/internal/application/wizard"
	"z-novel-wizard/internal/config"
	"z-novel-wizard/internal/interfaces/http/handler"
	"z-novel-wizard/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		StoreSet,
		ApplicationSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// StoreSet 存储提供者集合
var StoreSet = wire.NewSet(
	ProvideBackend,
	ProvideSessionStore,
	ProvideRateLimiter,
)

// ApplicationSet 应用层提供者集合
var ApplicationSet = wire.NewSet(
	ProvideGenerator,
	ProvideResponder,
	ProvideSession,
	catalog.New,
	ProvideController,
	ProvideLibrary,
	wire.Bind(new(wizard.Session), new(*interaction.Session)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewHealthHandler,
	handler.NewStyleHandler,
	handler.NewWizardHandler,
	handler.NewSessionHandler,
	handler.NewLibraryHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
