// Package persistence 按配置选择会话存储后端
package persistence

import (
	"context"
	"fmt"

	"z-novel-wizard/internal/config"
	"z-novel-wizard/internal/domain/repository"
	"z-novel-wizard/internal/infrastructure/persistence/kv"
	"z-novel-wizard/internal/infrastructure/persistence/memory"
	"z-novel-wizard/internal/infrastructure/persistence/postgres"
	"z-novel-wizard/internal/infrastructure/persistence/redis"
	"z-novel-wizard/internal/infrastructure/persistence/sqlite"
	"z-novel-wizard/pkg/logger"
)

// 存储驱动
const (
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Backend 已打开的存储后端
type Backend struct {
	Store *kv.Store
	// Redis 仅在 redis 驱动下非空，供限流器复用连接
	Redis *redis.Client
}

// Open 按驱动打开存储后端，进程启动时调用一次
func Open(ctx context.Context, cfg *config.StoreConfig) (*Backend, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	var (
		backend repository.KV
		rdb     *redis.Client
	)

	switch driver {
	case DriverSQLite:
		db, err := sqlite.Open(&cfg.SQLite)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		backend = db
	case DriverRedis:
		client, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis store: %w", err)
		}
		backend = redis.NewKV(client)
		rdb = client
	case DriverPostgres:
		client, err := postgres.NewClient(&cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		pg, err := postgres.NewKV(client)
		if err != nil {
			client.Close()
			return nil, err
		}
		backend = pg
	case DriverMemory:
		backend = memory.NewKV()
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}

	logger.Info(ctx, "session store opened", "driver", driver, "key_prefix", cfg.KeyPrefix)

	return &Backend{
		Store: kv.NewStore(backend, cfg.KeyPrefix),
		Redis: rdb,
	}, nil
}

// Close 关闭存储
func (b *Backend) Close() error {
	return b.Store.Close()
}
