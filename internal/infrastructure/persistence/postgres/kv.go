package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry kv_entries 表记录
type KVEntry struct {
	Key       string    `gorm:"type:varchar(128);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

// KV PostgreSQL 键值存储
type KV struct {
	client *Client
}

// NewKV 创建键值存储并迁移表结构
func NewKV(client *Client) (*KV, error) {
	if err := client.db.AutoMigrate(&KVEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_entries: %w", err)
	}
	return &KV{client: client}, nil
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.kv.Get",
		trace.WithAttributes(attribute.String("db.key", key)))
	defer span.End()

	var entry KVEntry
	err := k.client.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	return []byte(entry.Value), true, nil
}

func (k *KV) Put(ctx context.Context, key string, value []byte) error {
	ctx, span := tracer.Start(ctx, "postgres.kv.Put",
		trace.WithAttributes(attribute.String("db.key", key)))
	defer span.End()

	entry := &KVEntry{Key: key, Value: string(value), UpdatedAt: time.Now()}
	err := k.client.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(entry).Error
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (k *KV) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "postgres.kv.Delete",
		trace.WithAttributes(attribute.String("db.key", key)))
	defer span.End()

	err := k.client.db.WithContext(ctx).Where("key = ?", key).Delete(&KVEntry{}).Error
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (k *KV) Ping(ctx context.Context) error {
	return k.client.Ping(ctx)
}

func (k *KV) Close() error {
	return k.client.Close()
}

func (k *KV) Driver() string { return "postgres" }
