package redis

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// KV Redis 键值存储，值以字符串形式保存且不过期
type KV struct {
	client *Client
}

// NewKV 创建键值存储
func NewKV(client *Client) *KV {
	return &KV{client: client}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := k.client.Get(ctx, key)
	if IsNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(val), true, nil
}

func (k *KV) Put(ctx context.Context, key string, value []byte) error {
	return k.client.Set(ctx, key, value, 0)
}

func (k *KV) Delete(ctx context.Context, key string) error {
	return k.client.Del(ctx, key)
}

func (k *KV) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "redis.kv.Ping",
		trace.WithAttributes(attribute.String("redis.driver", k.Driver())))
	defer span.End()
	return k.client.HealthCheck(ctx)
}

func (k *KV) Close() error {
	return k.client.Close()
}

func (k *KV) Driver() string { return "redis" }
