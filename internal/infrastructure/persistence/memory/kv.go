// Package memory 提供进程内键值后端，用于测试与演示
package memory

import (
	"context"
	"sync"
)

// KV 内存键值存储
type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewKV 创建内存键值存储
func NewKV() *KV {
	return &KV{data: make(map[string][]byte)}
}

func (m *KV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (m *KV) Put(_ context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	m.mu.Lock()
	m.data[key] = cp
	m.mu.Unlock()
	return nil
}

func (m *KV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *KV) Ping(context.Context) error { return nil }

func (m *KV) Close() error { return nil }

func (m *KV) Driver() string { return "memory" }
