// Package storage 提供按命名空间整体保存状态快照的 KV 持久化
package storage

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("materialhub/storage")

// KV 快照存储能力：每个命名空间保存一份完整状态，Save 整体替换
type KV interface {
	// Load 未找到时返回 found=false 且 err=nil
	Load(ctx context.Context, namespace string) (data []byte, found bool, err error)
	Save(ctx context.Context, namespace string, data []byte) error
}

// MemoryKV 进程内实现，用于测试与 storage.backend=memory
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Load(_ context.Context, namespace string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[namespace]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Save(_ context.Context, namespace string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[namespace] = append([]byte(nil), data...)
	return nil
}
