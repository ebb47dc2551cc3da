// Package localstore はサーバーに接続できない場合にクライアント側で記録を保持する
// キー・バリューストアを提供する。
package localstore

import (
	"context"
	"sync"
)

// KV は文字列のキーと値を保存するストア。
type KV interface {
	// Get はキーの値を返す。キーが無い場合はfalseを返す。
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryKV はプロセス内のみで保持するKV。
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryKV はMemoryKVを生成する。
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
