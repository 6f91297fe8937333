// Package storage is the client's persistent key-value store.
//
// The session layer only ever needs three operations on opaque string blobs,
// so the interface stays that small. Backends:
//   - Memory            → tests and the --ephemeral CLI mode
//   - storage/sqlite    → a single-file SQLite database (default)
//   - storage/bolt      → a BoltDB file
//
// All backends share one contract: Get on a missing key returns ("", false, nil),
// Remove on a missing key is not an error.
package storage

import (
	"context"
	"sync"
)

// Store is the persistent key-value storage the session manager writes to.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Memory is an in-process Store. Its contents vanish when the process exits.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Close() error { return nil }
