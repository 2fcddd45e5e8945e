package storage

import (
	"context"
	"sync"
)

// Ensure MemoryBackend implements Backend.
var _ Backend = (*MemoryBackend)(nil)

// MemoryBackend keeps values in a process-local map. It serves as the
// quota-failure fallback and as the test backend. Durability is lost but
// in-session data survives.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// Get returns the value for key.
func (m *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set writes the value for key.
func (m *MemoryBackend) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Delete removes the key.
func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Close is a no-op.
func (m *MemoryBackend) Close() error { return nil }
