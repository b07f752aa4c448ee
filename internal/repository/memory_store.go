package repository

import (
	"context"
	"sync"

	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

// MemoryStore keeps records in process memory. Used for tests and ephemeral deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore constructs an empty in-memory backend.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Read returns a copy of the stored value.
func (m *MemoryStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	if !ok {
		return nil, appErrors.ErrStoreMiss
	}
	return append([]byte(nil), value...), nil
}

// Write replaces the stored value.
func (m *MemoryStore) Write(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}
