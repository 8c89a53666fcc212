package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"FakeNewsDetector/internal/ports"
)

// MemoryStore keeps encoded artifacts in a map; values still pass through JSON
// so callers observe the same round trip as with FileStore.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

var _ ports.ArtifactStore = (*MemoryStore)(nil)

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string][]byte{}}
}

// Put implements ports.ArtifactStore.
func (m *MemoryStore) Put(ctx context.Context, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	m.mu.Lock()
	m.items[key] = payload
	m.mu.Unlock()
	return nil
}

// Get implements ports.ArtifactStore.
func (m *MemoryStore) Get(ctx context.Context, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	payload, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ports.ErrArtifactNotFound, key)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Has implements ports.ArtifactStore.
func (m *MemoryStore) Has(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	_, ok := m.items[key]
	m.mu.RUnlock()
	return ok, nil
}

// Keys lists stored keys; used by tests to assert which artifacts a stage wrote.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	return keys
}
