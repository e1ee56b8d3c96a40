package assoc

import (
	"context"
	"slices"
	"sync"
)

// Memory is a Store held entirely in memory.
type Memory struct {
	mu   sync.RWMutex
	recs map[Key][]byte
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{recs: make(map[Key][]byte)}
}

func (m *Memory) Read(ctx context.Context, key Key) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.recs[key]), nil
}

func (m *Memory) Write(ctx context.Context, key Key, rec []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[key] = slices.Clone(rec)
	return nil
}

func (m *Memory) Insert(ctx context.Context, key Key, rec []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[key]; ok {
		return false, nil
	}
	m.recs[key] = slices.Clone(rec)
	return true, nil
}

func (m *Memory) Remove(ctx context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, key)
	return nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.recs)
}
