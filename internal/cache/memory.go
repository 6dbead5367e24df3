package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/swiftguard/internal/database"
)

// MemoryBackend is an in-process Backend. The classify command uses it when
// results must not be persisted.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]database.Entry
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]database.Entry)}
}

// Get returns the values present for keys.
func (m *MemoryBackend) Get(_ context.Context, keys ...string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if e, ok := m.entries[k]; ok {
			out[k] = append([]byte(nil), e.Value...)
		}
	}
	return out, nil
}

// Set stores values.
func (m *MemoryBackend) Set(_ context.Context, values map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for k, v := range values {
		m.entries[k] = database.Entry{Key: k, Value: append([]byte(nil), v...), UpdatedAt: now}
	}
	return nil
}

// Remove deletes keys. Missing keys are ignored.
func (m *MemoryBackend) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// List returns entries whose key starts with prefix, ordered by key.
func (m *MemoryBackend) List(_ context.Context, prefix string) ([]database.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []database.Entry
	for k, e := range m.entries {
		if strings.HasPrefix(k, prefix) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
