package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]Artifact
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Artifact)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.rows[key]
	if !ok {
		return nil, nil
	}
	a = clone(a)
	return &a, nil
}

func (m *MemoryStore) Upsert(ctx context.Context, a *Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := clone(*a)
	if existing, ok := m.rows[a.CacheKey]; ok {
		row.ID = existing.ID
		row.AccessCount = existing.AccessCount
	}
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	m.rows[a.CacheKey] = row
	a.ID, a.AccessCount = row.ID, row.AccessCount
	return nil
}

func (m *MemoryStore) Touch(ctx context.Context, key string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.rows[key]; ok {
		a.AccessCount++
		a.LastAccessedAt = at
		m.rows[key] = a
	}
	return nil
}

func (m *MemoryStore) List(ctx context.Context, scope string, limit int) ([]Artifact, error) {
	all, _ := m.All(ctx)
	out := all[:0]
	for _, a := range all {
		if scope == "" || a.ScopeID == scope {
			out = append(out, a)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, a := range m.rows {
		if a.Expired(now) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) DeleteScope(ctx context.Context, scope string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, a := range m.rows {
		if scope == "" || a.ScopeID == scope {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

// All returns every row, newest first
func (m *MemoryStore) All(ctx context.Context) ([]Artifact, error) {
	m.mu.RLock()
	out := make([]Artifact, 0, len(m.rows))
	for _, a := range m.rows {
		out = append(out, clone(a))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].GeneratedAt.After(out[j].GeneratedAt)
		}
		return out[i].CacheKey < out[j].CacheKey
	})
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

func clone(a Artifact) Artifact {
	a.Data = append([]byte(nil), a.Data...)
	if a.Parameters != nil {
		params := make(map[string]string, len(a.Parameters))
		for k, v := range a.Parameters {
			params[k] = v
		}
		a.Parameters = params
	}
	return a
}
