package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the default in-process Store. Sessions live for the
// process lifetime; there is no eviction or capacity bound.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

// Get implements Store. The returned session is a copy, so callers
// can mutate it freely before writing it back.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// Put implements Store.
func (m *MemoryStore) Put(ctx context.Context, id string, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	cp.Identifier = id
	cp.UpdatedAt = time.Now().UTC()
	m.sessions[id] = &cp
	return nil
}

// Update implements Store. fn runs under the store lock, so
// concurrent Updates for the same identifier serialize instead of
// losing writes.
func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*Session) *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cur *Session
	if s, ok := m.sessions[id]; ok {
		cp := *s
		cur = &cp
	}

	next := fn(cur)
	if next == nil {
		return nil
	}
	next.Identifier = id
	next.UpdatedAt = time.Now().UTC()
	m.sessions[id] = next
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = nil
	return nil
}
