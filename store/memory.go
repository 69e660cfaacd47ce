package store

import (
	"context"
	"sync"
	"time"

	"mealsuggest"
)

type kvEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-memory Store for tests and embedded use. Expiry is checked
// on read; nothing is reaped in the background.
type Memory struct {
	mu          sync.RWMutex
	sessions    map[string]*mealsuggest.Session
	suggestions map[string]*mealsuggest.MealSuggestion
	kv          map[string]kvEntry
	now         func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions:    make(map[string]*mealsuggest.Session),
		suggestions: make(map[string]*mealsuggest.MealSuggestion),
		kv:          make(map[string]kvEntry),
		now:         time.Now,
	}
}

// NewMemoryWithClock creates an in-memory store with an injected clock.
func NewMemoryWithClock(now func() time.Time) *Memory {
	m := NewMemory()
	m.now = now
	return m
}

func (m *Memory) SaveSession(ctx context.Context, s *mealsuggest.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *Memory) GetSession(ctx context.Context, id string) (*mealsuggest.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.Expired(m.now()) {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) UpdateSession(ctx context.Context, s *mealsuggest.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.sessions[s.ID]
	if !ok {
		return ErrNotFound
	}
	cp := *s
	// Remaining TTL is preserved; the stored expiry wins.
	cp.ExpiresAt = existing.ExpiresAt
	m.sessions[s.ID] = &cp
	return nil
}

func (m *Memory) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	for sid, sug := range m.suggestions {
		if sug.SessionID == id {
			delete(m.suggestions, sid)
		}
	}
	return nil
}

func (m *Memory) SaveSuggestions(ctx context.Context, suggestions []mealsuggest.MealSuggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range suggestions {
		cp := suggestions[i]
		m.suggestions[cp.ID] = &cp
	}
	return nil
}

func (m *Memory) GetSuggestion(ctx context.Context, id string) (*mealsuggest.MealSuggestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.suggestions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) UpdateSuggestion(ctx context.Context, s *mealsuggest.MealSuggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.suggestions[s.ID]; !ok {
		return ErrNotFound
	}
	cp := *s
	m.suggestions[s.ID] = &cp
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.kv[key]
	if !ok || !m.now().Before(e.expiresAt) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = kvEntry{value: value, expiresAt: m.now().Add(ttl)}
	return nil
}
