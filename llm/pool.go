package llm

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultPoolSize = 4
	defaultPoolTTL  = 30 * time.Minute
)

// ClientFactory builds a backend client for a pool key. It is called under
// the pool lock, so it must not block on network I/O.
type ClientFactory func(key string) (Backend, error)

type pooledClient struct {
	backend  Backend
	builtAt  time.Time
	lastUsed time.Time
}

// ClientPool caches backend clients by key with a bounded size and idle TTL.
// Expired entries are rebuilt on access; when full, the least recently used
// entry is evicted.
type ClientPool struct {
	mu      sync.Mutex
	factory ClientFactory
	entries map[string]*pooledClient
	size    int
	ttl     time.Duration
	now     func() time.Time
}

func NewClientPool(factory ClientFactory, size int, ttl time.Duration) *ClientPool {
	if size <= 0 {
		size = defaultPoolSize
	}
	if ttl <= 0 {
		ttl = defaultPoolTTL
	}
	return &ClientPool{
		factory: factory,
		entries: make(map[string]*pooledClient, size),
		size:    size,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached client for key, building one through the factory
// when absent or expired.
func (p *ClientPool) Get(key string) (Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()

	if entry, ok := p.entries[key]; ok {
		if now.Sub(entry.lastUsed) < p.ttl {
			entry.lastUsed = now
			return entry.backend, nil
		}
		slog.Debug("LLM_POOL: evicting expired client", "key", key, "idle", now.Sub(entry.lastUsed))
		delete(p.entries, key)
	}

	backend, err := p.factory(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build client for %q: %w", key, err)
	}

	if len(p.entries) >= p.size {
		p.evictOldestLocked()
	}
	p.entries[key] = &pooledClient{backend: backend, builtAt: now, lastUsed: now}
	return backend, nil
}

// Len reports the number of cached clients.
func (p *ClientPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func (p *ClientPool) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range p.entries {
		if oldestKey == "" || entry.lastUsed.Before(oldest) {
			oldestKey = key
			oldest = entry.lastUsed
		}
	}
	if oldestKey != "" {
		slog.Debug("LLM_POOL: evicting least recently used client", "key", oldestKey)
		delete(p.entries, oldestKey)
	}
}
