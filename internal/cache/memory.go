package cache

import (
	"context"
	"sync/atomic"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store backed by go-cache
type MemoryStore struct {
	cache  *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryStore creates a new memory store
func NewMemoryStore(config *Config) *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(config.DefaultTTL, config.CleanupInterval),
	}
}

// Get retrieves a value from the cache
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if val, found := m.cache.Get(key); found {
		m.hits.Add(1)
		return val.([]byte), true, nil
	}
	m.misses.Add(1)
	return nil, false, nil
}

// Set stores a value with the default TTL
func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.cache.SetDefault(key, value)
	return nil
}

// Clear removes all values from the cache
func (m *MemoryStore) Clear(context.Context) error {
	m.cache.Flush()
	return nil
}

// Stats returns hit and miss counters
func (m *MemoryStore) Stats() Stats {
	return newStats(m.hits.Load(), m.misses.Load())
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
