package cashflow

import (
	"context"
	"sync"
	"time"
)

// AccountSetCache stores resolved cash-account id sets. The cache is owned
// by the caller and explicitly keyed, so one engine instance can serve
// concurrent callers without leaking one request's resolution into
// another's. Entries are only ever removed through Delete; there is no
// implicit refresh.
type AccountSetCache interface {
	Get(ctx context.Context, key string) ([]int64, bool)
	Set(ctx context.Context, key string, ids []int64, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// MemoryAccountSetCache is a process-local AccountSetCache.
type MemoryAccountSetCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	ids       []int64
	expiresAt time.Time
}

// NewMemoryAccountSetCache builds an empty in-memory cache.
func NewMemoryAccountSetCache() *MemoryAccountSetCache {
	return &MemoryAccountSetCache{entries: make(map[string]memoryEntry)}
}

// Get implements AccountSetCache.
func (c *MemoryAccountSetCache) Get(_ context.Context, key string) ([]int64, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.Delete(context.Background(), key)
		return nil, false
	}
	return append([]int64(nil), entry.ids...), true
}

// Set implements AccountSetCache. A zero ttl keeps the entry until Delete.
func (c *MemoryAccountSetCache) Set(_ context.Context, key string, ids []int64, ttl time.Duration) {
	entry := memoryEntry{ids: append([]int64(nil), ids...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Delete implements AccountSetCache.
func (c *MemoryAccountSetCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
