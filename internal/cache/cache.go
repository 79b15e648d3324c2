// internal/cache/cache.go
package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryDateCache keeps candidate dates in process memory. Entries expire
// after ttl; a zero ttl keeps them for the life of the process.
type MemoryDateCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	date    time.Time
	expires time.Time
}

// NewMemoryDateCache creates an in-memory cache.
func NewMemoryDateCache(ttl time.Duration) *MemoryDateCache {
	return &MemoryDateCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// GetDate returns the cached date for url.
func (c *MemoryDateCache) GetDate(_ context.Context, url string) (time.Time, bool) {
	c.mu.RLock()
	e, ok := c.entries[url]
	c.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.mu.Lock()
		delete(c.entries, url)
		c.mu.Unlock()
		return time.Time{}, false
	}
	return e.date, true
}

// SetDate stores the date resolved for url.
func (c *MemoryDateCache) SetDate(_ context.Context, url string, date time.Time) {
	e := memoryEntry{date: date}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[url] = e
	c.mu.Unlock()
}

func (c *MemoryDateCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close is a no-op.
func (c *MemoryDateCache) Close() error { return nil }
