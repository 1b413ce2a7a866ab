// Package memory provides an in-process implementation of cache.Cache.
//
// Intended for tests and single-process deployments. Expired entries are
// dropped lazily on read; there is no background sweeper.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/courierkit/courier/cache"
)

// entry is a cached value with its expiry. A zero expiry never expires.
type entry struct {
	vals      []string
	expiresAt time.Time
}

// Cache is an in-memory cache.Cache implementation.
// Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	// now is replaceable for tests.
	now func() time.Time
}

// Ensure Cache implements cache.Cache.
var _ cache.Cache = (*Cache)(nil)

// New creates an empty in-memory cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached value for key, if present and not expired.
func (c *Cache) Get(_ context.Context, key string) ([]string, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have renewed it.
		if cur, ok := c.entries[key]; ok && !cur.expiresAt.IsZero() && !c.now().Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	out := make([]string, len(e.vals))
	copy(out, e.vals)
	return out, true, nil
}

// Set stores vals under key for ttl.
func (c *Cache) Set(_ context.Context, key string, vals []string, ttl time.Duration) error {
	cp := make([]string, len(vals))
	copy(cp, vals)

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry{vals: cp, expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired entries that
// have not been swept yet. Useful in tests.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
