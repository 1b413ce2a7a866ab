// Package redis provides a Redis-backed implementation of cache.Cache.
//
// Values are stored as JSON arrays under a configurable key prefix, with
// expiry delegated to Redis TTLs.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/courierkit/courier/cache"
)

// DefaultKeyPrefix namespaces courier entries within a shared Redis.
const DefaultKeyPrefix = "courier:recipients:"

// Cache is a Redis-backed cache.Cache implementation.
// Compatible with *redis.Client, *redis.ClusterClient, and redis.UniversalClient.
type Cache struct {
	client redis.UniversalClient
	prefix string
}

// Ensure Cache implements cache.Cache.
var _ cache.Cache = (*Cache)(nil)

// Option configures a Redis cache.
type Option func(*Cache)

// WithKeyPrefix overrides the key prefix. Default is DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// New creates a Redis cache using the given client.
// The client is externally owned; the cache never closes it.
func New(client redis.UniversalClient, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		prefix: DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key. A missing or expired key is a miss,
// not an error.
func (c *Cache) Get(ctx context.Context, key string) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var vals []string
	if err := json.Unmarshal([]byte(raw), &vals); err != nil {
		return nil, false, fmt.Errorf("redis decode %q: %w", key, err)
	}
	if vals == nil {
		vals = []string{}
	}
	return vals, true, nil
}

// Set stores vals under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, vals []string, ttl time.Duration) error {
	if vals == nil {
		vals = []string{}
	}
	raw, err := json.Marshal(vals)
	if err != nil {
		return fmt.Errorf("redis encode %q: %w", key, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
