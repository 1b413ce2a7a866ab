// Package cache defines the recipient-set cache consumed by courier.
//
// Implementations store deduplicated address lists under a resolution-scope
// key with a time-to-live. An empty list is a valid cached value (negative
// caching); implementations must preserve the distinction between an empty
// cached value and a missing key.
package cache

import (
	"context"
	"time"
)

// Cache is a typed facade over a key/value store with per-entry TTL.
// Implementations must be safe for concurrent use.
//
// Cache failures are advisory: courier treats any Get or Set error as a
// cache miss and proceeds to the upstream source.
type Cache interface {
	// Get returns the cached value for key. The second return value is
	// false when the key is absent or expired.
	Get(ctx context.Context, key string) ([]string, bool, error)

	// Set stores vals under key for ttl. A ttl of zero or less stores the
	// entry without expiry.
	Set(ctx context.Context, key string, vals []string, ttl time.Duration) error
}
