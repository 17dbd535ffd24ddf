// Package cache provides a small TTL cache used by the quota tracker and
// other per-company read paths. The interface is deliberately narrow so the
// in-process implementation can be swapped for a distributed cache without
// touching business logic.
package cache

import (
	"context"
	"time"
)

// CacheService defines the cache service interface.
type CacheService interface {
	// Get retrieves a value from cache.
	// Returns the value and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in cache with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate removes the entry for key. Removing a missing key is a no-op.
	Invalidate(ctx context.Context, key string) error
}
