package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceSetGet(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	defer svc.Close()

	ctx := context.Background()
	err := svc.Set(ctx, "quota:usage:1", []byte(`{"total":100}`), time.Minute)
	require.NoError(t, err)

	value, ok := svc.Get(ctx, "quota:usage:1")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"total":100}`), value)

	_, ok = svc.Get(ctx, "quota:usage:2")
	assert.False(t, ok)
}

func TestServiceExpiry(t *testing.T) {
	svc := NewService(ServiceConfig{
		Capacity:        8,
		DefaultTTL:      time.Minute,
		CleanupInterval: time.Hour,
	})
	defer svc.Close()

	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, "short", []byte("v"), 10*time.Millisecond))

	_, ok := svc.Get(ctx, "short")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = svc.Get(ctx, "short")
	assert.False(t, ok, "expired entry should not be returned")
}

func TestServiceInvalidate(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	defer svc.Close()

	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, "quota:usage:7", []byte("v"), time.Minute))
	require.NoError(t, svc.Invalidate(ctx, "quota:usage:7"))

	_, ok := svc.Get(ctx, "quota:usage:7")
	assert.False(t, ok)

	// Invalidating a missing key is a no-op.
	assert.NoError(t, svc.Invalidate(ctx, "quota:usage:7"))
}

func TestLRUEviction(t *testing.T) {
	lru := NewLRUCache(2, time.Minute)

	lru.Set("a", []byte("1"), time.Minute)
	lru.Set("b", []byte("2"), time.Minute)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := lru.Get("a")
	require.True(t, ok)

	lru.Set("c", []byte("3"), time.Minute)

	_, ok = lru.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = lru.Get("a")
	assert.True(t, ok)
	_, ok = lru.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, lru.Len())
}

func TestLRUPurgeExpired(t *testing.T) {
	lru := NewLRUCache(8, time.Minute)

	lru.Set("stale", []byte("1"), time.Millisecond)
	lru.Set("fresh", []byte("2"), time.Minute)

	time.Sleep(5 * time.Millisecond)
	removed := lru.PurgeExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, lru.Len())
}
