package cache

import (
	"context"
	"sync"
	"time"
)

// ServiceConfig configures the cache service.
type ServiceConfig struct {
	Capacity        int           // maximum number of entries
	DefaultTTL      time.Duration // default TTL for entries
	CleanupInterval time.Duration // interval for expired entry cleanup
}

// DefaultServiceConfig returns the default cache service configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Capacity:        1024,
		DefaultTTL:      time.Minute,
		CleanupInterval: time.Minute,
	}
}

// Service implements CacheService with LRU eviction and background cleanup.
type Service struct {
	lru *LRUCache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a new cache service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1024
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		lru:    NewLRUCache(cfg.Capacity, cfg.DefaultTTL),
		ctx:    ctx,
		cancel: cancel,
	}

	s.wg.Add(1)
	go s.cleanupLoop(cfg.CleanupInterval)

	return s
}

// Close stops the cache service.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

// Get retrieves a value from cache.
func (s *Service) Get(_ context.Context, key string) ([]byte, bool) {
	return s.lru.Get(key)
}

// Set stores a value in cache.
func (s *Service) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.lru.Set(key, value, ttl)
	return nil
}

// Invalidate removes the entry for key.
func (s *Service) Invalidate(_ context.Context, key string) error {
	s.lru.Delete(key)
	return nil
}

func (s *Service) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.lru.PurgeExpired()
		}
	}
}

var _ CacheService = (*Service)(nil)
