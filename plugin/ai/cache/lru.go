package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache is an LRU cache with per-entry TTL.
type LRUCache struct {
	capacity   int
	defaultTTL time.Duration
	mu         sync.Mutex

	items map[string]*item
	order *list.List
}

type item struct {
	key       string
	value     []byte
	expiresAt time.Time
	element   *list.Element
}

// NewLRUCache creates a new LRU cache.
func NewLRUCache(capacity int, defaultTTL time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = 1024
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	return &LRUCache{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		items:      make(map[string]*item),
		order:      list.New(),
	}
}

// Get retrieves a value. Expired entries are removed on access.
func (c *LRUCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(it.expiresAt) {
		c.remove(it)
		return nil, false
	}

	c.order.MoveToFront(it.element)
	return it.value, true
}

// Set stores a value. A non-positive ttl uses the default TTL.
func (c *LRUCache) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if it, ok := c.items[key]; ok {
		it.value = value
		it.expiresAt = time.Now().Add(ttl)
		c.order.MoveToFront(it.element)
		return
	}

	for len(c.items) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*item))
	}

	it := &item{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	it.element = c.order.PushFront(it)
	c.items[key] = it
}

// Delete removes the entry for key, if present.
func (c *LRUCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if it, ok := c.items[key]; ok {
		c.remove(it)
	}
}

// Len returns the number of entries in the cache.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// PurgeExpired removes all expired entries and returns how many were removed.
func (c *LRUCache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var expired []*item
	for _, it := range c.items {
		if now.After(it.expiresAt) {
			expired = append(expired, it)
		}
	}
	for _, it := range expired {
		c.remove(it)
	}
	return len(expired)
}

// remove must be called with the lock held.
func (c *LRUCache) remove(it *item) {
	c.order.Remove(it.element)
	delete(c.items, it.key)
}
