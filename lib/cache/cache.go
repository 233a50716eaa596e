// Package cache is a read-through TTL cache used in front of "get" style API
// calls. Eviction is least-recently-used once capacity is reached; expiry is
// strictly after the TTL and checked on read, so a stale entry is never
// returned.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache wraps an expirable LRU keyed by resource id. Each client owns its
// own instances; there is no process-wide shared cache.
type Cache[V any] struct {
	lru *expirable.LRU[string, V]
}

// New creates a cache holding at most size entries, each valid for ttl.
func New[V any](ttl time.Duration, size int) *Cache[V] {
	return &Cache[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

// Get returns the cached value for key, or ok=false when the key is absent
// or its entry has outlived the TTL.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

// Put stores a value, evicting the least-recently-accessed entry when the
// cache is full.
func (c *Cache[V]) Put(key string, v V) {
	c.lru.Add(key, v)
}

// Remove drops a single key, for invalidation after a mutating call.
func (c *Cache[V]) Remove(key string) {
	c.lru.Remove(key)
}

// Len is the number of live entries.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// Purge drops all entries.
func (c *Cache[V]) Purge() {
	c.lru.Purge()
}
