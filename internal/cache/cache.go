// Package cache holds short-lived client-side views of backend state.
//
// Nothing here is authoritative. Entries written from mutation responses are
// optimistic and are overwritten by the next fetch.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultSize bounds the number of entries per cache.
	DefaultSize = 128

	// DefaultTTL is how long an entry is served before it must be refetched.
	DefaultTTL = 30 * time.Second
)

// Cache is a size-bounded map whose entries expire after a TTL.
type Cache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

// New creates a cache. Non-positive size or ttl fall back to the defaults.
func New[K comparable, V any](size int, ttl time.Duration) *Cache[K, V] {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[K, V]{lru: expirable.NewLRU[K, V](size, nil, ttl)}
}

// Get returns a live entry.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Put stores or replaces an entry.
func (c *Cache[K, V]) Put(key K, value V) {
	c.lru.Add(key, value)
}

// Invalidate drops an entry.
func (c *Cache[K, V]) Invalidate(key K) {
	c.lru.Remove(key)
}

// Purge drops every entry.
func (c *Cache[K, V]) Purge() {
	c.lru.Purge()
}

// Len reports the number of live entries.
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}
