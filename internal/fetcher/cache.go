package fetcher

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache holds fetched list bodies for a bounded time. A nil *Cache is valid
// and caches nothing.
type Cache struct {
	lru *expirable.LRU[string, []byte]
}

// NewCache creates a cache of at most size entries that expire after ttl
func NewCache(size int, ttl time.Duration) *Cache {
	return &Cache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns a cached body
func (c *Cache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

// Add stores a body
func (c *Cache) Add(key string, data []byte) {
	if c == nil {
		return
	}
	c.lru.Add(key, data)
}

// Len returns the number of live entries
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
