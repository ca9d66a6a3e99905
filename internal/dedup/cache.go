package dedup

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Cache remembers keys for a fixed TTL. Safe for concurrent use.
type Cache struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewCache creates a dedup cache; expired keys are purged every 2×ttl
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// Seen reports whether key was marked within the TTL
func (c *Cache) Seen(key string) bool {
	_, exists := c.cache.Get(key)
	return exists
}

// Mark remembers key
func (c *Cache) Mark(key string) {
	c.cache.Set(key, time.Now(), cache.DefaultExpiration)
}

// Len returns the number of remembered keys, including expired ones not yet purged
func (c *Cache) Len() int {
	return c.cache.ItemCount()
}

// TTL returns how long keys are remembered
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
