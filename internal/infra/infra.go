// Package infra provides shared infrastructure used by the data sources:
// an expiring cache, a paced HTTP client, and tolerant JSON decoding.
package infra

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// --- Expiring cache ---

// Cache is a thread-safe in-memory cache with a default TTL.
type Cache struct {
	store *gocache.Cache
	ttl   time.Duration
}

// NewCache creates a cache whose entries expire after ttl. Expired entries
// are purged every 2*ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		store: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Get retrieves a value. Returns nil, false if not found or expired.
func (c *Cache) Get(key string) (any, bool) {
	return c.store.Get(key)
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.store.Set(key, value, gocache.DefaultExpiration)
}

// SetWithTTL stores a value with a custom TTL.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.store.Set(key, value, ttl)
}

// Invalidate removes a key.
func (c *Cache) Invalidate(key string) {
	c.store.Delete(key)
}

// Flush removes all entries.
func (c *Cache) Flush() {
	c.store.Flush()
}

// Len returns the number of entries, expired ones included until purged.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

// TTL returns the default expiry.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
