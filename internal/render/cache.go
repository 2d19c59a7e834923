package render

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache holds rendered documents keyed by kind ("map", "card", "page") and
// the fingerprint of the model they were rendered from. Entries are evicted
// least recently used first at capacity and expire after the TTL. Safe for
// concurrent use.
type Cache struct {
	lru        *expirable.LRU[cacheKey, []byte]
	maxEntries int

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type cacheKey struct {
	kind        string
	fingerprint string
}

// CacheStats contains cache performance statistics. Evictions counts entries
// dropped for capacity or expiry.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	Evictions  int64   `json:"evictions"`
	HitRate    float64 `json:"hit_rate"`
}

// NewCache creates a Cache with the given capacity and TTL. A capacity of
// zero disables storing; a zero TTL never expires entries.
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{maxEntries: maxEntries}
	if maxEntries > 0 {
		c.lru = expirable.NewLRU[cacheKey, []byte](maxEntries, func(cacheKey, []byte) {
			c.evictions.Add(1)
		}, ttl)
	}
	return c
}

// Get returns the cached document, or nil on a miss or an expired entry.
func (c *Cache) Get(kind, fingerprint string) []byte {
	if c.lru == nil {
		c.misses.Add(1)
		return nil
	}
	data, ok := c.lru.Get(cacheKey{kind, fingerprint})
	if !ok {
		c.misses.Add(1)
		return nil
	}
	c.hits.Add(1)
	return data
}

// Put stores a document, evicting the least recently used entry at capacity.
func (c *Cache) Put(kind, fingerprint string, data []byte) {
	if c.lru == nil {
		return
	}
	c.lru.Add(cacheKey{kind, fingerprint}, data)
}

// Stats returns cache performance statistics.
func (c *Cache) Stats() CacheStats {
	var entries int
	if c.lru != nil {
		entries = c.lru.Len()
	}

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Entries:    entries,
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		Evictions:  c.evictions.Load(),
		HitRate:    hitRate,
	}
}
