package directions

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wireless-wizards/saferoute/internal/safety"
)

// routeCache is a concurrent-safe LRU cache for fetched route geometries
// with TTL expiration. Route queries repeat heavily (same origin and
// destination pairs), and upstream calls are rate limited, so hits matter.
type routeCache struct {
	mu         sync.RWMutex
	entries    map[string]*routeCacheEntry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	ttl        time.Duration
	hits       atomic.Int64
	misses     atomic.Int64
}

type routeCacheEntry struct {
	routes    []safety.Route
	createdAt time.Time
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

func newRouteCache(maxEntries int, ttl time.Duration) *routeCache {
	return &routeCache{
		entries:    make(map[string]*routeCacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// routeKey builds the cache key for an origin/destination pair. Five
// decimal places is about a meter, finer than route geometry varies.
func routeKey(start, end safety.Point, alternatives int) string {
	return fmt.Sprintf("%.5f,%.5f|%.5f,%.5f|%d", start.Lat, start.Lon, end.Lat, end.Lon, alternatives)
}

// get retrieves cached routes. Returns nil, false on miss or expiration.
func (c *routeCache) get(key string) ([]safety.Route, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	if time.Since(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.misses.Add(1)
		return nil, false
	}

	// Move to back (most recently used).
	c.removeFromOrder(key)
	c.order = append(c.order, key)
	c.hits.Add(1)
	return entry.routes, true
}

// put stores routes, evicting the oldest entry if at capacity.
func (c *routeCache) put(key string, routes []safety.Route) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = &routeCacheEntry{routes: routes, createdAt: time.Now()}
		c.removeFromOrder(key)
		c.order = append(c.order, key)
		return
	}

	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &routeCacheEntry{routes: routes, createdAt: time.Now()}
	c.order = append(c.order, key)
}

// Stats returns cache performance statistics.
func (c *routeCache) Stats() CacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	maxEntries := c.maxEntries
	c.mu.RUnlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Entries:    entries,
		MaxEntries: maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

func (c *routeCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
