package directions

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wireless-wizards/saferoute/internal/safety"
)

func sampleRoutes(km float64) []safety.Route {
	return []safety.Route{{DistanceKM: km}}
}

func TestRouteCache_PutGet(t *testing.T) {
	c := newRouteCache(4, time.Minute)

	key := routeKey(safety.Point{Lat: 28.6139, Lon: 77.2090}, safety.Point{Lat: 28.7, Lon: 77.1}, 2)
	c.put(key, sampleRoutes(5.2))

	got, ok := c.get(key)
	require.True(t, ok)
	assert.InDelta(t, 5.2, got[0].DistanceKM, 1e-9)
}

func TestRouteCache_Miss(t *testing.T) {
	c := newRouteCache(4, time.Minute)

	_, ok := c.get("nope")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestRouteCache_TTLExpiry(t *testing.T) {
	c := newRouteCache(4, time.Nanosecond)

	c.put("k", sampleRoutes(1))
	time.Sleep(2 * time.Millisecond)

	_, ok := c.get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Stats().Entries)
}

func TestRouteCache_EvictsOldest(t *testing.T) {
	c := newRouteCache(2, time.Minute)

	c.put("a", sampleRoutes(1))
	c.put("b", sampleRoutes(2))
	c.put("c", sampleRoutes(3))

	_, ok := c.get("a")
	assert.False(t, ok)
	_, ok = c.get("b")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestRouteCache_GetRefreshesLRUOrder(t *testing.T) {
	c := newRouteCache(2, time.Minute)

	c.put("a", sampleRoutes(1))
	c.put("b", sampleRoutes(2))

	_, ok := c.get("a")
	require.True(t, ok)

	// "b" is now oldest and should be evicted.
	c.put("c", sampleRoutes(3))

	_, ok = c.get("b")
	assert.False(t, ok)
	_, ok = c.get("a")
	assert.True(t, ok)
}

func TestRouteCache_Stats(t *testing.T) {
	c := newRouteCache(8, time.Minute)

	for i := range 4 {
		c.put(fmt.Sprintf("k%d", i), sampleRoutes(float64(i)))
	}
	c.get("k0")
	c.get("k1")
	c.get("missing")

	stats := c.Stats()
	assert.Equal(t, 4, stats.Entries)
	assert.Equal(t, 8, stats.MaxEntries)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
}

func TestRouteKey_Stable(t *testing.T) {
	a := routeKey(safety.Point{Lat: 28.61390001, Lon: 77.209}, safety.Point{Lat: 28.7, Lon: 77.1}, 2)
	b := routeKey(safety.Point{Lat: 28.61390002, Lon: 77.209}, safety.Point{Lat: 28.7, Lon: 77.1}, 2)
	assert.Equal(t, a, b)

	c := routeKey(safety.Point{Lat: 28.6139, Lon: 77.209}, safety.Point{Lat: 28.7, Lon: 77.1}, 3)
	assert.NotEqual(t, a, c)
}
