package directions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wireless-wizards/saferoute/internal/config"
	"github.com/wireless-wizards/saferoute/internal/safety"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const orsResponse = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"properties": {"summary": {"distance": 5200.0, "duration": 780.0}},
			"geometry": {"type": "LineString", "coordinates": [[77.2090, 28.6139], [77.2100, 28.6200], [77.2150, 28.6300]]}
		},
		{
			"type": "Feature",
			"properties": {"summary": {"distance": 6100.0, "duration": 900.0}},
			"geometry": {"type": "LineString", "coordinates": [[77.2090, 28.6139], [77.1900, 28.6250], [77.2150, 28.6300]]}
		}
	]
}`

func testConfig(baseURL string) config.DirectionsConfig {
	return config.DirectionsConfig{
		APIKey:        "test-key",
		BaseURL:       baseURL,
		TimeoutSecs:   5,
		Alternatives:  2,
		WeightFactor:  1.4,
		ShareFactor:   0.6,
		RatePerSecond: 100,
		CacheSize:     16,
		CacheTTLMins:  10,
	}
}

func TestClient_Routes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/directions/driving-car/geojson", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		w.Write([]byte(orsResponse)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	routes, err := c.Routes(context.Background(), safety.Point{Lat: 28.6139, Lon: 77.2090}, safety.Point{Lat: 28.6300, Lon: 77.2150}, 0)
	require.NoError(t, err)
	require.Len(t, routes, 2)

	assert.InDelta(t, 5.2, routes[0].DistanceKM, 1e-9)
	assert.InDelta(t, 13.0, routes[0].DurationMinutes, 1e-9)
	require.Len(t, routes[0].Coordinates, 3)
	assert.InDelta(t, 28.6139, routes[0].Coordinates[0].Lat, 1e-9)
	assert.InDelta(t, 77.2090, routes[0].Coordinates[0].Lon, 1e-9)
}

func TestClient_Routes_CachesByEndpoints(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(orsResponse)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	start := safety.Point{Lat: 28.6139, Lon: 77.2090}
	end := safety.Point{Lat: 28.6300, Lon: 77.2150}

	for range 3 {
		routes, err := c.Routes(context.Background(), start, end, 0)
		require.NoError(t, err)
		assert.Len(t, routes, 2)
	}
	assert.Equal(t, int64(1), calls.Load())

	stats := c.CacheStats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestClient_Routes_NoAPIKey(t *testing.T) {
	cfg := testConfig("http://unused.invalid")
	cfg.APIKey = ""

	c := NewClient(cfg)
	routes, err := c.Routes(context.Background(), safety.Point{Lat: 28.6, Lon: 77.2}, safety.Point{Lat: 28.7, Lon: 77.1}, 0)
	require.NoError(t, err)
	assert.Nil(t, routes)
}

func TestClient_Routes_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.Routes(context.Background(), safety.Point{Lat: 28.6, Lon: 77.2}, safety.Point{Lat: 28.7, Lon: 77.1}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_Routes_SkipsNonLineStringFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"type": "FeatureCollection",
			"features": [
				{"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [77.2, 28.6]}}
			]
		}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	routes, err := c.Routes(context.Background(), safety.Point{Lat: 28.6, Lon: 77.2}, safety.Point{Lat: 28.7, Lon: 77.1}, 0)
	require.NoError(t, err)
	assert.Empty(t, routes)
}
