// Package directions fetches candidate route geometries from the
// OpenRouteService directions API. Calls are rate limited and memoized in
// a bounded LRU cache; a missing API key degrades to zero candidates
// rather than an error.
package directions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wireless-wizards/saferoute/internal/config"
	"github.com/wireless-wizards/saferoute/internal/safety"
)

const defaultBaseURL = "https://api.openrouteservice.org"

// Client calls the ORS directions endpoint. Safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	alternatives int
	weightFactor float64
	shareFactor  float64
	limiter      *rate.Limiter
	cache        *routeCache
}

// NewClient builds a Client from config. An empty API key is allowed; the
// client then returns no candidates and the caller falls back to its
// "no routes available" path.
func NewClient(cfg config.DirectionsConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient:   &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second},
		apiKey:       cfg.APIKey,
		baseURL:      baseURL,
		alternatives: cfg.Alternatives,
		weightFactor: cfg.WeightFactor,
		shareFactor:  cfg.ShareFactor,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		cache:        newRouteCache(cfg.CacheSize, time.Duration(cfg.CacheTTLMins)*time.Minute),
	}
}

// CacheStats exposes route cache statistics.
func (c *Client) CacheStats() CacheStats {
	return c.cache.Stats()
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type orsRequest struct {
	Coordinates       [][]float64      `json:"coordinates"`
	AlternativeRoutes *orsAlternatives `json:"alternative_routes,omitempty"`
}

type orsAlternatives struct {
	TargetCount  int     `json:"target_count"`
	WeightFactor float64 `json:"weight_factor"`
	ShareFactor  float64 `json:"share_factor"`
}

// Routes fetches candidate routes between two points, primary first.
// alternatives <= 0 falls back to the configured count. A missing API key
// yields nil, nil; an upstream failure is an error the caller maps to an
// empty candidate set.
func (c *Client) Routes(ctx context.Context, start, end safety.Point, alternatives int) ([]safety.Route, error) {
	if c.apiKey == "" {
		zap.L().Warn("directions: no API key configured, returning no candidates")
		return nil, nil
	}
	if alternatives <= 0 {
		alternatives = c.alternatives
	}

	key := routeKey(start, end, alternatives)
	if routes, ok := c.cache.get(key); ok {
		return routes, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "directions: rate limit wait")
	}

	body := orsRequest{
		Coordinates: [][]float64{{start.Lon, start.Lat}, {end.Lon, end.Lat}},
		AlternativeRoutes: &orsAlternatives{
			TargetCount:  alternatives,
			WeightFactor: c.weightFactor,
			ShareFactor:  c.shareFactor,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, eris.Wrap(err, "directions: marshal request")
	}

	url := fmt.Sprintf("%s/v2/directions/driving-car/geojson", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "directions: build request")
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "directions: call ORS")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, eris.Errorf("directions: ORS returned %d: %s", resp.StatusCode, snippet)
	}

	routes, err := decodeRoutes(resp.Body)
	if err != nil {
		return nil, err
	}

	c.cache.put(key, routes)
	zap.L().Debug("fetched routes from ORS",
		zap.Int("routes", len(routes)),
		zap.Float64("start_lat", start.Lat),
		zap.Float64("start_lon", start.Lon),
	)
	return routes, nil
}

// decodeRoutes parses the ORS GeoJSON FeatureCollection: one LineString
// feature per route, with distance (meters) and duration (seconds) in the
// summary property.
func decodeRoutes(r io.Reader) ([]safety.Route, error) {
	var fc geojson.FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, eris.Wrap(err, "directions: decode response")
	}

	routes := make([]safety.Route, 0, len(fc.Features))
	for _, f := range fc.Features {
		ls, ok := f.Geometry.(*geom.LineString)
		if !ok {
			zap.L().Debug("directions: skipping non-LineString feature")
			continue
		}

		coords := ls.Coords()
		points := make([]safety.Point, len(coords))
		for i, c := range coords {
			points[i] = safety.Point{Lat: c[1], Lon: c[0]}
		}

		route := safety.Route{Coordinates: points}
		if summary, ok := f.Properties["summary"].(map[string]any); ok {
			if d, ok := summary["distance"].(float64); ok {
				route.DistanceKM = d / 1000
			}
			if d, ok := summary["duration"].(float64); ok {
				route.DurationMinutes = d / 60
			}
		}
		routes = append(routes, route)
	}
	return routes, nil
}
