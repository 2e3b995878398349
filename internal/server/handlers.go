package server

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wireless-wizards/saferoute/internal/hexgrid"
	"github.com/wireless-wizards/saferoute/internal/safety"
)

const maxAlternatives = 3

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":                "healthy",
		"service":               "saferoute-api",
		"timestamp":             time.Now().UTC().Format(time.RFC3339),
		"directions_configured": s.routes.Configured(),
	})
}

// handleScore serves GET /api/safety/score?lat=&lon=&time_period=.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	lat, err := parseFloatParam(r, "lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lon, err := parseFloatParam(r, "lon")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bucket, err := safety.ParseBucket(r.URL.Query().Get("time_period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid time_period, must be: day, night, or overall")
		return
	}

	grid := s.Grid()
	score, err := grid.Lookup(lat, lon, bucket)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid coordinates")
		return
	}
	cell, _ := s.indexer.PointToCell(lat, lon)

	writeJSON(w, http.StatusOK, map[string]any{
		"lat":          lat,
		"lon":          lon,
		"time_period":  string(bucket),
		"cell":         string(cell),
		"safety_score": round2(score),
		"safety_level": safety.Level(score),
		"safety_color": safety.Color(score),
	})
}

// handleSafeRoutes serves GET /api/routes/safe. Candidates come from the
// directions collaborator; an upstream failure degrades to an empty set
// with a message, never a 5xx.
func (s *Server) handleSafeRoutes(w http.ResponseWriter, r *http.Request) {
	startLat, err := parseFloatParam(r, "start_lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	startLon, err := parseFloatParam(r, "start_lon")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	endLat, err := parseFloatParam(r, "end_lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	endLon, err := parseFloatParam(r, "end_lon")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := hexgrid.ValidateCoordinate(startLat, startLon); err != nil {
		writeError(w, http.StatusBadRequest, "invalid start coordinates")
		return
	}
	if err := hexgrid.ValidateCoordinate(endLat, endLon); err != nil {
		writeError(w, http.StatusBadRequest, "invalid end coordinates")
		return
	}

	bucket, err := safety.ParseBucket(r.URL.Query().Get("time_period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid time_period, must be: day, night, or overall")
		return
	}

	alternatives := 2
	if v := r.URL.Query().Get("alternatives"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid alternatives")
			return
		}
		alternatives = min(n, maxAlternatives)
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "standard"
	}
	if format != "standard" && format != "geojson" {
		writeError(w, http.StatusBadRequest, "invalid format, must be: standard or geojson")
		return
	}

	start := safety.Point{Lat: startLat, Lon: startLon}
	end := safety.Point{Lat: endLat, Lon: endLon}

	candidates, err := s.routes.Routes(r.Context(), start, end, alternatives)
	if err != nil {
		zap.L().Error("fetching candidate routes failed", zap.Error(err))
		candidates = nil
	}
	if len(candidates) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      false,
			"routes":       []any{},
			"message":      "No routes available",
			"generated_at": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	scorer := safety.NewRouteScorer(s.Grid())
	scored := make([]safety.ScoredRoute, len(candidates))
	for i, rt := range candidates {
		breakdown, cells := scorer.ScoreRoute(rt.Coordinates, bucket)
		routeType := "alternative"
		if i == 0 {
			routeType = "primary"
		}
		scored[i] = safety.ScoredRoute{
			Route:       rt,
			Type:        routeType,
			SafetyScore: breakdown.Overall,
			Cells:       cells,
			Breakdown:   breakdown,
		}
	}

	ranked := safety.SortBySafety(scored)
	recommendation, err := safety.Recommend(ranked)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "recommendation failed")
		return
	}

	if format == "geojson" {
		writeGeoJSONRoutes(w, ranked, recommendation)
		return
	}
	writeStandardRoutes(w, ranked, recommendation)
}

// handleRefresh serves POST /api/grid/refresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	grid, err := s.Refresh(r.Context())
	if err != nil {
		zap.L().Error("grid refresh failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "grid refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"cells":      grid.Size(),
		"resolution": grid.Resolution(),
		"built_at":   grid.BuiltAt().Format(time.RFC3339),
	})
}

// handleDensity serves GET /api/density?limit= for heatmap rendering.
func (s *Server) handleDensity(w http.ResponseWriter, r *http.Request) {
	density := s.Grid().Density()

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if limit < len(density) {
			density = density[:limit]
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cells":        len(density),
		"density":      density,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus serves GET /api/grid/status: the persisted snapshot plus
// the grid currently in memory.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Status(r.Context())
	if err != nil {
		zap.L().Error("grid status failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}

	grid := s.Grid()
	writeJSON(w, http.StatusOK, map[string]any{
		"store": st,
		"memory": map[string]any{
			"cells":      grid.Size(),
			"resolution": grid.Resolution(),
			"built_at":   grid.BuiltAt().Format(time.RFC3339),
		},
	})
}

func parseFloatParam(r *http.Request, name string) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, missingParamError(name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, invalidParamError(name)
	}
	return f, nil
}
