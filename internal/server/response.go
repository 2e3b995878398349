package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/wireless-wizards/saferoute/internal/safety"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("encoding response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func missingParamError(name string) error {
	return fmt.Errorf("missing required parameter: %s", name)
}

func invalidParamError(name string) error {
	return fmt.Errorf("invalid parameter: %s", name)
}

// Scores round to 2 decimal places and durations to 1 at the response
// layer only; internal values stay full precision.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

type breakdownView struct {
	Overall  float64 `json:"overall"`
	Minimum  float64 `json:"minimum"`
	Maximum  float64 `json:"maximum"`
	Variance float64 `json:"variance"`
}

type routeView struct {
	ID              int            `json:"id"`
	Name            string         `json:"name"`
	Type            string         `json:"type"`
	Coordinates     []safety.Point `json:"coordinates"`
	SafetyScore     float64        `json:"safety_score"`
	SafetyLevel     string         `json:"safety_level"`
	SafetyColor     string         `json:"safety_color"`
	DistanceKM      float64        `json:"distance_km"`
	DurationMinutes float64        `json:"duration_minutes"`
	CellCount       int            `json:"cell_count"`
	Breakdown       breakdownView  `json:"safety_breakdown"`
}

type boundsView struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

func routeViews(routes []safety.ScoredRoute) []routeView {
	views := make([]routeView, len(routes))
	for i, rt := range routes {
		views[i] = routeView{
			ID:              i,
			Name:            fmt.Sprintf("Route %d", i+1),
			Type:            rt.Type,
			Coordinates:     rt.Coordinates,
			SafetyScore:     round2(rt.SafetyScore),
			SafetyLevel:     safety.Level(rt.SafetyScore),
			SafetyColor:     safety.Color(rt.SafetyScore),
			DistanceKM:      round2(rt.DistanceKM),
			DurationMinutes: round1(rt.DurationMinutes),
			CellCount:       rt.Breakdown.CellCount,
			Breakdown: breakdownView{
				Overall:  round2(rt.Breakdown.Overall),
				Minimum:  round2(rt.Breakdown.Min),
				Maximum:  round2(rt.Breakdown.Max),
				Variance: round2(rt.Breakdown.Variance),
			},
		}
	}
	return views
}

// routeBounds spans every coordinate of every route, for map centering.
func routeBounds(routes []safety.ScoredRoute) boundsView {
	b := boundsView{North: -90, South: 90, East: -180, West: 180}
	for _, rt := range routes {
		for _, p := range rt.Coordinates {
			b.North = math.Max(b.North, p.Lat)
			b.South = math.Min(b.South, p.Lat)
			b.East = math.Max(b.East, p.Lon)
			b.West = math.Min(b.West, p.Lon)
		}
	}
	return b
}

func writeStandardRoutes(w http.ResponseWriter, routes []safety.ScoredRoute, rec safety.Recommendation) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"routes":         routeViews(routes),
		"recommendation": rec,
		"bounds":         routeBounds(routes),
		"generated_at":   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeGeoJSONRoutes renders the ranked routes as a FeatureCollection of
// LineStrings, one feature per route, with display properties for map
// styling.
func writeGeoJSONRoutes(w http.ResponseWriter, routes []safety.ScoredRoute, rec safety.Recommendation) {
	views := routeViews(routes)
	features := make([]*geojson.Feature, len(routes))
	for i, rt := range routes {
		flat := make([]float64, 0, len(rt.Coordinates)*2)
		for _, p := range rt.Coordinates {
			flat = append(flat, p.Lon, p.Lat)
		}

		weight := 3
		if i == 0 {
			weight = 5
		}
		features[i] = &geojson.Feature{
			Geometry: geom.NewLineStringFlat(geom.XY, flat),
			Properties: map[string]any{
				"id":               views[i].ID,
				"name":             views[i].Name,
				"type":             views[i].Type,
				"safety_score":     views[i].SafetyScore,
				"safety_level":     views[i].SafetyLevel,
				"distance_km":      views[i].DistanceKM,
				"duration_minutes": views[i].DurationMinutes,
				"cell_count":       views[i].CellCount,
				"safety_breakdown": views[i].Breakdown,
				"color":            views[i].SafetyColor,
				"weight":           weight,
				"opacity":          0.8,
			},
		}
	}

	fc := geojson.FeatureCollection{Features: features}
	raw, err := fc.MarshalJSON()
	if err != nil {
		zap.L().Error("encoding geojson failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "encoding failed")
		return
	}

	// Attach the recommendation as top-level foreign members.
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		writeError(w, http.StatusInternalServerError, "encoding failed")
		return
	}
	doc["properties"] = map[string]any{
		"recommendation": rec,
		"generated_at":   time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, http.StatusOK, doc)
}
