package safety

import (
	"math"

	"github.com/wireless-wizards/saferoute/internal/hexgrid"
)

// Point is a geographic coordinate on a route polyline.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Route is a candidate route as supplied by the directions collaborator.
type Route struct {
	Coordinates     []Point
	DistanceKM      float64
	DurationMinutes float64
}

// Breakdown aggregates the per-cell scores visited by a route.
type Breakdown struct {
	Overall   float64 `json:"overall"`
	Min       float64 `json:"minimum"`
	Max       float64 `json:"maximum"`
	Variance  float64 `json:"variance"`
	CellCount int     `json:"cell_count"`
}

// NeutralBreakdown is returned for routes that visit no scoreable cell.
func NeutralBreakdown() Breakdown {
	return Breakdown{
		Overall: DefaultOverallScore,
		Min:     DefaultOverallScore,
		Max:     DefaultOverallScore,
	}
}

// ScoredRoute is a route annotated with safety statistics.
type ScoredRoute struct {
	Route
	Type        string // "primary" or "alternative"
	SafetyScore float64
	Cells       []hexgrid.Cell
	Breakdown   Breakdown
}

// RouteScorer scores coordinate sequences against a read-only grid. It
// borrows the grid and never mutates it; concurrent use is safe.
type RouteScorer struct {
	grid *Grid
}

// NewRouteScorer creates a scorer over the given grid snapshot.
func NewRouteScorer(grid *Grid) *RouteScorer {
	return &RouteScorer{grid: grid}
}

// ScoreRoute walks the polyline in order, resolving each point to its cell.
// Each distinct cell is scored exactly once, in first-occurrence order;
// dense polylines revisit the same hexagon for many consecutive points.
// Invalid points are skipped. A route with no scoreable points gets the
// neutral breakdown and no cells; ScoreRoute never fails.
func (rs *RouteScorer) ScoreRoute(points []Point, bucket TimeBucket) (Breakdown, []hexgrid.Cell) {
	seen := make(map[hexgrid.Cell]struct{})
	var cells []hexgrid.Cell
	var scores []float64

	for _, p := range points {
		cell, err := rs.grid.indexer.PointToCell(p.Lat, p.Lon)
		if err != nil {
			continue
		}
		if _, ok := seen[cell]; ok {
			continue
		}
		seen[cell] = struct{}{}
		cells = append(cells, cell)

		score, err := rs.grid.Lookup(p.Lat, p.Lon, bucket)
		if err != nil {
			continue
		}
		scores = append(scores, score)
	}

	if len(scores) == 0 {
		return NeutralBreakdown(), nil
	}

	return summarize(scores), cells
}

// summarize computes mean, min, max, and population variance. The visited
// cells are the whole population, not a sample, so the divisor is n.
func summarize(scores []float64) Breakdown {
	sum := 0.0
	minScore := math.Inf(1)
	maxScore := math.Inf(-1)
	for _, s := range scores {
		sum += s
		minScore = math.Min(minScore, s)
		maxScore = math.Max(maxScore, s)
	}
	mean := sum / float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		d := s - mean
		variance += d * d
	}
	variance /= float64(len(scores))

	return Breakdown{
		Overall:   mean,
		Min:       minScore,
		Max:       maxScore,
		Variance:  variance,
		CellCount: len(scores),
	}
}
