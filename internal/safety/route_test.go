package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreRoute_EmptyInputIsNeutral(t *testing.T) {
	scorer := NewRouteScorer(buildTestGrid(t, nil))

	breakdown, cells := scorer.ScoreRoute(nil, BucketOverall)
	assert.Equal(t, Breakdown{Overall: 67.5, Min: 67.5, Max: 67.5, Variance: 0, CellCount: 0}, breakdown)
	assert.Empty(t, cells)
}

func TestScoreRoute_AllInvalidIsNeutral(t *testing.T) {
	scorer := NewRouteScorer(buildTestGrid(t, nil))

	breakdown, cells := scorer.ScoreRoute([]Point{{Lat: 100, Lon: 0}, {Lat: 0, Lon: 200}}, BucketDay)
	assert.Equal(t, NeutralBreakdown(), breakdown)
	assert.Empty(t, cells)
}

func TestScoreRoute_DeduplicatesConsecutivePoints(t *testing.T) {
	scorer := NewRouteScorer(buildTestGrid(t, []Incident{
		{Latitude: 28.6139, Longitude: 77.2090, Severity: 8, TimeFrom: "12:00:00"},
	}))

	p := Point{Lat: 28.6139, Lon: 77.2090}
	q := Point{Lat: 28.7041, Lon: 77.1025} // distinct cell

	withDup, cellsDup := scorer.ScoreRoute([]Point{p, p, q}, BucketDay)
	without, cells := scorer.ScoreRoute([]Point{p, q}, BucketDay)

	assert.Equal(t, without, withDup)
	assert.Equal(t, cells, cellsDup)
	assert.Equal(t, 2, withDup.CellCount)
}

func TestScoreRoute_Statistics(t *testing.T) {
	// One scored cell (day score < default) and one unseen cell (default 75).
	scorer := NewRouteScorer(buildTestGrid(t, []Incident{
		{Latitude: 28.6139, Longitude: 77.2090, Severity: 10, TimeFrom: "12:00:00"},
	}))

	breakdown, cells := scorer.ScoreRoute([]Point{
		{Lat: 28.6139, Lon: 77.2090},
		{Lat: 28.7041, Lon: 77.1025},
	}, BucketDay)

	require.Len(t, cells, 2)
	require.Equal(t, 2, breakdown.CellCount)

	lo, hi := breakdown.Min, breakdown.Max
	assert.Less(t, lo, hi)
	assert.Equal(t, DefaultDayScore, hi)
	assert.InDelta(t, (lo+hi)/2, breakdown.Overall, 1e-9)

	// Population variance of two values: ((lo-mean)^2 + (hi-mean)^2) / 2.
	mean := (lo + hi) / 2
	want := ((lo-mean)*(lo-mean) + (hi-mean)*(hi-mean)) / 2
	assert.InDelta(t, want, breakdown.Variance, 1e-9)
}

func TestScoreRoute_SingleCellHasZeroVariance(t *testing.T) {
	scorer := NewRouteScorer(buildTestGrid(t, nil))

	breakdown, cells := scorer.ScoreRoute([]Point{{Lat: 28.6139, Lon: 77.2090}}, BucketNight)
	require.Len(t, cells, 1)
	assert.Equal(t, DefaultNightScore, breakdown.Overall)
	assert.Zero(t, breakdown.Variance)
	assert.Equal(t, 1, breakdown.CellCount)
}
