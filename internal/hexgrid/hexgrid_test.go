package hexgrid

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndexer_ResolutionBounds(t *testing.T) {
	for _, res := range []int{0, 9, 15} {
		_, err := NewIndexer(res)
		assert.NoError(t, err, "resolution %d", res)
	}
	for _, res := range []int{-1, 16, 100} {
		_, err := NewIndexer(res)
		assert.Error(t, err, "resolution %d", res)
	}
}

func TestPointToCell_Deterministic(t *testing.T) {
	ix, err := NewIndexer(DefaultResolution)
	require.NoError(t, err)

	a, err := ix.PointToCell(28.6139, 77.2090)
	require.NoError(t, err)
	b, err := ix.PointToCell(28.6139, 77.2090)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
}

func TestPointToCell_InvalidCoordinates(t *testing.T) {
	ix, err := NewIndexer(DefaultResolution)
	require.NoError(t, err)

	tests := []struct {
		name     string
		lat, lon float64
	}{
		{"lat too large", 90.1, 0},
		{"lat too small", -90.1, 0},
		{"lon too large", 0, 180.1},
		{"lon too small", 0, -180.1},
		{"NaN lat", math.NaN(), 0},
		{"NaN lon", 0, math.NaN()},
		{"Inf lat", math.Inf(1), 0},
		{"Inf lon", 0, math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ix.PointToCell(tt.lat, tt.lon)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrInvalidCoordinate))
		})
	}
}

func TestCellToCentroid_RoundTrip(t *testing.T) {
	ix, err := NewIndexer(DefaultResolution)
	require.NoError(t, err)

	// Centroid of the cell containing a point must lie within one cell radius
	// of the point. Resolution 9 edges are ~174 m, so 500 m is a safe bound.
	points := []struct{ lat, lon float64 }{
		{28.6139, 77.2090},
		{40.7128, -74.0060},
		{-33.8688, 151.2093},
		{0, 0},
		{89.9, 135},
	}
	for _, p := range points {
		cell, err := ix.PointToCell(p.lat, p.lon)
		require.NoError(t, err)

		lat, lon, err := ix.CellToCentroid(cell)
		require.NoError(t, err)

		assert.InDelta(t, p.lat, lat, 0.01)
		assert.InDelta(t, p.lon, lon, 0.02)

		// The centroid maps back to the same cell.
		back, err := ix.PointToCell(lat, lon)
		require.NoError(t, err)
		assert.Equal(t, cell, back)
	}
}

func TestCellToCentroid_BadKey(t *testing.T) {
	ix, err := NewIndexer(DefaultResolution)
	require.NoError(t, err)

	_, _, err = ix.CellToCentroid(Cell("not-a-cell"))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidCoordinate))
}
