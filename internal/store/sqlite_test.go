package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wireless-wizards/saferoute/internal/config"
	"github.com/wireless-wizards/saferoute/internal/hexgrid"
	"github.com/wireless-wizards/saferoute/internal/safety"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testGrid(t *testing.T, ix *hexgrid.Indexer, incidents []safety.Incident) *safety.Grid {
	t.Helper()
	eng, err := safety.NewEngine(config.DefaultScoringConfig())
	require.NoError(t, err)
	set, err := safety.NewAggregator(ix, 1).Aggregate(context.Background(), incidents)
	require.NoError(t, err)
	grid, err := safety.Build(ix, eng, set)
	require.NoError(t, err)
	return grid
}

func TestSQLite_IncidentRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	incidents := []safety.Incident{
		{Latitude: 28.6139, Longitude: 77.2090, Severity: 4, IncidentDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), TimeFrom: "10:00:00", Category: "Theft"},
		{Latitude: 28.7041, Longitude: 77.1025, Severity: 8, TimeFrom: "23:30:00", Category: "Assault"},
	}

	n, err := s.InsertIncidents(ctx, incidents)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	loaded, err := s.LoadIncidents(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, incidents[0].Latitude, loaded[0].Latitude)
	assert.Equal(t, "10:00:00", loaded[0].TimeFrom)
	assert.Equal(t, "Theft", loaded[0].Category)
	assert.Equal(t, "2024-03-01", loaded[0].IncidentDate.Format("2006-01-02"))
	assert.True(t, loaded[1].IncidentDate.IsZero())
}

func TestSQLite_GridRoundTripPreservesLookups(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	ix, err := hexgrid.NewIndexer(hexgrid.DefaultResolution)
	require.NoError(t, err)

	grid := testGrid(t, ix, []safety.Incident{
		{Latitude: 28.6139, Longitude: 77.2090, Severity: 7, TimeFrom: "10:00:00"},
		{Latitude: 28.6139, Longitude: 77.2090, Severity: 3, TimeFrom: "23:30:00"},
		{Latitude: 28.7041, Longitude: 77.1025, Severity: 5, TimeFrom: "01:00:00"},
	})

	require.NoError(t, s.SaveGrid(ctx, grid))

	reloaded, err := s.LoadGrid(ctx, ix)
	require.NoError(t, err)
	require.Equal(t, grid.Size(), reloaded.Size())

	for _, cs := range grid.Cells() {
		for _, bucket := range []safety.TimeBucket{safety.BucketDay, safety.BucketNight, safety.BucketOverall} {
			want, err := grid.Lookup(cs.Lat, cs.Lon, bucket)
			require.NoError(t, err)
			got, err := reloaded.Lookup(cs.Lat, cs.Lon, bucket)
			require.NoError(t, err)
			assert.InDelta(t, want, got, 0.01, "cell %s bucket %s", cs.Cell, bucket)
		}
	}
}

func TestSQLite_SaveGridReplacesSnapshot(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	ix, err := hexgrid.NewIndexer(hexgrid.DefaultResolution)
	require.NoError(t, err)

	first := testGrid(t, ix, []safety.Incident{
		{Latitude: 28.6139, Longitude: 77.2090, Severity: 5, TimeFrom: "10:00:00"},
		{Latitude: 28.7041, Longitude: 77.1025, Severity: 5, TimeFrom: "10:00:00"},
	})
	require.NoError(t, s.SaveGrid(ctx, first))

	second := testGrid(t, ix, []safety.Incident{
		{Latitude: 40.7128, Longitude: -74.0060, Severity: 2, TimeFrom: "12:00:00"},
	})
	require.NoError(t, s.SaveGrid(ctx, second))

	st, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Cells)
	assert.Equal(t, hexgrid.DefaultResolution, st.Resolution)
}

func TestSQLite_LoadGridResolutionMismatch(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	ix9, err := hexgrid.NewIndexer(9)
	require.NoError(t, err)
	grid := testGrid(t, ix9, []safety.Incident{
		{Latitude: 28.6139, Longitude: 77.2090, Severity: 5, TimeFrom: "10:00:00"},
	})
	require.NoError(t, s.SaveGrid(ctx, grid))

	ix8, err := hexgrid.NewIndexer(8)
	require.NoError(t, err)
	_, err = s.LoadGrid(ctx, ix8)
	assert.Error(t, err)
}

func TestSQLite_StatusEmpty(t *testing.T) {
	s := newTestSQLite(t)

	st, err := s.Status(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Cells)
	assert.Zero(t, st.Incidents)
	assert.Nil(t, st.UpdatedAt)
}
