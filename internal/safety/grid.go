package safety

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wireless-wizards/saferoute/internal/hexgrid"
)

// CellScore is the per-cell record of an immutable grid snapshot, and the
// flat row shape the stores persist.
type CellScore struct {
	Cell       hexgrid.Cell
	Lat        float64
	Lon        float64
	Overall    float64
	Day        float64
	Night      float64
	DayCount   int
	NightCount int
}

// Grid is an immutable safety-score snapshot. Build once, then serve any
// number of concurrent lookups without locking; a refresh constructs a new
// Grid and the owner swaps the reference.
type Grid struct {
	indexer *hexgrid.Indexer
	cells   map[hexgrid.Cell]CellScore
	builtAt time.Time
}

// Build applies the score engine to every aggregated (cell, bucket) pair,
// unions the cell sets of the day and night buckets, and freezes the result.
// A cell missing one bucket gets that bucket's default score; the centroid
// comes from the first incident that anchored the cell, falling back to the
// geometric cell center when neither bucket carries an anchor.
func Build(ix *hexgrid.Indexer, eng *Engine, aggs *AggregateSet) (*Grid, error) {
	if aggs == nil {
		return nil, eris.New("safety: nil aggregate set")
	}

	type sided struct {
		day, night *Aggregate
	}
	byCell := make(map[hexgrid.Cell]*sided)
	for key, agg := range aggs.ByKey {
		s, ok := byCell[key.Cell]
		if !ok {
			s = &sided{}
			byCell[key.Cell] = s
		}
		switch key.Bucket {
		case BucketDay:
			s.day = agg
		case BucketNight:
			s.night = agg
		}
	}

	cells := make(map[hexgrid.Cell]CellScore, len(byCell))
	for cell, s := range byCell {
		if s.day == nil && s.night == nil {
			continue
		}

		cs := CellScore{Cell: cell, Day: DefaultDayScore, Night: DefaultNightScore}
		if s.day != nil {
			cs.Day = eng.Score(s.day.Count, s.day.AvgSeverity(), s.day.MaxSeverity)
			cs.DayCount = s.day.Count
		}
		if s.night != nil {
			cs.Night = eng.Score(s.night.Count, s.night.AvgSeverity(), s.night.MaxSeverity)
			cs.NightCount = s.night.Count
		}
		cs.Overall = eng.Overall(cs.Day, cs.Night)

		switch {
		case s.day != nil:
			cs.Lat, cs.Lon = s.day.AnchorLat, s.day.AnchorLon
		case s.night != nil:
			cs.Lat, cs.Lon = s.night.AnchorLat, s.night.AnchorLon
		}
		if cs.Lat == 0 && cs.Lon == 0 {
			lat, lon, err := ix.CellToCentroid(cell)
			if err != nil {
				return nil, eris.Wrapf(err, "safety: centroid for cell %q", cell)
			}
			cs.Lat, cs.Lon = lat, lon
		}

		cells[cell] = cs
	}

	zap.L().Info("built safety grid",
		zap.Int("cells", len(cells)),
		zap.Int("resolution", ix.Resolution()),
	)
	return &Grid{indexer: ix, cells: cells, builtAt: time.Now().UTC()}, nil
}

// FromSnapshot reconstructs a grid from persisted rows. Lookup behavior is
// byte-for-byte equivalent to the grid that produced the rows.
func FromSnapshot(ix *hexgrid.Indexer, rows []CellScore) (*Grid, error) {
	cells := make(map[hexgrid.Cell]CellScore, len(rows))
	for _, r := range rows {
		if r.Cell == "" {
			return nil, eris.New("safety: snapshot row with empty cell key")
		}
		cells[r.Cell] = r
	}
	return &Grid{indexer: ix, cells: cells, builtAt: time.Now().UTC()}, nil
}

// Lookup returns the safety score for the cell containing the point under
// the given bucket. Never-observed cells resolve to the bucket default; the
// only failure mode is an invalid coordinate.
func (g *Grid) Lookup(lat, lon float64, bucket TimeBucket) (float64, error) {
	cell, err := g.indexer.PointToCell(lat, lon)
	if err != nil {
		return 0, err
	}
	cs, ok := g.cells[cell]
	if !ok {
		return DefaultFor(bucket), nil
	}
	switch bucket {
	case BucketDay:
		return cs.Day, nil
	case BucketNight:
		return cs.Night, nil
	default:
		return cs.Overall, nil
	}
}

// Cell returns the stored record for a cell key, if present.
func (g *Grid) Cell(cell hexgrid.Cell) (CellScore, bool) {
	cs, ok := g.cells[cell]
	return cs, ok
}

// Cells returns all cell records sorted by key, the snapshot row order.
func (g *Grid) Cells() []CellScore {
	out := make([]CellScore, 0, len(g.cells))
	for _, cs := range g.cells {
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cell < out[j].Cell })
	return out
}

// Size returns the number of materialized cells.
func (g *Grid) Size() int {
	return len(g.cells)
}

// Resolution returns the grid's fixed hexagon resolution.
func (g *Grid) Resolution() int {
	return g.indexer.Resolution()
}

// Indexer returns the indexer the grid was built with.
func (g *Grid) Indexer() *hexgrid.Indexer {
	return g.indexer
}

// BuiltAt returns when this snapshot was constructed or loaded.
func (g *Grid) BuiltAt() time.Time {
	return g.builtAt
}

// DensityPoint is a per-cell incident count with its display coordinate,
// for heatmap rendering.
type DensityPoint struct {
	Cell  hexgrid.Cell `json:"cell"`
	Lat   float64      `json:"lat"`
	Lon   float64      `json:"lon"`
	Count int          `json:"count"`
}

// Density returns per-cell day+night incident counts, densest first.
func (g *Grid) Density() []DensityPoint {
	out := make([]DensityPoint, 0, len(g.cells))
	for _, cs := range g.cells {
		out = append(out, DensityPoint{
			Cell:  cs.Cell,
			Lat:   cs.Lat,
			Lon:   cs.Lon,
			Count: cs.DayCount + cs.NightCount,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Cell < out[j].Cell
	})
	return out
}
