// Package hexgrid maps geographic points onto a fixed-resolution hexagonal
// grid and back. Cell keys are opaque strings; all keys in one grid share a
// single resolution.
package hexgrid

import (
	"math"

	"github.com/rotisserie/eris"
	h3 "github.com/uber/h3-go/v4"
)

// DefaultResolution is H3 resolution 9, roughly 174 m average hexagon edge
// length. Fine enough to separate adjacent streets, coarse enough that a
// city-sized incident set stays in the tens of thousands of cells.
const DefaultResolution = 9

// ErrInvalidCoordinate marks latitudes/longitudes that are out of range or
// non-finite, and cell keys that do not decode.
var ErrInvalidCoordinate = eris.New("hexgrid: invalid coordinate")

// Cell identifies one hexagonal grid cell at the indexer's resolution.
type Cell string

// Indexer converts between points and cells at a fixed resolution.
type Indexer struct {
	resolution int
}

// NewIndexer creates an Indexer at the given H3 resolution (0-15).
func NewIndexer(resolution int) (*Indexer, error) {
	if resolution < 0 || resolution > 15 {
		return nil, eris.Errorf("hexgrid: resolution %d out of range [0,15]", resolution)
	}
	return &Indexer{resolution: resolution}, nil
}

// Resolution returns the fixed resolution of this indexer.
func (ix *Indexer) Resolution() int {
	return ix.resolution
}

// ValidateCoordinate rejects non-finite or out-of-range lat/lon pairs.
func ValidateCoordinate(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return eris.Wrapf(ErrInvalidCoordinate, "non-finite point (%v, %v)", lat, lon)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return eris.Wrapf(ErrInvalidCoordinate, "point (%v, %v) out of range", lat, lon)
	}
	return nil
}

// PointToCell returns the cell containing the given point. Deterministic:
// identical inputs at identical resolution always yield the identical key.
func (ix *Indexer) PointToCell(lat, lon float64) (Cell, error) {
	if err := ValidateCoordinate(lat, lon); err != nil {
		return "", err
	}
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), ix.resolution)
	if err != nil {
		return "", eris.Wrapf(err, "hexgrid: index point (%v, %v)", lat, lon)
	}
	return Cell(cell.String()), nil
}

// CellToCentroid returns the geometric center of a cell. The centroid is not
// necessarily any point that was ever indexed into the cell.
func (ix *Indexer) CellToCentroid(c Cell) (lat, lon float64, err error) {
	cell := h3.Cell(h3.IndexFromString(string(c)))
	if !cell.IsValid() {
		return 0, 0, eris.Wrapf(ErrInvalidCoordinate, "cell key %q", c)
	}
	ll, err := h3.CellToLatLng(cell)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "hexgrid: centroid of %q", c)
	}
	return ll.Lat, ll.Lng, nil
}
