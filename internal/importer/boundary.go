package importer

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// Boundary is a point-in-polygon filter built from a shapefile. Rings from
// every polygon record are kept flat; containment uses even-odd counting,
// so holes are excluded without tracking ring winding.
type Boundary struct {
	rings [][]float64
}

// LoadBoundary reads every polygon record from a shapefile.
func LoadBoundary(shpPath string) (*Boundary, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	b := &Boundary{}
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		b.addPolygon(poly)
	}
	if skipped > 0 {
		zap.L().Debug("importer: skipped non-polygon shapefile records", zap.Int("skipped", skipped))
	}
	if len(b.rings) == 0 {
		return nil, eris.Errorf("importer: no polygon records in %s", shpPath)
	}
	return b, nil
}

func (b *Boundary) addPolygon(p *shp.Polygon) {
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		ring := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			ring = append(ring, p.Points[j].X, p.Points[j].Y)
		}
		if len(ring) >= 6 {
			b.rings = append(b.rings, ring)
		}
	}
}

// Contains reports whether the point falls inside the boundary. Shapefile
// coordinates are x=longitude, y=latitude.
func (b *Boundary) Contains(lat, lon float64) bool {
	pt := geom.Coord{lon, lat}
	inside := false
	for _, ring := range b.rings {
		if xy.IsPointInRing(geom.XY, pt, ring) {
			inside = !inside
		}
	}
	return inside
}
