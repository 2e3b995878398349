// Package importer loads incident files (CSV, XLSX) into the store, with
// optional clipping to a city boundary shapefile.
package importer

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wireless-wizards/saferoute/internal/hexgrid"
	"github.com/wireless-wizards/saferoute/internal/safety"
	"github.com/wireless-wizards/saferoute/internal/store"
)

const defaultBatchSize = 5000

// Stats counts what happened to the rows of one import.
type Stats struct {
	Rows            int
	Imported        int64
	Invalid         int
	OutsideBoundary int
}

// Importer parses incident files and writes them to the store.
type Importer struct {
	store     store.Store
	boundary  *Boundary
	batchSize int
}

// New creates an Importer. boundary may be nil to import everything;
// batchSize <= 0 uses the default.
func New(st store.Store, boundary *Boundary, batchSize int) *Importer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Importer{store: st, boundary: boundary, batchSize: batchSize}
}

// ImportFile loads a CSV or XLSX incident file, chosen by extension.
func (im *Importer) ImportFile(ctx context.Context, path string) (Stats, error) {
	var (
		incidents []safety.Incident
		stats     Stats
		err       error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		incidents, stats, err = ReadCSV(ctx, path)
	case ".xlsx":
		incidents, stats, err = ReadXLSX(path)
	default:
		return Stats{}, eris.Errorf("importer: unsupported file type %q", ext)
	}
	if err != nil {
		return stats, err
	}

	if im.boundary != nil {
		kept := incidents[:0]
		for _, inc := range incidents {
			if im.boundary.Contains(inc.Latitude, inc.Longitude) {
				kept = append(kept, inc)
			} else {
				stats.OutsideBoundary++
			}
		}
		incidents = kept
	}

	for start := 0; start < len(incidents); start += im.batchSize {
		end := min(start+im.batchSize, len(incidents))
		n, err := im.store.InsertIncidents(ctx, incidents[start:end])
		if err != nil {
			return stats, eris.Wrap(err, "importer: insert batch")
		}
		stats.Imported += n
	}

	zap.L().Info("imported incidents",
		zap.String("file", filepath.Base(path)),
		zap.Int("rows", stats.Rows),
		zap.Int64("imported", stats.Imported),
		zap.Int("invalid", stats.Invalid),
		zap.Int("outside_boundary", stats.OutsideBoundary),
	)
	return stats, nil
}

// columnMap holds the column index of each recognized field, -1 if absent.
type columnMap struct {
	lat, lon, severity, date, timeFrom, category int
}

var headerAliases = map[string]string{
	"latitude":      "lat",
	"lat":           "lat",
	"longitude":     "lon",
	"lon":           "lon",
	"lng":           "lon",
	"long":          "lon",
	"severity":      "severity",
	"incident_date": "date",
	"date":          "date",
	"time_from":     "time",
	"time":          "time",
	"category":      "category",
	"categories":    "category",
	"crime_type":    "category",
}

// mapHeader resolves column positions from a header row. Latitude and
// longitude are required; everything else is optional.
func mapHeader(header []string) (columnMap, error) {
	cm := columnMap{lat: -1, lon: -1, severity: -1, date: -1, timeFrom: -1, category: -1}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		switch headerAliases[key] {
		case "lat":
			cm.lat = i
		case "lon":
			cm.lon = i
		case "severity":
			cm.severity = i
		case "date":
			cm.date = i
		case "time":
			cm.timeFrom = i
		case "category":
			cm.category = i
		}
	}
	if cm.lat < 0 || cm.lon < 0 {
		return cm, eris.Errorf("importer: header missing latitude/longitude columns: %v", header)
	}
	return cm, nil
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2006-01-02T15:04:05"}

// parseRecord converts one data row into an Incident. Rows without valid
// coordinates or severity are rejected; missing date, time, and category
// are fine.
func parseRecord(cm columnMap, rec []string) (safety.Incident, error) {
	field := func(idx int) string {
		if idx < 0 || idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}

	lat, err := strconv.ParseFloat(field(cm.lat), 64)
	if err != nil {
		return safety.Incident{}, eris.Wrap(err, "importer: parse latitude")
	}
	lon, err := strconv.ParseFloat(field(cm.lon), 64)
	if err != nil {
		return safety.Incident{}, eris.Wrap(err, "importer: parse longitude")
	}
	if err := hexgrid.ValidateCoordinate(lat, lon); err != nil {
		return safety.Incident{}, err
	}

	inc := safety.Incident{Latitude: lat, Longitude: lon}

	if s := field(cm.severity); s != "" {
		sev, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return safety.Incident{}, eris.Wrapf(err, "importer: parse severity %q", s)
		}
		inc.Severity = int(sev)
	}

	if s := field(cm.date); s != "" {
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				inc.IncidentDate = d
				break
			}
		}
	}

	inc.TimeFrom = field(cm.timeFrom)
	inc.Category = CanonicalCategory(field(cm.category))
	return inc, nil
}

var categoryCaser = cases.Title(language.English)

// CanonicalCategory normalizes a category label: collapse whitespace and
// title-case, so "STREET  theft" and "street theft" count together.
func CanonicalCategory(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return ""
	}
	return categoryCaser.String(strings.ToLower(s))
}
