package importer

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wireless-wizards/saferoute/internal/safety"
)

// ReadCSV streams a CSV incident file. The first row must be a header with
// at least latitude and longitude columns. Rows that fail to parse are
// counted and skipped, never fatal.
func ReadCSV(ctx context.Context, path string) ([]safety.Incident, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, eris.Wrapf(err, "importer: open %s", path)
	}
	defer f.Close()
	return parseCSV(ctx, f)
}

func parseCSV(ctx context.Context, r io.Reader) ([]safety.Incident, Stats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, Stats{}, eris.New("importer: empty csv file")
	}
	if err != nil {
		return nil, Stats{}, eris.Wrap(err, "importer: read csv header")
	}
	cm, err := mapHeader(header)
	if err != nil {
		return nil, Stats{}, err
	}

	var (
		incidents []safety.Incident
		stats     Stats
	)
	for {
		if ctx.Err() != nil {
			return nil, stats, eris.Wrap(ctx.Err(), "importer: csv cancelled")
		}

		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, eris.Wrap(err, "importer: read csv row")
		}

		stats.Rows++
		inc, err := parseRecord(cm, rec)
		if err != nil {
			stats.Invalid++
			zap.L().Debug("skipping csv row", zap.Int("row", stats.Rows), zap.Error(err))
			continue
		}
		incidents = append(incidents, inc)
	}

	return incidents, stats, nil
}
