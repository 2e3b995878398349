package importer

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/wireless-wizards/saferoute/internal/safety"
)

// ReadXLSX reads the first sheet of an XLSX incident file. The first row
// must be a header with at least latitude and longitude columns.
func ReadXLSX(path string) ([]safety.Incident, Stats, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, Stats{}, eris.Wrap(err, "importer: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, Stats{}, eris.New("importer: xlsx file has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, Stats{}, eris.New("importer: xlsx sheet is empty")
	}

	cm, err := mapHeader(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, Stats{}, err
	}

	var (
		incidents []safety.Incident
		stats     Stats
	)
	for _, row := range sheet.Rows[1:] {
		stats.Rows++
		inc, err := parseRecord(cm, rowToStrings(row))
		if err != nil {
			stats.Invalid++
			zap.L().Debug("skipping xlsx row", zap.Int("row", stats.Rows), zap.Error(err))
			continue
		}
		incidents = append(incidents, inc)
	}

	return incidents, stats, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
