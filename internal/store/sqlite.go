package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/wireless-wizards/saferoute/internal/hexgrid"
	"github.com/wireless-wizards/saferoute/internal/safety"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, eris.New("sqlite: path is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS incident_details (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	latitude      REAL NOT NULL,
	longitude     REAL NOT NULL,
	severity      INTEGER NOT NULL,
	incident_date TEXT,
	time_from     TEXT,
	category      TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS hex_safety_scores (
	cell                 TEXT PRIMARY KEY,
	latitude             REAL NOT NULL,
	longitude            REAL NOT NULL,
	overall_score        REAL NOT NULL,
	day_score            REAL NOT NULL,
	night_score          REAL NOT NULL,
	incident_count_day   INTEGER NOT NULL DEFAULT 0,
	incident_count_night INTEGER NOT NULL DEFAULT 0,
	resolution           INTEGER NOT NULL,
	updated_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_incident_details_date ON incident_details(incident_date);
`

// Migrate creates the incident and snapshot tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// InsertIncidents inserts incidents in a single transaction.
func (s *SQLiteStore) InsertIncidents(ctx context.Context, incidents []safety.Incident) (int64, error) {
	if len(incidents) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: insert incidents: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO incident_details (latitude, longitude, severity, incident_date, time_from, category)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: insert incidents: prepare")
	}
	defer stmt.Close()

	for _, inc := range incidents {
		var date any
		if !inc.IncidentDate.IsZero() {
			date = inc.IncidentDate.Format("2006-01-02")
		}
		if _, err := stmt.ExecContext(ctx, inc.Latitude, inc.Longitude, inc.Severity, date, inc.TimeFrom, inc.Category); err != nil {
			return 0, eris.Wrap(err, "sqlite: insert incident")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: insert incidents: commit")
	}
	return int64(len(incidents)), nil
}

// LoadIncidents returns every stored incident.
func (s *SQLiteStore) LoadIncidents(ctx context.Context) ([]safety.Incident, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT latitude, longitude, severity, incident_date, time_from, category FROM incident_details`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load incidents")
	}
	defer rows.Close()

	var incidents []safety.Incident
	for rows.Next() {
		var inc safety.Incident
		var date, timeFrom, category sql.NullString
		if err := rows.Scan(&inc.Latitude, &inc.Longitude, &inc.Severity, &date, &timeFrom, &category); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan incident")
		}
		if date.Valid {
			if d, err := time.Parse("2006-01-02", date.String); err == nil {
				inc.IncidentDate = d
			}
		}
		inc.TimeFrom = timeFrom.String
		inc.Category = category.String
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate incidents")
	}
	return incidents, nil
}

// SaveGrid replaces the snapshot table with the grid's cells in one
// transaction.
func (s *SQLiteStore) SaveGrid(ctx context.Context, grid *safety.Grid) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: save grid: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM hex_safety_scores`); err != nil {
		return eris.Wrap(err, "sqlite: save grid: clear snapshot")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO hex_safety_scores
		 (cell, latitude, longitude, overall_score, day_score, night_score,
		  incident_count_day, incident_count_night, resolution)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: save grid: prepare")
	}
	defer stmt.Close()

	cells := grid.Cells()
	for _, cs := range cells {
		if _, err := stmt.ExecContext(ctx,
			string(cs.Cell), cs.Lat, cs.Lon, cs.Overall, cs.Day, cs.Night,
			cs.DayCount, cs.NightCount, grid.Resolution()); err != nil {
			return eris.Wrapf(err, "sqlite: save grid: insert cell %s", cs.Cell)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: save grid: commit")
	}

	zap.L().Info("saved grid snapshot", zap.Int("cells", len(cells)), zap.Int("resolution", grid.Resolution()))
	return nil
}

// LoadGrid reconstructs a grid from the snapshot table.
func (s *SQLiteStore) LoadGrid(ctx context.Context, ix *hexgrid.Indexer) (*safety.Grid, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cell, latitude, longitude, overall_score, day_score, night_score,
		        incident_count_day, incident_count_night, resolution
		 FROM hex_safety_scores`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load grid")
	}
	defer rows.Close()

	var cells []safety.CellScore
	for rows.Next() {
		var cs safety.CellScore
		var cell string
		var resolution int
		if err := rows.Scan(&cell, &cs.Lat, &cs.Lon, &cs.Overall, &cs.Day, &cs.Night,
			&cs.DayCount, &cs.NightCount, &resolution); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot row")
		}
		if resolution != ix.Resolution() {
			return nil, eris.Errorf("sqlite: snapshot resolution %d does not match configured %d", resolution, ix.Resolution())
		}
		cs.Cell = hexgrid.Cell(cell)
		cells = append(cells, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate snapshot rows")
	}

	return safety.FromSnapshot(ix, cells)
}

// Status reports the persisted snapshot's shape.
func (s *SQLiteStore) Status(ctx context.Context) (GridStatus, error) {
	var st GridStatus
	var updated sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(MAX(resolution), 0), MAX(updated_at) FROM hex_safety_scores`,
	).Scan(&st.Cells, &st.Resolution, &updated)
	if err != nil {
		return GridStatus{}, eris.Wrap(err, "sqlite: snapshot status")
	}
	if updated.Valid {
		if ts, err := time.Parse("2006-01-02 15:04:05", updated.String); err == nil {
			st.UpdatedAt = &ts
		}
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incident_details`).Scan(&st.Incidents); err != nil {
		return GridStatus{}, eris.Wrap(err, "sqlite: incident count")
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
