package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wireless-wizards/saferoute/internal/db"
	"github.com/wireless-wizards/saferoute/internal/hexgrid"
	"github.com/wireless-wizards/saferoute/internal/safety"
)

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres wraps an existing pool. closeFn may be nil when the caller
// owns the pool lifecycle.
func NewPostgres(pool db.Pool, closeFn func()) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: closeFn}
}

const pgMigration = `
CREATE TABLE IF NOT EXISTS incident_details (
	id            BIGSERIAL PRIMARY KEY,
	latitude      DOUBLE PRECISION NOT NULL,
	longitude     DOUBLE PRECISION NOT NULL,
	severity      INTEGER NOT NULL,
	incident_date DATE,
	time_from     TEXT,
	category      TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS hex_safety_scores (
	cell                 VARCHAR(16) PRIMARY KEY,
	latitude             DOUBLE PRECISION NOT NULL,
	longitude            DOUBLE PRECISION NOT NULL,
	overall_score        DOUBLE PRECISION NOT NULL,
	day_score            DOUBLE PRECISION NOT NULL,
	night_score          DOUBLE PRECISION NOT NULL,
	incident_count_day   INTEGER NOT NULL DEFAULT 0,
	incident_count_night INTEGER NOT NULL DEFAULT 0,
	resolution           INTEGER NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_incident_details_date ON incident_details(incident_date);
`

// Migrate creates the incident and snapshot tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, pgMigration); err != nil {
		return eris.Wrap(err, "store: postgres migrate")
	}
	return nil
}

var incidentColumns = []string{"latitude", "longitude", "severity", "incident_date", "time_from", "category"}

// InsertIncidents bulk-loads incidents via COPY.
func (s *PostgresStore) InsertIncidents(ctx context.Context, incidents []safety.Incident) (int64, error) {
	rows := make([][]any, len(incidents))
	for i, inc := range incidents {
		var date any
		if !inc.IncidentDate.IsZero() {
			date = inc.IncidentDate
		}
		rows[i] = []any{inc.Latitude, inc.Longitude, inc.Severity, date, inc.TimeFrom, inc.Category}
	}
	return db.CopyFrom(ctx, s.pool, "incident_details", incidentColumns, rows)
}

// LoadIncidents returns every stored incident.
func (s *PostgresStore) LoadIncidents(ctx context.Context) ([]safety.Incident, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT latitude, longitude, severity, incident_date, time_from, category FROM incident_details`)
	if err != nil {
		return nil, eris.Wrap(err, "store: load incidents")
	}
	defer rows.Close()

	var incidents []safety.Incident
	for rows.Next() {
		var inc safety.Incident
		var date *time.Time
		var timeFrom, category *string
		if err := rows.Scan(&inc.Latitude, &inc.Longitude, &inc.Severity, &date, &timeFrom, &category); err != nil {
			return nil, eris.Wrap(err, "store: scan incident")
		}
		if date != nil {
			inc.IncidentDate = *date
		}
		if timeFrom != nil {
			inc.TimeFrom = *timeFrom
		}
		if category != nil {
			inc.Category = *category
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate incidents")
	}
	return incidents, nil
}

var snapshotColumns = []string{
	"cell", "latitude", "longitude",
	"overall_score", "day_score", "night_score",
	"incident_count_day", "incident_count_night", "resolution",
}

// SaveGrid replaces the snapshot table with the grid's cells in one
// transaction, so readers observe either the old snapshot or the new one.
func (s *PostgresStore) SaveGrid(ctx context.Context, grid *safety.Grid) error {
	cells := grid.Cells()
	rows := make([][]any, len(cells))
	for i, cs := range cells {
		rows[i] = []any{
			string(cs.Cell), cs.Lat, cs.Lon,
			cs.Overall, cs.Day, cs.Night,
			cs.DayCount, cs.NightCount, grid.Resolution(),
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "store: save grid: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM hex_safety_scores`); err != nil {
		return eris.Wrap(err, "store: save grid: clear snapshot")
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"hex_safety_scores"}, snapshotColumns, pgx.CopyFromRows(rows)); err != nil {
		return eris.Wrap(err, "store: save grid: copy snapshot")
	}
	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "store: save grid: commit")
	}

	zap.L().Info("saved grid snapshot", zap.Int("cells", len(cells)), zap.Int("resolution", grid.Resolution()))
	return nil
}

// LoadGrid reconstructs a grid from the snapshot table.
func (s *PostgresStore) LoadGrid(ctx context.Context, ix *hexgrid.Indexer) (*safety.Grid, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT cell, latitude, longitude, overall_score, day_score, night_score,
		        incident_count_day, incident_count_night, resolution
		 FROM hex_safety_scores`)
	if err != nil {
		return nil, eris.Wrap(err, "store: load grid")
	}
	defer rows.Close()

	var cells []safety.CellScore
	for rows.Next() {
		var cs safety.CellScore
		var cell string
		var resolution int
		if err := rows.Scan(&cell, &cs.Lat, &cs.Lon, &cs.Overall, &cs.Day, &cs.Night,
			&cs.DayCount, &cs.NightCount, &resolution); err != nil {
			return nil, eris.Wrap(err, "store: scan snapshot row")
		}
		if resolution != ix.Resolution() {
			return nil, eris.Errorf("store: snapshot resolution %d does not match configured %d", resolution, ix.Resolution())
		}
		cs.Cell = hexgrid.Cell(cell)
		cells = append(cells, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate snapshot rows")
	}

	return safety.FromSnapshot(ix, cells)
}

// Status reports the persisted snapshot's shape.
func (s *PostgresStore) Status(ctx context.Context) (GridStatus, error) {
	var st GridStatus
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(MAX(resolution), 0), MAX(updated_at) FROM hex_safety_scores`,
	).Scan(&st.Cells, &st.Resolution, &st.UpdatedAt)
	if err != nil {
		return GridStatus{}, eris.Wrap(err, "store: snapshot status")
	}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM incident_details`).Scan(&st.Incidents); err != nil {
		return GridStatus{}, eris.Wrap(err, "store: incident count")
	}
	return st, nil
}

// Close releases the underlying pool if this store owns it.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
