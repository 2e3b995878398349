// Package store persists incidents and safety-grid snapshots. Two backends
// share one interface: Postgres for deployments, SQLite for local work.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/wireless-wizards/saferoute/internal/config"
	"github.com/wireless-wizards/saferoute/internal/db"
	"github.com/wireless-wizards/saferoute/internal/hexgrid"
	"github.com/wireless-wizards/saferoute/internal/safety"
)

// GridStatus summarizes the persisted snapshot.
type GridStatus struct {
	Cells      int        `json:"cells"`
	Resolution int        `json:"resolution"`
	Incidents  int        `json:"incidents"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// Store defines persistence for the build and serving phases. A failed
// save or load is fatal to that operation only; it never touches a grid
// already held in memory.
type Store interface {
	Migrate(ctx context.Context) error

	InsertIncidents(ctx context.Context, incidents []safety.Incident) (int64, error)
	LoadIncidents(ctx context.Context) ([]safety.Incident, error)

	// SaveGrid replaces the persisted snapshot with the given grid in one
	// transaction.
	SaveGrid(ctx context.Context, grid *safety.Grid) error

	// LoadGrid reconstructs an immutable grid from the persisted snapshot.
	// The snapshot's resolution must match the indexer's.
	LoadGrid(ctx context.Context, ix *hexgrid.Indexer) (*safety.Grid, error)

	Status(ctx context.Context) (GridStatus, error)

	Close() error
}

// Open constructs the configured backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewPostgres(pool, pool.Close), nil
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
