// Package server exposes the safety grid and route ranking over HTTP. The
// grid is an immutable snapshot behind an atomic pointer: requests read it
// lock-free, and a refresh builds a replacement before swapping it in.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wireless-wizards/saferoute/internal/config"
	"github.com/wireless-wizards/saferoute/internal/hexgrid"
	"github.com/wireless-wizards/saferoute/internal/safety"
	"github.com/wireless-wizards/saferoute/internal/store"
)

// RouteSource supplies candidate route geometries between two points.
type RouteSource interface {
	Routes(ctx context.Context, start, end safety.Point, alternatives int) ([]safety.Route, error)
	Configured() bool
}

// Server holds the serving-phase state.
type Server struct {
	cfg     config.ServerConfig
	store   store.Store
	routes  RouteSource
	indexer *hexgrid.Indexer
	engine  *safety.Engine
	workers int
	grid    atomic.Pointer[safety.Grid]
}

// New creates a Server over an initial grid snapshot. Pass an empty grid
// (safety.FromSnapshot with no rows) when nothing has been built yet.
func New(cfg config.ServerConfig, st store.Store, routes RouteSource, ix *hexgrid.Indexer, eng *safety.Engine, workers int, initial *safety.Grid) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		routes:  routes,
		indexer: ix,
		engine:  eng,
		workers: workers,
	}
	s.grid.Store(initial)
	return s
}

// Grid returns the current snapshot.
func (s *Server) Grid() *safety.Grid {
	return s.grid.Load()
}

// Refresh rebuilds the grid from stored incidents, persists the new
// snapshot, and swaps it in. In-flight requests keep reading the old grid
// until the swap; a failed refresh leaves it untouched.
func (s *Server) Refresh(ctx context.Context) (*safety.Grid, error) {
	incidents, err := s.store.LoadIncidents(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "server: refresh: load incidents")
	}

	set, err := safety.NewAggregator(s.indexer, s.workers).Aggregate(ctx, incidents)
	if err != nil {
		return nil, eris.Wrap(err, "server: refresh: aggregate")
	}

	grid, err := safety.Build(s.indexer, s.engine, set)
	if err != nil {
		return nil, eris.Wrap(err, "server: refresh: build grid")
	}

	if err := s.store.SaveGrid(ctx, grid); err != nil {
		return nil, eris.Wrap(err, "server: refresh: save grid")
	}

	s.grid.Store(grid)
	zap.L().Info("refreshed safety grid",
		zap.Int("incidents", len(incidents)),
		zap.Int("cells", grid.Size()),
	)
	return grid, nil
}

// Handler builds the chi router with CORS, request IDs, and logging.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/safety/score", s.handleScore)
		r.Get("/routes/safe", s.handleSafeRoutes)
		r.Post("/grid/refresh", s.handleRefresh)
		r.Get("/density", s.handleDensity)
		r.Get("/grid/status", s.handleStatus)
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", s.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}
