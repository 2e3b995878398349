package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wireless-wizards/saferoute/internal/config"
	"github.com/wireless-wizards/saferoute/internal/hexgrid"
	"github.com/wireless-wizards/saferoute/internal/safety"
	"github.com/wireless-wizards/saferoute/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "saferoute",
	Short: "Hexagonal-grid safety scoring for travel routes",
	Long:  "Converts geolocated incident records into a hexagonal grid of day/night safety scores and uses it to score and rank candidate travel routes.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openStore opens the configured backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func newIndexer() (*hexgrid.Indexer, error) {
	return hexgrid.NewIndexer(cfg.Grid.Resolution)
}

func newEngine() (*safety.Engine, error) {
	return safety.NewEngine(cfg.Scoring)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
