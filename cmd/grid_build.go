package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wireless-wizards/saferoute/internal/safety"
)

var gridBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the safety grid from stored incidents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		runID := uuid.NewString()
		zap.L().Info("starting grid build", zap.String("run_id", runID))

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		ix, err := newIndexer()
		if err != nil {
			return err
		}
		eng, err := newEngine()
		if err != nil {
			return err
		}

		incidents, err := st.LoadIncidents(ctx)
		if err != nil {
			return err
		}

		set, err := safety.NewAggregator(ix, cfg.Grid.Workers).Aggregate(ctx, incidents)
		if err != nil {
			return err
		}

		grid, err := safety.Build(ix, eng, set)
		if err != nil {
			return err
		}

		if err := st.SaveGrid(ctx, grid); err != nil {
			return err
		}

		zap.L().Info("grid build complete",
			zap.String("run_id", runID),
			zap.Int("incidents", set.Total),
			zap.Int("skipped", set.Skipped),
			zap.Int("unknown_time", set.Unknown),
			zap.Int("cells", grid.Size()),
			zap.Int("resolution", grid.Resolution()),
		)
		return nil
	},
}

func init() {
	gridCmd.AddCommand(gridBuildCmd)
}
