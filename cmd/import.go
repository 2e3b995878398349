package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wireless-wizards/saferoute/internal/importer"
)

var importBoundaryPath string

var importCmd = &cobra.Command{
	Use:   "import <file.csv|file.xlsx>",
	Short: "Import incident records from CSV or XLSX",
	Long:  "Loads geolocated incident records into the store. Rows with invalid coordinates are counted and skipped. With --boundary, incidents outside the shapefile polygon are dropped.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var boundary *importer.Boundary
		if importBoundaryPath != "" {
			boundary, err = importer.LoadBoundary(importBoundaryPath)
			if err != nil {
				return err
			}
		}

		stats, err := importer.New(st, boundary, cfg.Import.BatchSize).ImportFile(ctx, args[0])
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("file", args[0]),
			zap.Int("rows", stats.Rows),
			zap.Int64("imported", stats.Imported),
			zap.Int("invalid", stats.Invalid),
			zap.Int("outside_boundary", stats.OutsideBoundary),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importBoundaryPath, "boundary", "", "city boundary shapefile; incidents outside are dropped")
	rootCmd.AddCommand(importCmd)
}
