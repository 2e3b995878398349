package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/wireless-wizards/saferoute/internal/safety"
)

var (
	scoreLat    float64
	scoreLon    float64
	scorePeriod string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Look up the safety score for a point",
	Long:  "Loads the persisted grid snapshot and prints the safety score of the cell containing the given coordinate.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		bucket, err := safety.ParseBucket(scorePeriod)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		ix, err := newIndexer()
		if err != nil {
			return err
		}

		grid, err := st.LoadGrid(ctx, ix)
		if err != nil {
			return err
		}

		score, err := grid.Lookup(scoreLat, scoreLon, bucket)
		if err != nil {
			return err
		}
		cell, err := ix.PointToCell(scoreLat, scoreLon)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"lat":          scoreLat,
			"lon":          scoreLon,
			"time_period":  string(bucket),
			"cell":         string(cell),
			"safety_score": score,
			"safety_level": safety.Level(score),
		})
	},
}

func init() {
	scoreCmd.Flags().Float64Var(&scoreLat, "lat", 0, "latitude (required)")
	scoreCmd.Flags().Float64Var(&scoreLon, "lon", 0, "longitude (required)")
	scoreCmd.Flags().StringVar(&scorePeriod, "period", "overall", "time period: day, night, or overall")
	_ = scoreCmd.MarkFlagRequired("lat")
	_ = scoreCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(scoreCmd)
}
