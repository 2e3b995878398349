package main

import (
	"github.com/spf13/cobra"
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Build and inspect the safety grid",
	Long:  "Offline grid phase: aggregate stored incidents into per-cell day/night safety scores and persist the snapshot.",
}

func init() {
	rootCmd.AddCommand(gridCmd)
}
