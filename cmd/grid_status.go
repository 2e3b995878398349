package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var gridStatusShowConfig bool

var gridStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show persisted grid snapshot status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if gridStatusShowConfig {
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return eris.Wrap(err, "grid status: marshal config")
			}
			fmt.Println(string(out))
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		status, err := st.Status(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "cells:      %d\n", status.Cells)
		fmt.Fprintf(os.Stdout, "resolution: %d\n", status.Resolution)
		fmt.Fprintf(os.Stdout, "incidents:  %d\n", status.Incidents)
		if status.UpdatedAt != nil {
			fmt.Fprintf(os.Stdout, "updated_at: %s\n", status.UpdatedAt.Format("2006-01-02 15:04:05"))
		} else {
			fmt.Fprintln(os.Stdout, "updated_at: never")
		}
		return nil
	},
}

func init() {
	gridStatusCmd.Flags().BoolVar(&gridStatusShowConfig, "show-config", false, "print the effective configuration as YAML")
	gridCmd.AddCommand(gridStatusCmd)
}
