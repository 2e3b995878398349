package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wireless-wizards/saferoute/internal/directions"
	"github.com/wireless-wizards/saferoute/internal/safety"
	"github.com/wireless-wizards/saferoute/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the safety scoring HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

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

		grid, err := st.LoadGrid(ctx, ix)
		if err != nil {
			zap.L().Warn("no grid snapshot available, serving defaults until refresh", zap.Error(err))
			grid, err = safety.FromSnapshot(ix, nil)
			if err != nil {
				return err
			}
		}

		serverCfg := cfg.Server
		if servePort != 0 {
			serverCfg.Port = servePort
		}

		srv := server.New(serverCfg, st, directions.NewClient(cfg.Directions), ix, eng, cfg.Grid.Workers, grid)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
