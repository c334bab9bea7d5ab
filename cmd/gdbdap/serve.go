package main

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/tiffon/gdbdap/internal/adapter"
	"github.com/tiffon/gdbdap/internal/config"
)

// newServeCommand runs a multi-session WebSocket server, the direct
// generalization of tiffon-nvlv/cmd/startSvr.go's svr.Start(sessionDir,
// port) call onto internal/adapter.Server.
func newServeCommand(log logr.Logger, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a WebSocket server accepting multiple debug sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := &adapter.Server{
				Log:            log,
				GdbPath:        cfg.GdbPath,
				ListenAddr:     cfg.ListenAddr,
				WSPath:         cfg.WebSocketURL,
				SessionBaseDir: cfg.SessionDir,
			}
			return srv.ListenAndServe(context.Background())
		},
	}
}
