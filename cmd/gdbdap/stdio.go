package main

import (
	"context"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/tiffon/gdbdap/internal/adapter"
	"github.com/tiffon/gdbdap/internal/config"
	"github.com/tiffon/gdbdap/internal/transport"
)

// newStdioCommand runs a single DAP session over stdin/stdout, the shape
// an IDE launches a debug adapter executable in directly (no listener,
// no multi-session fan-out — generalizes tiffon-nvlv's single always-on
// server process down to the one-process-per-debug-session model most
// DAP clients assume).
func newStdioCommand(log logr.Logger, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Run one debug session framed over stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			tr := transport.NewStdio(os.Stdin, os.Stdout)
			session := adapter.NewSession(log, tr, cfg.GdbPath)
			session.SessionBaseDir = cfg.SessionDir
			return session.Run(context.Background())
		},
	}
}
