package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tiffon/gdbdap/internal/config"
	"github.com/tiffon/gdbdap/internal/logging"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	log := logging.New("gdbdap")
	cfg := config.Default()

	root := &cobra.Command{
		Use:   "gdbdap",
		Short: "Bridges the Debug Adapter Protocol to GDB's machine interface",
		Long: `gdbdap is a debug adapter: it speaks DAP to an editor or IDE on one
side and GDB's --interpreter=mi2 machine interface to a debugger process
on the other, translating requests, events, and variable inspection
between the two.`,
		SilenceUsage: true,
	}
	root.CompletionOptions.HiddenDefaultCmd = true

	applyVerbosity := log.AddVerbosityFlag(root.PersistentFlags())

	var cfgFile string
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to an optional YAML config file")
	config.BindFlags(root.PersistentFlags(), &cfg)

	// Precedence is defaults < YAML file < explicit flags. Flags are bound
	// directly onto cfg above so they already win once set; a YAML file is
	// only allowed to overwrite fields the caller didn't also pass a flag
	// for, applied here once flag parsing (and Changed()) is known.
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		applyVerbosity()
		if cfgFile == "" {
			return nil
		}
		fromFile, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("gdbdap: %w", err)
		}
		flags := cmd.Flags()
		if !flags.Changed("gdb-path") {
			cfg.GdbPath = fromFile.GdbPath
		}
		if !flags.Changed("listen") {
			cfg.ListenAddr = fromFile.ListenAddr
		}
		if !flags.Changed("session-dir") {
			cfg.SessionDir = fromFile.SessionDir
		}
		if !flags.Changed("ws-path") {
			cfg.WebSocketURL = fromFile.WebSocketURL
		}
		return nil
	}

	root.AddCommand(newStdioCommand(log.Logger, &cfg))
	root.AddCommand(newServeCommand(log.Logger, &cfg))
	root.AddCommand(newVersionCommand())

	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print gdbdap's version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println(version)
			return nil
		},
	}
}
