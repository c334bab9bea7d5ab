// Package config resolves this adapter's runtime settings from defaults,
// an optional YAML file, and CLI flag overrides, in that precedence
// order. Grounded on tiffon-nvlv/cmd/startSvr.go's flag-based bootstrap
// (-websocket-port, -session-dir), generalized to github.com/spf13/pflag
// since the CLI now has subcommands, plus microsoft-dcp's use of
// gopkg.in/yaml.v3 for the optional file layer.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds every setting the adapter's subcommands need.
type Config struct {
	GdbPath      string `yaml:"gdbPath"`
	ListenAddr   string `yaml:"listenAddr"`
	SessionDir   string `yaml:"sessionDir"`
	WebSocketURL string `yaml:"webSocketPath"`
}

// Default returns the zero-config starting point: plain "gdb" on PATH,
// listening on port 4711 on all interfaces (the teacher's HandlerPath was "/nvlv";
// kept as the default WebSocket upgrade path here too), and a
// "gdbdap-sessions" directory under the OS temp dir.
func Default() Config {
	return Config{
		GdbPath:      "gdb",
		ListenAddr:   ":4711",
		SessionDir:   defaultSessionBaseDir(),
		WebSocketURL: "/nvlv",
	}
}

func defaultSessionBaseDir() string {
	return os.TempDir() + string(os.PathSeparator) + "gdbdap-sessions"
}

// Load starts from Default, overlays path (if non-empty) as a YAML file,
// then returns the result for flag overrides to be applied on top.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// BindFlags registers CLI overrides for every Config field on fs,
// binding directly to cfg's fields so fs.Parse applies them in place.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.GdbPath, "gdb-path", cfg.GdbPath, "path to the gdb binary to spawn")
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "address the serve subcommand listens on")
	fs.StringVar(&cfg.SessionDir, "session-dir", cfg.SessionDir, "base directory for per-session output logs")
	fs.StringVar(&cfg.WebSocketURL, "ws-path", cfg.WebSocketURL, "HTTP path the WebSocket transport upgrades on")
}
