// Command gdbdap bridges a Debug Adapter Protocol client to a GDB
// subprocess speaking --interpreter=mi2. Restructured from
// tiffon-nvlv/cmd/startSvr.go's single flag-parsing main into cobra
// subcommands, following microsoft-dcp/internal/dcpctrl/commands/root.go's
// root-command-wires-subcommands-and-a-shared-verbosity-flag shape.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
