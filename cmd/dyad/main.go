// Dyad is the command-line entry point.
package main

import (
	"os"

	"github.com/0xalgebra/dyad/internal/cmd/root"
	"github.com/0xalgebra/dyad/internal/cmdutil"
	"github.com/0xalgebra/dyad/internal/logger"
)

// Set at build time via ldflags.
var (
	version   = "DEV"
	buildDate = ""
)

func main() {
	defer logger.CloseFileWriter() //nolint:errcheck

	f := cmdutil.NewFactory(version, buildDate)
	defer f.Bus.Close()

	rootCmd := root.NewCmdRoot(f)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
