// Package version implements the version subcommand.
package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xalgebra/dyad/internal/cmdutil"
)

// Format renders version info for display.
func Format(version, buildDate string) string {
	if buildDate == "" {
		return fmt.Sprintf("dyad %s", version)
	}
	return fmt.Sprintf("dyad %s (%s)", version, buildDate)
}

// NewCmdVersion creates the version command.
func NewCmdVersion(f *cmdutil.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show dyad version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(f.IOStreams.Out, Format(f.Version, f.BuildDate))
		},
	}
}
