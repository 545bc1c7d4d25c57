// Package setup implements the setup subcommand: the modal dialog that
// installs the dyad engine.
package setup

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/0xalgebra/dyad/internal/cmdutil"
	"github.com/0xalgebra/dyad/internal/engine"
	"github.com/0xalgebra/dyad/internal/logger"
	"github.com/0xalgebra/dyad/internal/setupdialog"
	"github.com/0xalgebra/dyad/internal/tui"
)

// NewCmdSetup creates the setup command.
func NewCmdSetup(f *cmdutil.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Install the dyad engine binary",
		Long: `Setup opens the engine install dialog.

The dialog downloads the latest engine release, extracts it, places the
binary, and verifies it, streaming the installer's output as it runs.
Press enter to start the install, esc to close the dialog, q to quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(f)
		},
	}
}

func runSetup(f *cmdutil.Factory) error {
	if !f.IOStreams.CanRunTUI() {
		return errors.New("setup requires an interactive terminal")
	}

	settings, err := f.Settings()
	if err != nil {
		return err
	}
	installer := f.Installer(settings)

	dialog := setupdialog.New(setupdialog.Options{
		Bus:   f.Bus,
		Topic: engine.TopicInstallOutput,
		Start: installer.Run,
		OnInstalled: func() {
			logger.Info().Msg("engine installed")
		},
	})

	_, err = tui.RunProgram(f.IOStreams, dialog, tui.WithAltScreen(true))
	return err
}
