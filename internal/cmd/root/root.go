// Package root assembles the dyad command tree.
package root

import (
	"github.com/spf13/cobra"

	"github.com/0xalgebra/dyad/internal/cmdutil"
	"github.com/0xalgebra/dyad/internal/cmd/setup"
	versioncmd "github.com/0xalgebra/dyad/internal/cmd/version"
	"github.com/0xalgebra/dyad/internal/config"
	"github.com/0xalgebra/dyad/internal/logger"
)

// NewCmdRoot creates the root command for the dyad CLI.
func NewCmdRoot(f *cmdutil.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dyad",
		Short: "dyad builds apps with a local AI engine",
		Long: `Dyad is a local-first app builder.

Quick start:
  dyad setup       # Install the engine binary
  dyad version     # Show version information`,
		SilenceUsage: true,
		Version:      f.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initializeLogger(f.Debug)

			logger.Debug().
				Str("version", f.Version).
				Bool("debug", f.Debug).
				Msg("dyad starting")
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&f.Debug, "debug", "D", false, "Enable debug logging")
	cmd.SetVersionTemplate(versioncmd.Format(f.Version, f.BuildDate) + "\n")

	cmd.AddCommand(setup.NewCmdSetup(f))
	cmd.AddCommand(versioncmd.NewCmdVersion(f))

	return cmd
}

// initializeLogger sets up file logging when settings allow it, falling
// back to console-only logging on any error.
func initializeLogger(debug bool) {
	loader, err := config.NewSettingsLoader()
	if err != nil {
		logger.Init(debug)
		logger.Warn().Err(err).Msg("file logging unavailable: failed to locate settings")
		return
	}

	settings, err := loader.Load()
	if err != nil {
		logger.Init(debug)
		logger.Warn().Err(err).Msg("file logging unavailable: failed to load settings")
		return
	}

	logsDir, err := config.LogsDir()
	if err != nil {
		logger.Init(debug)
		logger.Warn().Err(err).Msg("file logging unavailable: failed to get logs directory")
		return
	}

	err = logger.InitWithFile(debug, logsDir, logger.FileConfig{
		Enabled:    settings.Logging.IsFileEnabled(),
		MaxSizeMB:  settings.Logging.GetMaxSizeMB(),
		MaxAgeDays: settings.Logging.GetMaxAgeDays(),
		MaxBackups: settings.Logging.GetMaxBackups(),
	})
	if err != nil {
		logger.Init(debug)
		logger.Warn().Err(err).Msg("file logging unavailable")
	}
}
