// Package cmdutil provides shared dependencies for CLI commands.
package cmdutil

import (
	"sync"

	"github.com/0xalgebra/dyad/internal/bus"
	"github.com/0xalgebra/dyad/internal/config"
	"github.com/0xalgebra/dyad/internal/engine"
	"github.com/0xalgebra/dyad/internal/iostreams"
)

// Factory provides shared dependencies for CLI commands. It is a
// dependency injection container: commands extract only the fields they
// need, and tests substitute fakes.
type Factory struct {
	// Version info (set at build time via ldflags)
	Version   string
	BuildDate string

	// Debug is set from the persistent --debug flag before commands run.
	Debug bool

	// IO streams for input/output (for testability)
	IOStreams *iostreams.IOStreams

	// Bus carries install progress events between installer and dialog.
	Bus *bus.Bus

	// Dependency providers (closures, lazily initialized)
	Settings  func() (*config.Settings, error)
	Installer func(*config.Settings) *engine.Installer
}

// NewFactory wires the production dependency graph.
func NewFactory(version, buildDate string) *Factory {
	f := &Factory{
		Version:   version,
		BuildDate: buildDate,
		IOStreams: iostreams.System(),
		Bus:       bus.New(),
	}

	var (
		settingsOnce sync.Once
		settings     *config.Settings
		settingsErr  error
	)
	f.Settings = func() (*config.Settings, error) {
		settingsOnce.Do(func() {
			loader, err := config.NewSettingsLoader()
			if err != nil {
				settingsErr = err
				return
			}
			settings, settingsErr = loader.Load()
		})
		return settings, settingsErr
	}

	f.Installer = func(s *config.Settings) *engine.Installer {
		return engine.New(engine.Config{
			Repo:       s.Engine.GetRepo(),
			InstallDir: s.Engine.GetInstallDir(),
			BinaryName: s.Engine.GetBinaryName(),
			VerifyCmd:  s.Engine.VerifyCmd,
		}, f.Bus)
	}

	return f
}
