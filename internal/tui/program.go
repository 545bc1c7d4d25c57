package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/0xalgebra/dyad/internal/iostreams"
	"github.com/0xalgebra/dyad/internal/logger"
)

// ProgramOption configures a BubbleTea program.
type ProgramOption func(*programOptions)

type programOptions struct {
	altScreen bool
}

// WithAltScreen enables or disables the alternate screen buffer.
func WithAltScreen(enabled bool) ProgramOption {
	return func(o *programOptions) {
		o.altScreen = enabled
	}
}

// RunProgram creates and runs a BubbleTea program bound to the given
// IOStreams, with console logging suppressed for the program's lifetime.
// It returns the final model state after the program exits.
func RunProgram(ios *iostreams.IOStreams, model tea.Model, opts ...ProgramOption) (tea.Model, error) {
	var cfg programOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	teaOpts := []tea.ProgramOption{
		tea.WithInput(ios.In),
		tea.WithOutput(ios.Out),
	}
	if cfg.altScreen {
		teaOpts = append(teaOpts, tea.WithAltScreen())
	}

	logger.SetInteractiveMode(true)
	defer logger.SetInteractiveMode(false)

	p := tea.NewProgram(model, teaOpts...)
	return p.Run()
}
