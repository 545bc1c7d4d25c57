// Package iostreams provides testable access to standard input/output
// streams, following the GitHub CLI pattern.
package iostreams

import (
	"bytes"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IOStreams provides access to standard input/output/error streams.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer

	// TTY caches: -1 = unchecked, 0 = false, 1 = true.
	isInputTTY  int
	isOutputTTY int
	isStderrTTY int

	// colorEnabled: -1 = auto-detect, 0 = disabled, 1 = enabled.
	colorEnabled int
}

// System creates an IOStreams connected to the process's standard streams.
func System() *IOStreams {
	return &IOStreams{
		In:           os.Stdin,
		Out:          os.Stdout,
		ErrOut:       os.Stderr,
		isInputTTY:   -1,
		isOutputTTY:  -1,
		isStderrTTY:  -1,
		colorEnabled: -1,
	}
}

// Test creates an IOStreams backed by buffers for tests. Returns the
// streams plus the in, out, and errOut buffers.
func Test() (*IOStreams, *bytes.Buffer, *bytes.Buffer, *bytes.Buffer) {
	in := &bytes.Buffer{}
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	ios := &IOStreams{
		In:     in,
		Out:    out,
		ErrOut: errOut,
		// Buffers are never TTYs and never colored.
		isInputTTY:   0,
		isOutputTTY:  0,
		isStderrTTY:  0,
		colorEnabled: 0,
	}
	return ios, in, out, errOut
}

// IsInputTTY reports whether stdin is a terminal.
func (s *IOStreams) IsInputTTY() bool {
	if s.isInputTTY == -1 {
		s.isInputTTY = boolToCache(isTerminal(s.In))
	}
	return s.isInputTTY == 1
}

// IsOutputTTY reports whether stdout is a terminal.
func (s *IOStreams) IsOutputTTY() bool {
	if s.isOutputTTY == -1 {
		s.isOutputTTY = boolToCache(isTerminalWriter(s.Out))
	}
	return s.isOutputTTY == 1
}

// IsStderrTTY reports whether stderr is a terminal.
func (s *IOStreams) IsStderrTTY() bool {
	if s.isStderrTTY == -1 {
		s.isStderrTTY = boolToCache(isTerminalWriter(s.ErrOut))
	}
	return s.isStderrTTY == 1
}

// SetColorEnabled overrides color auto-detection.
func (s *IOStreams) SetColorEnabled(enabled bool) {
	s.colorEnabled = boolToCache(enabled)
}

// ColorEnabled reports whether output should be colored. Auto-detection
// requires a TTY on stdout, no NO_COLOR env var, and a color-capable
// terminal profile.
func (s *IOStreams) ColorEnabled() bool {
	if s.colorEnabled == -1 {
		enabled := s.IsOutputTTY() &&
			os.Getenv("NO_COLOR") == "" &&
			termenv.EnvColorProfile() != termenv.Ascii
		s.colorEnabled = boolToCache(enabled)
	}
	return s.colorEnabled == 1
}

// CanRunTUI reports whether a full-screen TUI can be displayed: both
// stdin and stdout must be terminals.
func (s *IOStreams) CanRunTUI() bool {
	return s.IsInputTTY() && s.IsOutputTTY()
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func boolToCache(b bool) int {
	if b {
		return 1
	}
	return 0
}
