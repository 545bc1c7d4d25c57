// Package setupdialog implements the modal dialog that drives and
// visualizes the engine install: a small state machine over the install
// lifecycle plus a reducer that folds streamed output lines into a
// terminal-style log.
package setupdialog

// Status is the install lifecycle state.
type Status int

const (
	// StatusIdle means no install attempt has started in this dialog session.
	StatusIdle Status = iota

	// StatusInstalling means the start-install call is in flight.
	StatusInstalling

	// StatusSuccess means the last attempt completed successfully.
	// Success is sticky: further start attempts are no-ops until the
	// dialog session is reset.
	StatusSuccess

	// StatusError means the last attempt failed. A new attempt may be
	// started from this state.
	StatusError
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusInstalling:
		return "installing"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Session is the state owned by one open dialog: install status, the
// output log, and whether the start-install call is outstanding.
//
// The log is append-only except for its last entry, which is replaced in
// place while the stream reports the entry as still in progress. A Session
// is created fresh each time the dialog opens and discarded when it closes;
// it is not safe for concurrent use; all mutation happens on the dialog's
// event loop.
type Session struct {
	status Status
	lines  []string
	busy   bool

	// provisional marks the last log entry as written by an in-progress
	// event, meaning the next in-progress event redraws it in place.
	// Finalized entries are never replaced.
	provisional bool
}

// NewSession returns an idle session with an empty log.
func NewSession() *Session {
	return &Session{}
}

// Status returns the current install status.
func (s *Session) Status() Status { return s.status }

// Busy reports whether a start-install call is outstanding.
func (s *Session) Busy() bool { return s.busy }

// Lines returns a copy of the output log in render order.
func (s *Session) Lines() []string {
	return append([]string(nil), s.lines...)
}

// Len returns the number of log entries.
func (s *Session) Len() int { return len(s.lines) }

// Begin starts a new install attempt. It returns false without side
// effects when the attempt must not start: after a successful install
// (sticky success) or while a call is already outstanding. These are two
// separate invariants, checked independently.
//
// On true: the busy flag is set, status moves to installing, and any
// previous attempt's log is discarded.
func (s *Session) Begin() bool {
	if s.status == StatusSuccess {
		return false
	}
	if s.busy {
		return false
	}
	s.busy = true
	s.status = StatusInstalling
	s.lines = nil
	s.provisional = false
	return true
}

// Finish resolves the attempt started by Begin. A non-nil err is the
// raised-failure path: status moves to error and a blank separator plus a
// synthesized failure line are appended. ok=false with a nil err also
// moves to error but appends nothing, since the stream is expected to have
// already reported the reason. The busy flag clears in every case.
func (s *Session) Finish(ok bool, err error) {
	switch {
	case err != nil:
		s.status = StatusError
		s.lines = append(s.lines, "", "✗ Installation failed: "+err.Error())
		s.provisional = false
	case ok:
		s.status = StatusSuccess
	default:
		s.status = StatusError
	}
	s.busy = false
}

// Apply folds one stream event into the log, implementing "redraw current
// progress line" semantics. An in-progress event redraws the last entry in
// place when that entry is itself still in progress; otherwise it starts a
// new entry (the empty log is the degenerate case of this). inProgress=false
// always appends, finalizing whatever the previous in-place line
// represented.
func (s *Session) Apply(line string, inProgress bool) {
	if inProgress && s.provisional && len(s.lines) > 0 {
		s.lines[len(s.lines)-1] = line
		return
	}
	s.lines = append(s.lines, line)
	s.provisional = inProgress
}

// Reset returns the session to its initial values: idle, empty log, not
// busy. Called whenever the dialog closes; an install that is still
// running externally is simply forgotten.
func (s *Session) Reset() {
	*s = Session{}
}
