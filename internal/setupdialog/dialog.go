package setupdialog

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mitchellh/mapstructure"

	"github.com/0xalgebra/dyad/internal/bus"
	"github.com/0xalgebra/dyad/internal/logger"
	"github.com/0xalgebra/dyad/internal/tui"
)

// eventBufferSize is the dialog-side event buffer between the bus handler
// goroutine and the tea loop. Overflow drops events rather than blocking
// the bus.
const eventBufferSize = 64

// StartFunc is the one-shot start-install call. It blocks until the
// external installer finishes and reports success, or fails with an error
// detail. Closing the dialog does not cancel an outstanding call.
type StartFunc func(ctx context.Context) (bool, error)

// Options configures a Dialog.
type Options struct {
	// Bus carries the installer's progress events.
	Bus *bus.Bus

	// Topic is the event channel the dialog subscribes to while open.
	Topic string

	// Start issues the install. Invoked at most once per attempt.
	Start StartFunc

	// OnInstalled, if set, is invoked exactly once when an attempt
	// completes successfully.
	OnInstalled func()
}

// Dialog is the modal install dialog. It owns one Session per open cycle,
// subscribes to the progress topic while open, and serializes all four
// event sources (keys, stream events, the start call's resolution, and
// open/close transitions) onto the tea loop.
type Dialog struct {
	opts    Options
	session *Session

	viewport tui.ViewportModel
	spinner  spinner.Model

	open bool

	// handler is captured once so that unsubscribe releases the exact
	// registration that subscribe added.
	handler     bus.Handler
	unsubscribe bus.CancelFunc
	events      chan any

	width    int
	height   int
	quitting bool
}

// BubbleTea messages.
type (
	outputMsg      struct{ payload any }
	startResultMsg struct {
		ok  bool
		err error
	}
)

// New creates a Dialog. Bus, Topic, and Start are required.
func New(opts Options) *Dialog {
	if opts.Bus == nil {
		panic("setupdialog: Options.Bus must not be nil")
	}
	if opts.Topic == "" {
		panic("setupdialog: Options.Topic must not be empty")
	}
	if opts.Start == nil {
		panic("setupdialog: Options.Start must not be nil")
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = tui.ProgressStyle

	d := &Dialog{
		opts:    opts,
		session: NewSession(),
		spinner: s,
		events:  make(chan any, eventBufferSize),
		viewport: tui.NewViewport(tui.ViewportConfig{
			Width:  72,
			Height: 14,
		}),
	}
	events := d.events
	d.handler = func(payload any) {
		select {
		case events <- payload:
		default:
			logger.Debug().Msg("setup dialog event buffer full, dropping event")
		}
	}
	return d
}

// Init implements tea.Model. The dialog mounts open.
func (d *Dialog) Init() tea.Cmd {
	d.openDialog()
	return tea.Batch(d.spinner.Tick, waitForOutput(d.events))
}

// Update implements tea.Model.
func (d *Dialog) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.viewport = d.viewport.SetSize(min(msg.Width-8, 96), max(msg.Height-10, 5))
		d.refreshLog()

	case tea.KeyMsg:
		return d.handleKey(msg)

	case outputMsg:
		if d.open {
			if ev, ok := decodeOutput(msg.payload); ok {
				d.session.Apply(ev.Line, ev.InProgress)
				d.refreshLog()
			}
		}
		return d, waitForOutput(d.events)

	case startResultMsg:
		// A result that lands after the dialog was closed and reset
		// belongs to a forgotten attempt.
		if !d.session.Busy() {
			return d, nil
		}
		d.session.Finish(msg.ok, msg.err)
		d.refreshLog()
		if d.session.Status() == StatusSuccess && d.opts.OnInstalled != nil {
			d.opts.OnInstalled()
		}
		return d, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	}

	return d, nil
}

func (d *Dialog) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		d.closeDialog()
		d.quitting = true
		return d, tea.Quit

	case "esc":
		if d.open {
			d.closeDialog()
			return d, nil
		}
		d.quitting = true
		return d, tea.Quit

	case "enter":
		if !d.open {
			d.openDialog()
			return d, nil
		}
		if !d.session.Begin() {
			return d, nil
		}
		d.refreshLog()
		return d, d.startCmd()
	}

	return d, nil
}

// openDialog starts a fresh dialog session and subscribes to the progress
// topic. No-op when already open.
func (d *Dialog) openDialog() {
	if d.open {
		return
	}
	d.session.Reset()
	d.refreshLog()
	d.unsubscribe = d.opts.Bus.Subscribe(d.opts.Topic, d.handler)
	d.open = true
}

// closeDialog releases the subscription and discards the session state.
// The external install, if still running, is not cancelled.
func (d *Dialog) closeDialog() {
	if !d.open {
		return
	}
	if d.unsubscribe != nil {
		d.unsubscribe()
		d.unsubscribe = nil
	}
	d.open = false
	d.session.Reset()
}

// startCmd issues the start-install call off the tea loop and feeds its
// resolution back as a message.
func (d *Dialog) startCmd() tea.Cmd {
	start := d.opts.Start
	return func() tea.Msg {
		ok, err := start(context.Background())
		return startResultMsg{ok: ok, err: err}
	}
}

// waitForOutput blocks on the dialog's event buffer and re-emits one bus
// payload as a tea message.
func waitForOutput(events <-chan any) tea.Cmd {
	return func() tea.Msg {
		return outputMsg{payload: <-events}
	}
}

// decodeOutput extracts an InstallOutput from a bus payload. Payloads that
// are not the canonical struct must be maps carrying both a string "line"
// and a bool "inProgress"; anything else is dropped.
func decodeOutput(payload any) (bus.InstallOutput, bool) {
	if ev, ok := payload.(bus.InstallOutput); ok {
		return ev, true
	}

	var ev bus.InstallOutput
	m, ok := payload.(map[string]any)
	if !ok {
		return ev, false
	}
	if _, ok := m["line"]; !ok {
		return ev, false
	}
	if _, ok := m["inProgress"]; !ok {
		return ev, false
	}
	if err := mapstructure.Decode(m, &ev); err != nil {
		return ev, false
	}
	return ev, true
}

// refreshLog re-renders the output log into the viewport and pins the
// scroll position to the bottom so the most recent line stays visible.
func (d *Dialog) refreshLog() {
	lines := d.session.Lines()
	rendered := make([]string, len(lines))
	for i, line := range lines {
		rendered[i] = renderLine(line)
	}
	d.viewport = d.viewport.SetContent(strings.Join(rendered, "\n")).ScrollToBottom()
}

// renderLine styles a single log line by its derived category.
func renderLine(line string) string {
	switch Classify(line) {
	case CategoryCommand:
		return tui.CommandStyle.Render(line)
	case CategorySuccess:
		return tui.SuccessStyle.Render(line)
	case CategoryError:
		return tui.ErrorStyle.Render(line)
	case CategoryProgress:
		return tui.ProgressStyle.Render(line)
	case CategoryDivider:
		return tui.DividerStyle.Render(line)
	case CategoryStep:
		return tui.StepStyle.Render(line)
	case CategoryBlank:
		// Fixed-height spacer, not styled text.
		return ""
	default:
		return line
	}
}

// View implements tea.Model.
func (d *Dialog) View() string {
	if d.quitting {
		return ""
	}
	if !d.open {
		return tui.MutedStyle.Render("Engine setup closed.") + "\n" +
			tui.SubtitleStyle.Render("enter: reopen • q: quit") + "\n"
	}

	title := tui.TitleStyle.Render("Install Dyad Engine")
	desc := tui.SubtitleStyle.Render("Downloads the engine binary and places it on your PATH.")

	blocks := []string{title, desc, d.viewport.View(), d.statusLine()}
	return tui.Stack(0, blocks...) + "\n"
}

// statusLine renders the footer for the current state: trigger hints while
// idle, a spinner while installing, a sticky done line on success, and a
// persistent banner plus a try-again hint on error.
func (d *Dialog) statusLine() string {
	switch d.session.Status() {
	case StatusInstalling:
		return d.spinner.View() + tui.ProgressStyle.Render("Installing…")
	case StatusSuccess:
		return tui.SuccessStyle.Render("✓ Engine installed") + "\n" +
			tui.SubtitleStyle.Render("esc: close • q: quit")
	case StatusError:
		banner := tui.BannerErrorStyle.Render("Installation failed. The output above has details.")
		return banner + "\n" + tui.SubtitleStyle.Render("enter: try again • esc: close")
	default:
		return tui.SubtitleStyle.Render("enter: install • esc: close • q: quit")
	}
}
