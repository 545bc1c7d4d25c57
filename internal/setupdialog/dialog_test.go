package setupdialog

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xalgebra/dyad/internal/bus"
)

const testTopic = "engine:install-output"

// startStub is a controllable StartFunc that counts invocations.
type startStub struct {
	calls int32
	ok    bool
	err   error
}

func (s *startStub) fn(ctx context.Context) (bool, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.ok, s.err
}

func (s *startStub) count() int {
	return int(atomic.LoadInt32(&s.calls))
}

func newTestDialog(t *testing.T, stub *startStub) (*Dialog, *bus.Bus) {
	t.Helper()
	b := bus.New()
	t.Cleanup(b.Close)

	d := New(Options{
		Bus:   b,
		Topic: testTopic,
		Start: stub.fn,
	})
	d.Init()
	return d, b
}

// pressKey drives the dialog with a key press.
func pressKey(d *Dialog, key tea.KeyType) tea.Cmd {
	_, cmd := d.Update(tea.KeyMsg{Type: key})
	return cmd
}

// receiveEvent waits for one bus payload to land in the dialog's buffer.
func receiveEvent(t *testing.T, d *Dialog) any {
	t.Helper()
	select {
	case payload := <-d.events:
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered to dialog buffer")
		return nil
	}
}

func TestNew_ValidatesOptions(t *testing.T) {
	b := bus.New()
	defer b.Close()
	start := func(context.Context) (bool, error) { return true, nil }

	assert.Panics(t, func() { New(Options{Topic: "t", Start: start}) })
	assert.Panics(t, func() { New(Options{Bus: b, Start: start}) })
	assert.Panics(t, func() { New(Options{Bus: b, Topic: "t"}) })
}

func TestDialog_MountsOpenAndSubscribed(t *testing.T) {
	d, b := newTestDialog(t, &startStub{ok: true})

	assert.True(t, d.open)
	assert.Equal(t, StatusIdle, d.session.Status())

	b.Publish(testTopic, bus.InstallOutput{Line: "hello"})
	assert.Equal(t, bus.InstallOutput{Line: "hello"}, receiveEvent(t, d))
}

func TestDialog_CloseUnsubscribesAndResets(t *testing.T) {
	d, b := newTestDialog(t, &startStub{ok: true})
	d.Update(outputMsg{payload: bus.InstallOutput{Line: "leftover"}})
	require.Equal(t, 1, d.session.Len())

	pressKey(d, tea.KeyEsc)

	assert.False(t, d.open)
	assert.Equal(t, StatusIdle, d.session.Status())
	assert.Zero(t, d.session.Len())

	// The released handler is the one that was registered: nothing is
	// delivered after close.
	b.Publish(testTopic, bus.InstallOutput{Line: "after close"})
	select {
	case payload := <-d.events:
		t.Fatalf("unexpected delivery after close: %v", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDialog_ReopenYieldsFreshSessionAndSubscription(t *testing.T) {
	d, b := newTestDialog(t, &startStub{ok: true})
	d.Update(outputMsg{payload: bus.InstallOutput{Line: "old attempt"}})

	pressKey(d, tea.KeyEsc)
	pressKey(d, tea.KeyEnter)

	assert.True(t, d.open)
	assert.Equal(t, StatusIdle, d.session.Status())
	assert.Zero(t, d.session.Len())

	b.Publish(testTopic, bus.InstallOutput{Line: "new attempt"})
	assert.Equal(t, bus.InstallOutput{Line: "new attempt"}, receiveEvent(t, d))
}

func TestDialog_RepeatedOpenCloseCyclesLeakNoSubscriptions(t *testing.T) {
	d, b := newTestDialog(t, &startStub{ok: true})

	for i := 0; i < 20; i++ {
		pressKey(d, tea.KeyEsc)
		pressKey(d, tea.KeyEnter)
	}

	// Exactly one live subscription: one publish, one delivery.
	b.Publish(testTopic, bus.InstallOutput{Line: "once"})
	receiveEvent(t, d)
	select {
	case payload := <-d.events:
		t.Fatalf("duplicate delivery, leaked subscription: %v", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDialog_StreamScenario(t *testing.T) {
	d, _ := newTestDialog(t, &startStub{ok: true})

	events := []bus.InstallOutput{
		{Line: "Step 1: downloading", InProgress: false},
		{Line: "Progress: 10%", InProgress: true},
		{Line: "Progress: 55%", InProgress: true},
		{Line: "Progress: 100%", InProgress: true},
		{Line: "✓ Done", InProgress: false},
	}
	for _, ev := range events {
		d.Update(outputMsg{payload: ev})
	}

	assert.Equal(t, []string{"Step 1: downloading", "Progress: 100%", "✓ Done"}, d.session.Lines())
}

func TestDialog_MalformedPayloadIgnored(t *testing.T) {
	d, _ := newTestDialog(t, &startStub{ok: true})
	d.Update(outputMsg{payload: bus.InstallOutput{Line: "good"}})

	malformed := []any{
		map[string]any{"foo": "bar"},
		map[string]any{"line": "no progress flag"},
		map[string]any{"inProgress": true},
		map[string]any{"line": 42, "inProgress": true},
		"just a string",
		nil,
	}
	for _, payload := range malformed {
		d.Update(outputMsg{payload: payload})
	}

	assert.Equal(t, []string{"good"}, d.session.Lines())
}

func TestDialog_MapPayloadDecodes(t *testing.T) {
	d, _ := newTestDialog(t, &startStub{ok: true})

	d.Update(outputMsg{payload: map[string]any{"line": "from a map", "inProgress": false}})

	assert.Equal(t, []string{"from a map"}, d.session.Lines())
}

func TestDialog_EventsIgnoredWhileClosed(t *testing.T) {
	d, _ := newTestDialog(t, &startStub{ok: true})
	pressKey(d, tea.KeyEsc)

	d.Update(outputMsg{payload: bus.InstallOutput{Line: "while closed"}})

	assert.Zero(t, d.session.Len())
}

func TestDialog_StartSuccess(t *testing.T) {
	stub := &startStub{ok: true}
	d, _ := newTestDialog(t, stub)

	var notified int
	d.opts.OnInstalled = func() { notified++ }

	cmd := pressKey(d, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.Equal(t, StatusInstalling, d.session.Status())
	assert.True(t, d.session.Busy())

	d.Update(cmd())

	assert.Equal(t, StatusSuccess, d.session.Status())
	assert.False(t, d.session.Busy())
	assert.Equal(t, 1, stub.count())
	assert.Equal(t, 1, notified)
}

func TestDialog_StartRaisedFailure(t *testing.T) {
	stub := &startStub{err: errors.New("network timeout")}
	d, _ := newTestDialog(t, stub)

	cmd := pressKey(d, tea.KeyEnter)
	require.NotNil(t, cmd)
	d.Update(cmd())

	assert.Equal(t, StatusError, d.session.Status())
	assert.False(t, d.session.Busy())
	lines := d.session.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "", lines[0])
	assert.Equal(t, "✗ Installation failed: network timeout", lines[1])
}

func TestDialog_StartUnsuccessfulResult(t *testing.T) {
	stub := &startStub{ok: false}
	d, _ := newTestDialog(t, stub)

	cmd := pressKey(d, tea.KeyEnter)
	require.NotNil(t, cmd)
	d.Update(outputMsg{payload: bus.InstallOutput{Line: "✗ checksum mismatch"}})
	d.Update(cmd())

	assert.Equal(t, StatusError, d.session.Status())
	// No synthetic lines on the plain-unsuccessful path.
	assert.Equal(t, []string{"✗ checksum mismatch"}, d.session.Lines())
}

func TestDialog_StickySuccess(t *testing.T) {
	stub := &startStub{ok: true}
	d, _ := newTestDialog(t, stub)

	var notified int
	d.opts.OnInstalled = func() { notified++ }

	cmd := pressKey(d, tea.KeyEnter)
	d.Update(cmd())
	require.Equal(t, StatusSuccess, d.session.Status())

	for i := 0; i < 5; i++ {
		assert.Nil(t, pressKey(d, tea.KeyEnter))
	}

	assert.Equal(t, StatusSuccess, d.session.Status())
	assert.Equal(t, 1, stub.count())
	assert.Equal(t, 1, notified)
}

func TestDialog_BusyGuardBlocksSecondStart(t *testing.T) {
	stub := &startStub{ok: true}
	d, _ := newTestDialog(t, stub)

	first := pressKey(d, tea.KeyEnter)
	require.NotNil(t, first)

	// A second press while the call is outstanding is inert.
	assert.Nil(t, pressKey(d, tea.KeyEnter))

	d.Update(first())
	assert.Equal(t, 1, stub.count())
}

func TestDialog_ErrorIsRecoverable(t *testing.T) {
	stub := &startStub{err: errors.New("boom")}
	d, _ := newTestDialog(t, stub)

	cmd := pressKey(d, tea.KeyEnter)
	d.Update(cmd())
	require.Equal(t, StatusError, d.session.Status())

	// Flip the collaborator to succeed; retry must clear the log and run.
	stub.err = nil
	stub.ok = true
	retry := pressKey(d, tea.KeyEnter)
	require.NotNil(t, retry)
	assert.Equal(t, StatusInstalling, d.session.Status())
	assert.Zero(t, d.session.Len())

	d.Update(retry())
	assert.Equal(t, StatusSuccess, d.session.Status())
	assert.Equal(t, 2, stub.count())
}

func TestDialog_StaleResultAfterCloseIsDropped(t *testing.T) {
	stub := &startStub{ok: true}
	d, _ := newTestDialog(t, stub)

	cmd := pressKey(d, tea.KeyEnter)
	require.NotNil(t, cmd)
	msg := cmd()

	// Close mid-flight: the session forgets the attempt.
	pressKey(d, tea.KeyEsc)
	pressKey(d, tea.KeyEnter)

	d.Update(msg)

	assert.Equal(t, StatusIdle, d.session.Status())
	assert.Zero(t, d.session.Len())
}

func TestDialog_QuitClosesSubscription(t *testing.T) {
	d, b := newTestDialog(t, &startStub{ok: true})

	cmd := pressKey(d, tea.KeyCtrlC)
	require.NotNil(t, cmd)

	assert.False(t, d.open)
	b.Publish(testTopic, bus.InstallOutput{Line: "late"})
	select {
	case payload := <-d.events:
		t.Fatalf("unexpected delivery after quit: %v", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDialog_ViewRendersStates(t *testing.T) {
	stub := &startStub{err: errors.New("boom")}
	d, _ := newTestDialog(t, stub)
	d.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.Contains(t, d.View(), "Install Dyad Engine")
	assert.Contains(t, d.View(), "enter: install")

	cmd := pressKey(d, tea.KeyEnter)
	assert.Contains(t, d.View(), "Installing")

	d.Update(cmd())
	assert.Contains(t, d.View(), "Installation failed")
	assert.Contains(t, d.View(), "try again")

	pressKey(d, tea.KeyEsc)
	assert.Contains(t, d.View(), "Engine setup closed")
}
