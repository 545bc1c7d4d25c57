package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector records payloads delivered to a handler.
type collector struct {
	mu       sync.Mutex
	payloads []any
}

func (c *collector) handler(payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func (c *collector) all() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.payloads...)
}

// waitFor polls until cond returns true or the timeout elapses.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestBus_PublishReachesSubscriber(t *testing.T) {
	b := New()
	defer b.Close()

	c := &collector{}
	cancel := b.Subscribe("install", c.handler)
	defer cancel()

	b.Publish("install", InstallOutput{Line: "hello", InProgress: false})

	waitFor(t, func() bool { return c.len() == 1 })
	require.Len(t, c.all(), 1)
	assert.Equal(t, InstallOutput{Line: "hello"}, c.all()[0])
}

func TestBus_DeliveryOrderPreserved(t *testing.T) {
	b := New()
	defer b.Close()

	c := &collector{}
	cancel := b.Subscribe("install", c.handler)
	defer cancel()

	for i := 0; i < 50; i++ {
		b.Publish("install", i)
	}

	waitFor(t, func() bool { return c.len() == 50 })
	for i, p := range c.all() {
		assert.Equal(t, i, p)
	}
}

func TestBus_TopicsAreIsolated(t *testing.T) {
	b := New()
	defer b.Close()

	install := &collector{}
	other := &collector{}
	defer b.Subscribe("install", install.handler)()
	defer b.Subscribe("other", other.handler)()

	b.Publish("install", "only for install")

	waitFor(t, func() bool { return install.len() == 1 })
	assert.Zero(t, other.len())
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	defer b.Close()

	c := &collector{}
	cancel := b.Subscribe("install", c.handler)

	b.Publish("install", "before")
	waitFor(t, func() bool { return c.len() == 1 })

	cancel()
	b.Publish("install", "after")

	// Give any stray delivery a chance to land before asserting.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, c.len())
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	b := New()
	defer b.Close()

	cancel := b.Subscribe("install", func(any) {})
	cancel()
	assert.NotPanics(t, func() { cancel() })
}

func TestBus_RepeatedSubscribeCancelCyclesDoNotLeak(t *testing.T) {
	b := New()
	defer b.Close()

	for i := 0; i < 100; i++ {
		c := &collector{}
		cancel := b.Subscribe("install", c.handler)
		cancel()
	}

	// After every cycle cancelled, a publish must reach nobody.
	c := &collector{}
	cancel := b.Subscribe("install", c.handler)
	defer cancel()

	b.Publish("install", "ping")
	waitFor(t, func() bool { return c.len() == 1 })

	b.mu.RLock()
	remaining := len(b.topics["install"])
	b.mu.RUnlock()
	assert.Equal(t, 1, remaining)
}

func TestBus_PublishAfterCloseIsNoop(t *testing.T) {
	b := New()

	c := &collector{}
	b.Subscribe("install", c.handler)
	b.Close()

	assert.NotPanics(t, func() { b.Publish("install", "late") })
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, c.len())
}

func TestBus_SubscribeAfterCloseIsNoop(t *testing.T) {
	b := New()
	b.Close()

	cancel := b.Subscribe("install", func(any) {})
	assert.NotPanics(t, func() { cancel() })
}
