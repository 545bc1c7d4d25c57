// Package bus provides an in-process named publish/subscribe channel.
//
// Topics are plain strings. Each subscriber gets its own buffered queue and
// dispatch goroutine, so a slow handler never blocks the publisher or other
// subscribers. Delivery is at-most-once and in publish order per subscriber;
// events published while a subscriber's queue is full are dropped for that
// subscriber.
package bus

import (
	"sync"

	"github.com/google/uuid"

	"github.com/0xalgebra/dyad/internal/logger"
)

// queueSize is the per-subscriber event buffer. Progress streams can emit
// many events per second; 256 absorbs bursts without unbounded growth.
const queueSize = 256

// InstallOutput is the canonical payload published on the engine install
// output topic. One event per emitted line; InProgress marks lines that
// redraw in place (e.g. a download percentage) rather than append.
type InstallOutput struct {
	Line       string `mapstructure:"line"`
	InProgress bool   `mapstructure:"inProgress"`
}

// Handler is invoked once per event delivered to a subscription.
type Handler func(payload any)

// CancelFunc removes a subscription. Safe to call more than once.
type CancelFunc func()

type subscriber struct {
	queue chan any
}

// Bus is a topic-keyed fan-out broker. The zero value is not usable;
// construct with New.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[string]*subscriber
	closed bool
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		topics: make(map[string]map[string]*subscriber),
	}
}

// Subscribe registers handler on topic and returns a CancelFunc that removes
// it. The same handler value may be registered on multiple topics; each
// registration is tracked independently, so cancelling one never detaches
// another.
func (b *Bus) Subscribe(topic string, handler Handler) CancelFunc {
	sub := &subscriber{queue: make(chan any, queueSize)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.queue)
		return func() {}
	}
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[string]*subscriber)
		b.topics[topic] = subs
	}
	id := uuid.NewString()
	subs[id] = sub
	b.mu.Unlock()

	go func() {
		for payload := range sub.queue {
			handler(payload)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.topics[topic]; ok {
				if _, ok := subs[id]; ok {
					delete(subs, id)
					close(sub.queue)
				}
			}
		})
	}
}

// Publish delivers payload to every current subscriber of topic.
// It never blocks: subscribers whose queue is full miss the event.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, sub := range b.topics[topic] {
		select {
		case sub.queue <- payload:
		default:
			logger.Debug().Str("topic", topic).Msg("bus subscriber queue full, dropping event")
		}
	}
}

// Close shuts down the bus. All subscriptions are removed and their
// dispatch goroutines drain and exit. Publish and Subscribe become no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.topics {
		for id, sub := range subs {
			close(sub.queue)
			delete(subs, id)
		}
	}
}
