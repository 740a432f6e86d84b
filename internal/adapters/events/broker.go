// Package events fans gameplay events out to live subscribers.
//
// The broker sits between the session state machine and the websocket
// layer. Publishing never blocks: a subscriber that cannot keep up has
// events dropped rather than stalling the game tick.
package events

import (
	"sync"

	"github.com/molehit/molehit/internal/domain/session"
	"github.com/molehit/molehit/pkg/logger"
	"github.com/molehit/molehit/pkg/metrics"
)

const defaultBufferSize = 256

// Broker routes session events to per-session subscribers. It
// implements session.Sink.
type Broker struct {
	mu         sync.RWMutex
	subs       map[string]map[*Subscriber]struct{}
	bufferSize int
	closed     bool
	log        logger.Logger
}

// Option applies a configuration option to the Broker.
type Option func(*Broker)

// WithBufferSize sets the per-subscriber event buffer.
func WithBufferSize(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithLogger sets the broker's logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Broker) { b.log = l }
}

// NewBroker creates an open broker with no subscribers.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		subs:       make(map[string]map[*Subscriber]struct{}),
		bufferSize: defaultBufferSize,
		log:        logger.Get().Named("events"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscriber is one consumer of a session's event stream.
type Subscriber struct {
	broker    *Broker
	sessionID string
	ch        chan session.Event
	once      sync.Once
}

// Events returns the subscriber's channel. It is closed when the
// subscriber or the broker closes.
func (s *Subscriber) Events() <-chan session.Event { return s.ch }

// Close detaches the subscriber and closes its channel. Safe to call
// more than once.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		s.broker.drop(s)
		close(s.ch)
	})
}

// Subscribe attaches a new subscriber to a session's event stream.
func (b *Broker) Subscribe(sessionID string) (*Subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	sub := &Subscriber{
		broker:    b,
		sessionID: sessionID,
		ch:        make(chan session.Event, b.bufferSize),
	}
	set, ok := b.subs[sessionID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		b.subs[sessionID] = set
	}
	set[sub] = struct{}{}
	metrics.UpdateEventSubscribers(b.countLocked())
	return sub, nil
}

// Publish delivers the event to every subscriber of its session,
// dropping it for subscribers whose buffer is full.
func (b *Broker) Publish(ev session.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for sub := range b.subs[ev.SessionID] {
		select {
		case sub.ch <- ev:
		default:
			metrics.RecordEventDropped()
		}
	}
}

// Close detaches every subscriber and closes their channels. Further
// publishes are silently discarded and further subscribes fail.
func (b *Broker) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string]map[*Subscriber]struct{})
	b.closed = true
	b.mu.Unlock()

	for _, set := range subs {
		for sub := range set {
			sub.once.Do(func() { close(sub.ch) })
		}
	}
	metrics.UpdateEventSubscribers(0)
	return nil
}

// IsClosed reports whether Close was called.
func (b *Broker) IsClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

func (b *Broker) drop(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subs[sub.sessionID]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.sessionID)
	}
	metrics.UpdateEventSubscribers(b.countLocked())
}

func (b *Broker) countLocked() int {
	n := 0
	for _, set := range b.subs {
		n += len(set)
	}
	return n
}
