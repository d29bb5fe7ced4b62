// Package events provides the synchronous event bus used to notify quota
// changes to interested components.
package events

import (
	"log"
	"runtime/debug"
	"sync"
	"time"
)

// Type identifies an event.
type Type string

const (
	QuotaTransferred     Type = "QUOTA_TRANSFERRED"
	QuotaCarriedOver     Type = "QUOTA_CARRIED_OVER"
	QuotaExpiring        Type = "QUOTA_EXPIRING"
	QuotaConfigUpdated   Type = "QUOTA_CONFIG_UPDATED"
	QuotaAnnualProcessed Type = "QUOTA_ANNUAL_PROCESSED"
	QuotaUpdated         Type = "QUOTA_UPDATED"
	ErrorOccurred        Type = "ERROR_OCCURRED"

	// wildcard receives every event
	wildcard Type = "*"
)

// Event is what handlers receive.
type Event struct {
	Type      Type
	Timestamp time.Time
	UserID    string
	Payload   map[string]any
}

// Handler handles one event.
type Handler func(event Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a publish-subscribe event bus. Handlers run on the publishing
// goroutine, in subscription order. Safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]subscription
	nextID   uint64
	now      func() time.Time
	logger   *log.Logger
	closed   bool
}

// Option configures the Bus.
type Option func(*Bus)

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

// WithLogger sets the logger used to report handler panics.
func WithLogger(l *log.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// New creates a Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[Type][]subscription),
		now:      time.Now,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for events of type t. The returned function
// removes the subscription and may be called more than once.
func (b *Bus) Subscribe(t Type, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(t, id) })
	}
}

// SubscribeAll registers handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) (unsubscribe func()) {
	return b.Subscribe(wildcard, handler)
}

func (b *Bus) remove(t Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[t]
	for i, s := range subs {
		if s.id == id {
			b.handlers[t] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[t]) == 0 {
		delete(b.handlers, t)
	}
}

// Publish delivers event to the handlers of its type, then to wildcard
// handlers. A panicking handler is logged and does not stop delivery.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now()
	}
	targets := make([]subscription, 0, len(b.handlers[event.Type])+len(b.handlers[wildcard]))
	targets = append(targets, b.handlers[event.Type]...)
	targets = append(targets, b.handlers[wildcard]...)
	b.mu.RUnlock()

	for _, s := range targets {
		b.deliver(s.handler, event)
	}
}

func (b *Bus) deliver(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Printf("[Events] handler for %s panicked: %v\n%s", event.Type, r, debug.Stack())
		}
	}()
	h(event)
}

// SubscriberCount returns the number of handlers registered for t,
// excluding wildcard handlers.
func (b *Bus) SubscriberCount(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[t])
}

// Close drops every subscription. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[Type][]subscription)
}

// Publisher is the subset of Bus used by services.
type Publisher interface {
	Publish(event Event)
}

var _ Publisher = (*Bus)(nil)
