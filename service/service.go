// Package service runs the quota rules against data fetched from a Backend.
//
// Services are plain values built with explicit dependencies; callers own
// their lifetime. Every call fetches fresh data, nothing is cached.
package service

import (
	"log"
	"time"

	"golang.org/x/text/message"

	"github.com/warp/leave-quota/events"
	"github.com/warp/leave-quota/i18n"
)

// Option configures a service.
type Option func(*core)

// WithBus sets the publisher notified of quota changes and failures.
func WithBus(bus events.Publisher) Option {
	return func(c *core) { c.bus = bus }
}

// WithClock sets the time source used for rule applicability and expiry.
func WithClock(now func() time.Time) Option {
	return func(c *core) { c.now = now }
}

// WithPrinter sets the printer used to render messages.
func WithPrinter(p *message.Printer) Option {
	return func(c *core) { c.printer = p }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *core) { c.logger = l }
}

type noopPublisher struct{}

func (noopPublisher) Publish(events.Event) {}

// core holds the dependencies shared by every service.
type core struct {
	backend Backend
	bus     events.Publisher
	now     func() time.Time
	printer *message.Printer
	logger  *log.Logger
}

func newCore(backend Backend, opts []Option) core {
	c := core{
		backend: backend,
		bus:     noopPublisher{},
		now:     time.Now,
		printer: i18n.DefaultPrinter(),
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Printer returns the printer used for messages.
func (c *core) Printer() *message.Printer { return c.printer }

func (c *core) publish(t events.Type, userID string, payload map[string]any) {
	c.bus.Publish(events.Event{Type: t, Timestamp: c.now(), UserID: userID, Payload: payload})
}

// fail logs a backend failure, publishes ERROR_OCCURRED and returns it
// wrapped with a localized message.
func (c *core) fail(op, key string, err error) error {
	msg := c.printer.Sprintf(key, err.Error())
	c.logger.Printf("[Service] %s: %v", op, err)
	c.publish(events.ErrorOccurred, "", map[string]any{
		"operation": op,
		"message":   msg,
		"error":     err,
	})
	return &Error{Op: op, Message: msg, Err: err}
}

// Error is a backend failure seen through a service call. Message is
// localized; Err is the underlying cause.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }
