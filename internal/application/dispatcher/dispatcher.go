package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/finadmin/budget-engine/internal/domain/event"
)

// Dispatcher routes domain events to registered handlers
type Dispatcher interface {
	// Subscribe registers a handler for an event type
	Subscribe(eventType event.Type, handler Handler)

	// SubscribeNamed registers a handler under a name that shows up in
	// logs and error wraps
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// Dispatch runs the handlers for the event in registration order and
	// returns the first error
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync runs the handlers in goroutines without waiting;
	// failures are logged, not returned
	DispatchAsync(ctx context.Context, evt *event.Event)

	// Close rejects further dispatches and waits for in-flight async
	// handlers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// nopLogger discards everything; installed when no logger is configured
type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// subscription binds a named handler to an event type
type subscription struct {
	name    string
	handler Handler
}

type dispatcherImpl struct {
	mu            sync.RWMutex
	subscriptions map[event.Type][]subscription
	logger        Logger

	inflight sync.WaitGroup
	closed   atomic.Bool
}

// Option configures the dispatcher
type Option func(*dispatcherImpl)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *dispatcherImpl) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &dispatcherImpl{
		subscriptions: make(map[event.Type][]subscription),
		logger:        nopLogger{},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *dispatcherImpl) Subscribe(eventType event.Type, handler Handler) {
	d.mu.RLock()
	n := len(d.subscriptions[eventType])
	d.mu.RUnlock()

	d.SubscribeNamed(eventType, fmt.Sprintf("handler-%d", n), handler)
}

func (d *dispatcherImpl) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	d.subscriptions[eventType] = append(d.subscriptions[eventType], subscription{
		name:    name,
		handler: handler,
	})
	d.mu.Unlock()

	d.logger.Info("Handler registered",
		"event_type", eventType,
		"handler_name", name,
	)
}

func (d *dispatcherImpl) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return fmt.Errorf("dispatcher is closed")
	}

	for _, sub := range d.subscribers(evt.Type) {
		if err := d.invoke(ctx, evt, sub); err != nil {
			d.logger.Error("Event handler failed",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", sub.name,
				"error", err,
			)
			return fmt.Errorf("handler %s failed: %w", sub.name, err)
		}
	}

	return nil
}

func (d *dispatcherImpl) DispatchAsync(ctx context.Context, evt *event.Event) {
	if d.closed.Load() {
		d.logger.Error("Async dispatch on closed dispatcher dropped",
			"event_type", evt.Type,
			"event_id", evt.ID,
		)
		return
	}

	for _, sub := range d.subscribers(evt.Type) {
		d.inflight.Add(1)
		go func(s subscription) {
			defer d.inflight.Done()

			if err := d.invoke(ctx, evt, s); err != nil {
				d.logger.Error("Async event handler failed",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler_name", s.name,
					"error", err,
				)
			}
		}(sub)
	}
}

// Close waits for in-flight async handlers. A second close returns an
// error.
func (d *dispatcherImpl) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}

	d.inflight.Wait()
	d.logger.Info("Dispatcher closed")

	return nil
}

func (d *dispatcherImpl) subscribers(eventType event.Type) []subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.subscriptions[eventType]
}

// invoke runs a single handler; a panic comes back as an error
func (d *dispatcherImpl) invoke(ctx context.Context, evt *event.Event, sub subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return sub.handler(ctx, evt)
}
