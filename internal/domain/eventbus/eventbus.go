package eventbus

import (
	"errors"
	"fmt"
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("event bus closed")

// Logger is the logging contract the bus needs.
type Logger interface {
	Debug(format string, args ...any)
	Warn(format string, args ...any)
}

// Bus is an instance-owned topic bus. Handlers run on the publisher's
// goroutine unless registered with SubscribeAsync, and must not publish or
// subscribe on the same bus from inside a synchronous handler.
type Bus struct {
	bus    evbus.Bus
	logger Logger

	mu     sync.RWMutex
	closed bool
}

// New creates an empty bus. logger may be nil.
func New(logger Logger) *Bus {
	return &Bus{
		bus:    evbus.New(),
		logger: logger,
	}
}

// Publish delivers args to every handler of topic. A panicking handler is
// recovered and reported as an error; remaining handlers of that publish
// are skipped.
func (b *Bus) Publish(topic string, args ...any) (err error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic on %s: %v", topic, r)
			if b.logger != nil {
				b.logger.Warn("event handler panicked: topic=%s err=%v", topic, r)
			}
		}
	}()

	b.bus.Publish(topic, args...)
	return nil
}

// Subscribe registers a synchronous handler. fn must be a func whose
// parameters match the published args.
func (b *Bus) Subscribe(topic string, fn any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	if err := b.bus.Subscribe(topic, fn); err != nil {
		return err
	}
	if b.logger != nil {
		b.logger.Debug("subscribed to %s", topic)
	}
	return nil
}

// SubscribeAsync registers a handler that runs on its own goroutine. Calls
// to the same handler are serialised so it sees events in publish order.
func (b *Bus) SubscribeAsync(topic string, fn any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	if err := b.bus.SubscribeAsync(topic, fn, true); err != nil {
		return err
	}
	if b.logger != nil {
		b.logger.Debug("subscribed async to %s", topic)
	}
	return nil
}

// Unsubscribe removes a handler previously registered with the same fn value.
func (b *Bus) Unsubscribe(topic string, fn any) error {
	return b.bus.Unsubscribe(topic, fn)
}

// HasCallback reports whether topic has any handler.
func (b *Bus) HasCallback(topic string) bool {
	return b.bus.HasCallback(topic)
}

// WaitAsync blocks until every in-flight async handler returns.
func (b *Bus) WaitAsync() {
	b.bus.WaitAsync()
}

// Close rejects further publishes and waits for async handlers to drain.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.bus.WaitAsync()
}
