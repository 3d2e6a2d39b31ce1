package activity

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"agentdeck-server/internal/domain/eventbus"
)

const DefaultBuffer = 64

// Logger is the logging contract of the activity domain.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Metrics receives counters such as dropped observers. Optional.
type Metrics interface {
	RecordMetric(ctx context.Context, name string, value float64, labels map[string]string)
}

// Subscription is one observer's delivery channel. Entries arrive on C in
// publish order; C is closed when the subscription ends.
type Subscription struct {
	id   string
	ch   chan Entry
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func newSubscription(buffer int) *Subscription {
	return &Subscription{
		id:   uuid.NewString(),
		ch:   make(chan Entry, buffer),
		done: make(chan struct{}),
	}
}

func (s *Subscription) ID() string { return s.id }

// C delivers entries published after Subscribe returned.
func (s *Subscription) C() <-chan Entry { return s.ch }

// Done is closed when the hub drops or unsubscribes the observer.
func (s *Subscription) Done() <-chan struct{} { return s.done }

type sendResult int

const (
	sent sendResult = iota
	full
	gone
)

// send never blocks and never races close.
func (s *Subscription) send(e Entry) sendResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return gone
	}
	select {
	case s.ch <- e:
		return sent
	default:
		return full
	}
}

func (s *Subscription) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.ch)
	close(s.done)
	return true
}

type HubOptions struct {
	// Buffer is each observer's channel capacity. An observer whose buffer
	// is full when an entry is published is considered unreachable and
	// dropped.
	Buffer  int
	Logger  Logger
	Metrics Metrics
}

// Hub fans newly created entries out to every current observer. Delivery is
// best effort: there is no replay for late subscribers and no retry for
// observers that fall behind.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool

	// publishMu serialises Publish so all observers see one order.
	publishMu sync.Mutex

	buffer  int
	logger  Logger
	metrics Metrics
	handler func(Entry)
}

func NewHub(opts HubOptions) *Hub {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	h := &Hub{
		subs:    make(map[*Subscription]struct{}),
		buffer:  opts.Buffer,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	h.handler = func(e Entry) { h.Publish(e) }
	return h
}

// Subscribe registers a new observer. After Close it returns an already
// closed subscription.
func (h *Hub) Subscribe() *Subscription {
	sub := newSubscription(h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.close()
		return sub
	}
	h.subs[sub] = struct{}{}
	count := len(h.subs)
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Debug("observer subscribed: id=%s observers=%d", sub.id, count)
	}
	return sub
}

// Unsubscribe removes the observer and closes its channel. Calling it again,
// or after the hub dropped the observer, does nothing.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	_, present := h.subs[sub]
	delete(h.subs, sub)
	h.mu.Unlock()

	if sub.close() && present && h.logger != nil {
		h.logger.Debug("observer unsubscribed: id=%s", sub.id)
	}
}

// Publish delivers e to every current observer without blocking and returns
// how many received it. Observers with a full buffer are dropped.
func (h *Hub) Publish(e Entry) int {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	h.mu.Lock()
	if len(h.subs) == 0 {
		h.mu.Unlock()
		return 0
	}
	targets := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	delivered := 0
	for _, sub := range targets {
		switch sub.send(e) {
		case sent:
			delivered++
		case full:
			h.drop(sub)
		case gone:
			h.Unsubscribe(sub)
		}
	}
	return delivered
}

func (h *Hub) drop(sub *Subscription) {
	h.Unsubscribe(sub)
	if h.logger != nil {
		h.logger.Warn("observer dropped, buffer full: id=%s buffer=%d", sub.id, h.buffer)
	}
	if h.metrics != nil {
		h.metrics.RecordMetric(context.Background(), "activity.observer_dropped", 1, nil)
	}
}

// Count returns the number of current observers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Attach subscribes the hub to TopicActivityCreated on bus.
func (h *Hub) Attach(bus *eventbus.Bus) error {
	return bus.Subscribe(eventbus.TopicActivityCreated, h.handler)
}

// Detach undoes Attach.
func (h *Hub) Detach(bus *eventbus.Bus) error {
	return bus.Unsubscribe(eventbus.TopicActivityCreated, h.handler)
}

// Close ends every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[*Subscription]struct{})
	h.mu.Unlock()

	for sub := range subs {
		sub.close()
	}
}
