package observability

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Config captures observability toggles.
type Config struct {
	Enabled bool
}

// Recorder emits lightweight spans and metric datapoints through a logger and
// keeps running counters that the status endpoint can report. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	logger  *slog.Logger
	enabled bool

	mu       sync.Mutex
	counters map[string]float64
}

// New creates a recorder. When cfg.Enabled is false spans and metrics are
// not logged, but counters are still kept.
func New(cfg Config, logger *slog.Logger) *Recorder {
	return &Recorder{
		logger:   logger,
		enabled:  cfg.Enabled && logger != nil,
		counters: make(map[string]float64),
	}
}

// Enabled reports whether spans and metrics are logged.
func (r *Recorder) Enabled() bool {
	return r != nil && r.enabled
}

// StartSpan records a span lifecycle around an operation.
func (r *Recorder) StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	if !r.Enabled() {
		return ctx, func(error) {}
	}

	start := time.Now()
	r.logger.LogAttrs(ctx, slog.LevelDebug, "[Observe] span start",
		slog.String("component", component),
		slog.String("operation", operation),
	)

	return ctx, func(err error) {
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelError
		}

		attrs := []slog.Attr{
			slog.String("component", component),
			slog.String("operation", operation),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		}

		r.logger.LogAttrs(ctx, level, "[Observe] span end", attrs...)
	}
}

// RecordMetric adds value to the named counter and logs the datapoint.
func (r *Recorder) RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	if r == nil {
		return
	}

	r.mu.Lock()
	r.counters[name] += value
	r.mu.Unlock()

	if !r.enabled {
		return
	}

	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, labels[k]))
	}

	r.logger.LogAttrs(ctx, slog.LevelDebug, "[Observe] metric", attrs...)
}

// Counter returns the accumulated value of a metric.
func (r *Recorder) Counter(name string) float64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[name]
}

// Snapshot copies every counter.
func (r *Recorder) Snapshot() map[string]float64 {
	out := make(map[string]float64)
	if r == nil {
		return out
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range r.counters {
		out[k] = v
	}
	return out
}
