package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorder_CountersAccumulate(t *testing.T) {
	r := New(Config{Enabled: false}, nil)

	r.RecordMetric(context.Background(), "activity.observer_dropped", 1, nil)
	r.RecordMetric(context.Background(), "activity.observer_dropped", 2, nil)

	assert.Equal(t, 3.0, r.Counter("activity.observer_dropped"))
	assert.Equal(t, map[string]float64{"activity.observer_dropped": 3}, r.Snapshot())
}

func TestRecorder_SpanLogsWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := New(Config{Enabled: true}, logger)

	_, end := r.StartSpan(context.Background(), "http", "GET /api/presence/online")
	end(errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "span start")
	assert.Contains(t, out, "span end")
	assert.Contains(t, out, "boom")
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		_, end := r.StartSpan(context.Background(), "c", "o")
		end(nil)
		r.RecordMetric(context.Background(), "m", 1, map[string]string{"k": "v"})
	})
	assert.Zero(t, r.Counter("m"))
	assert.False(t, r.Enabled())
}
