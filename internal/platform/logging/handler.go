package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const (
	colorReset = "\x1b[0m"
	colorTime  = "\x1b[90m"
	colorDebug = "\x1b[36m"
	colorInfo  = "\x1b[32m"
	colorWarn  = "\x1b[33m"
	colorError = "\x1b[31m"
)

// tagColors maps a message tag prefix to its console color.
var tagColors = map[string]string{
	TagBoot:      "\x1b[96m",
	TagHTTP:      "\x1b[95m",
	TagSession:   "\x1b[94m",
	TagPresence:  "\x1b[93m",
	TagActivity:  "\x1b[92m",
	TagWebSocket: "\x1b[32m",
	TagStore:     "\x1b[97m",
	TagObserve:   "\x1b[90m",
}

// TextHandler renders records as colored single lines for the console.
// Messages that start with a known "[Tag]" are colored by tag instead of level.
type TextHandler struct {
	writer  io.Writer
	level   slog.Leveler
	noColor bool
	attrs   []slog.Attr
	mu      *sync.Mutex
}

func NewTextHandler(w io.Writer, level slog.Leveler, noColor bool) *TextHandler {
	return &TextHandler{
		writer:  w,
		level:   level,
		noColor: noColor,
		mu:      &sync.Mutex{},
	}
}

func (h *TextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *TextHandler) Handle(_ context.Context, r slog.Record) error {
	timeStr := r.Time.Format("2006-01-02 15:04:05.000")
	msg := r.Message

	var b strings.Builder
	if tagColor, ok := h.tagColor(msg); ok {
		b.WriteString(h.paint(colorTime, "["+timeStr+"]"))
		b.WriteByte(' ')
		b.WriteString(h.paint(tagColor, msg))
	} else {
		b.WriteString(h.paint(colorTime, "["+timeStr+"]"))
		b.WriteByte(' ')
		b.WriteString(h.paint(levelColor(r.Level), "["+r.Level.String()+"]"))
		b.WriteByte(' ')
		b.WriteString(msg)
	}

	if len(h.attrs) > 0 || r.NumAttrs() > 0 {
		b.WriteString(" {")
		for _, a := range h.attrs {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		}
		r.Attrs(func(a slog.Attr) bool {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
			return true
		})
		b.WriteString(" }")
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, b.String())
	return err
}

func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup is flattened; console lines stay single-level.
func (h *TextHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *TextHandler) tagColor(msg string) (string, bool) {
	if !strings.HasPrefix(msg, "[") {
		return "", false
	}
	end := strings.IndexByte(msg, ']')
	if end < 0 {
		return "", false
	}
	color, ok := tagColors[msg[1:end]]
	return color, ok
}

func (h *TextHandler) paint(color, s string) string {
	if h.noColor {
		return s
	}
	return color + s + colorReset
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorError
	case level >= slog.LevelWarn:
		return colorWarn
	case level >= slog.LevelInfo:
		return colorInfo
	default:
		return colorDebug
	}
}
