package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/lumberjack"
)

// Tags prefix console messages so related lines share a color.
const (
	TagBoot      = "Boot"
	TagHTTP      = "HTTP"
	TagSession   = "Session"
	TagPresence  = "Presence"
	TagActivity  = "Activity"
	TagWebSocket = "WebSocket"
	TagStore     = "Store"
	TagObserve   = "Observe"
)

// Config captures logging configuration options.
type Config struct {
	Level      string
	Dir        string
	Filename   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
	NoColor    bool
	Console    io.Writer
}

// Logger writes every record twice: JSON to a rotating file and a colored
// line to the console.
type Logger struct {
	jsonLogger *slog.Logger
	textLogger *slog.Logger
	closer     io.Closer
}

// New creates a Logger backed by a lumberjack rotating file.
func New(cfg Config) (*Logger, error) {
	if cfg.Filename == "" {
		cfg.Filename = "server.log"
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, cfg.Filename),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}
	noColor := cfg.NoColor || os.Getenv("NO_COLOR") != ""

	l := NewWithWriters(cfg.Level, file, console, noColor)
	l.closer = file
	return l, nil
}

// NewWithWriters builds a Logger over arbitrary writers. Either writer may be nil.
func NewWithWriters(level string, jsonOut, textOut io.Writer, noColor bool) *Logger {
	lvl := ParseLevel(level)
	if jsonOut == nil {
		jsonOut = io.Discard
	}
	if textOut == nil {
		textOut = io.Discard
	}
	return &Logger{
		jsonLogger: slog.New(slog.NewJSONHandler(jsonOut, &slog.HandlerOptions{Level: lvl})),
		textLogger: slog.New(NewTextHandler(textOut, lvl, noColor)),
	}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewWithWriters("error", io.Discard, io.Discard, true)
}

// ParseLevel maps a config level string to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Slog exposes the console logger for libraries that take a *slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.textLogger
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if l == nil {
		return
	}

	// printf mode when the message has verbs, structured mode otherwise
	var attrs []slog.Attr
	if len(args) > 0 && strings.Contains(msg, "%") {
		msg = fmt.Sprintf(msg, args...)
	} else if len(args) > 0 && args[0] != nil {
		if fields, ok := args[0].(map[string]any); ok {
			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				attrs = append(attrs, slog.Any(k, fields[k]))
			}
		} else {
			attrs = append(attrs, slog.Any("fields", args[0]))
		}
	}

	ctx := context.Background()
	l.jsonLogger.LogAttrs(ctx, level, msg, attrs...)
	l.textLogger.LogAttrs(ctx, level, msg, attrs...)
}

func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

// FormatLog builds a tagged message, e.g. FormatLog("Boot", "ready") -> "[Boot] ready".
// Messages that already start with "[" are returned unchanged.
func FormatLog(tag, message string) string {
	tag = strings.TrimSpace(tag)
	message = strings.TrimSpace(message)
	if tag == "" || strings.HasPrefix(message, "[") {
		return message
	}
	return fmt.Sprintf("[%s] %s", tag, message)
}

func (l *Logger) DebugTag(tag, msg string, args ...any) {
	l.log(slog.LevelDebug, FormatLog(tag, msg), args...)
}

func (l *Logger) InfoTag(tag, msg string, args ...any) {
	l.log(slog.LevelInfo, FormatLog(tag, msg), args...)
}

func (l *Logger) WarnTag(tag, msg string, args ...any) {
	l.log(slog.LevelWarn, FormatLog(tag, msg), args...)
}

func (l *Logger) ErrorTag(tag, msg string, args ...any) {
	l.log(slog.LevelError, FormatLog(tag, msg), args...)
}

// Tagged returns a view of the logger that prefixes every message with tag.
// It satisfies the small Logger interfaces the domain packages declare.
func (l *Logger) Tagged(tag string) *Tagged {
	return &Tagged{logger: l, tag: tag}
}

type Tagged struct {
	logger *Logger
	tag    string
}

func (t *Tagged) Debug(msg string, args ...any) { t.logger.DebugTag(t.tag, msg, args...) }
func (t *Tagged) Info(msg string, args ...any)  { t.logger.InfoTag(t.tag, msg, args...) }
func (t *Tagged) Warn(msg string, args ...any)  { t.logger.WarnTag(t.tag, msg, args...) }
func (t *Tagged) Error(msg string, args ...any) { t.logger.ErrorTag(t.tag, msg, args...) }
