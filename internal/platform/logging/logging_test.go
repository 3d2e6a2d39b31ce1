package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_PrintfMode(t *testing.T) {
	var jsonBuf, textBuf bytes.Buffer
	l := NewWithWriters("info", &jsonBuf, &textBuf, true)

	l.Info("user %d logged in from %s", 7, "10.0.0.1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &rec))
	assert.Equal(t, "user 7 logged in from 10.0.0.1", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.Contains(t, textBuf.String(), "[INFO] user 7 logged in from 10.0.0.1")
}

func TestLogger_FieldMode(t *testing.T) {
	var jsonBuf bytes.Buffer
	l := NewWithWriters("info", &jsonBuf, nil, true)

	l.Warn("observer dropped", map[string]any{"observer": "abc", "buffer": 64})

	var rec map[string]any
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &rec))
	assert.Equal(t, "observer dropped", rec["msg"])
	assert.Equal(t, "abc", rec["observer"])
	assert.EqualValues(t, 64, rec["buffer"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var textBuf bytes.Buffer
	l := NewWithWriters("warn", nil, &textBuf, true)

	l.Debug("hidden")
	l.Info("hidden too")
	l.Error("visible")

	out := textBuf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestLogger_TaggedMessages(t *testing.T) {
	var textBuf bytes.Buffer
	l := NewWithWriters("debug", nil, &textBuf, true)

	l.Tagged(TagPresence).Info("swept %d sessions", 3)
	l.InfoTag(TagBoot, "[Custom] already tagged")

	lines := strings.Split(strings.TrimSpace(textBuf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[Presence] swept 3 sessions")
	// tagged lines omit the level marker
	assert.NotContains(t, lines[0], "[INFO]")
	assert.Contains(t, lines[1], "[Custom] already tagged")
}

func TestFormatLog(t *testing.T) {
	assert.Equal(t, "[Boot] ready", FormatLog("Boot", " ready "))
	assert.Equal(t, "ready", FormatLog("", "ready"))
	assert.Equal(t, "[X] ready", FormatLog("Boot", "[X] ready"))
}

func TestNew_WritesToRotatingFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	l, err := New(Config{Level: "info", Dir: dir, Filename: "test.log", MaxSize: 1, Console: &console, NoColor: true})
	require.NoError(t, err)

	l.InfoTag(TagStore, "opened")
	require.NoError(t, l.Close())

	assert.Contains(t, console.String(), "[Store] opened")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("nothing")
		l.ErrorTag(TagHTTP, "nothing")
		_ = l.Close()
	})
}
