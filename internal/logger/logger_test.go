package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, FormatJSON, slog.LevelInfo)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("reload", "path", "index.html")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "reload", rec["msg"])
	assert.Equal(t, "INFO", rec["severity"])
	assert.Equal(t, "index.html", rec["path"])
	assert.Contains(t, rec, "ts")
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, FormatConsole, slog.LevelDebug)
	require.NoError(t, err)

	log.With("component", "watch").WithGroup("event").Debug("change", "path", "a b.txt", "op", "WRITE")

	out := buf.String()
	assert.Contains(t, out, "DEBUG change")
	assert.Contains(t, out, "component=watch")
	assert.Contains(t, out, `event.path="a b.txt"`)
	assert.Contains(t, out, "event.op=WRITE")
}

func TestConsoleLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, FormatConsole, slog.LevelWarn)
	require.NoError(t, err)

	log.Info("quiet")
	assert.Empty(t, buf.String())

	log.Error("loud", slog.Group("req", slog.Int("status", 500)))
	assert.Contains(t, buf.String(), "ERROR loud req.status=500")
}

func TestNewUnknownFormat(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml", slog.LevelInfo)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
