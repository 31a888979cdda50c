package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freedkr/paycheck/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, config.AppConfig{Name: "paycheck", LogLevel: "warn"})

	logger.Info("dropped")
	logger.Warn("kept", "request_id", "r-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "paycheck", entry["service"])
	assert.Equal(t, "r-1", entry["request_id"])
}

func TestNewWithWriter_DebugText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, config.AppConfig{Name: "paycheck", Debug: true, LogLevel: "debug"})

	logger.Debug("render", "pages", 2)
	assert.Contains(t, buf.String(), "msg=render")
	assert.Contains(t, buf.String(), "pages=2")
}
