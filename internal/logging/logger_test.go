package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(99).String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warn"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Format: "text", Output: &buf})

	logger.Debug(context.Background(), "debug msg")
	logger.Info(context.Background(), "info msg")
	assert.Empty(t, buf.String())

	logger.Warn(context.Background(), nil, "warn msg")
	assert.Contains(t, buf.String(), "warn msg")
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "json", Output: &buf, Component: "engine"})

	logger.Error(context.Background(), errors.New("boom"), "render failed", "directive", "data-if")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "render failed", entry["msg"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "data-if", entry["directive"])
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "json", Output: &buf})

	child := base.With("request", "r1").WithComponent("server")
	child.Info(context.Background(), "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "r1", entry["request"])
	assert.Equal(t, "server", entry["component"])

	// The base logger is untouched by derivation.
	buf.Reset()
	base.Info(context.Background(), "plain")
	entry = map[string]any{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, hasRequest := entry["request"]
	assert.False(t, hasRequest)
}

func TestNewNop_Silent(t *testing.T) {
	logger := NewNop()
	assert.NotPanics(t, func() {
		logger.Debug(context.Background(), "x")
		logger.Info(context.Background(), "x")
		logger.Warn(context.Background(), errors.New("e"), "x")
		logger.Error(context.Background(), errors.New("e"), "x")
	})
}
