package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriterText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(&buf, slog.LevelInfo, "text")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("hello", "error", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=hello")
	assert.Contains(t, out, "err=boom")
	assert.NotContains(t, out, "error=")
}

func TestNewWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(&buf, slog.LevelDebug, "JSON")
	require.NoError(t, err)

	logger.Debug("switch", "channel", "W")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "switch", rec["msg"])
	assert.Equal(t, "W", rec["channel"])
}

func TestNewWriterUnknownFormat(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, slog.LevelInfo, "xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	require.NotNil(t, logger)
	logger.Error("discarded")
}
