package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeLog, err := New(Config{Level: "warn", Output: &buf})
	require.NoError(t, err)
	defer closeLog()

	logger.Info("hidden")
	logger.Warn("shown", "batch", "a.csv")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "batch=a.csv")
}

func TestNewWritesJSONFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "sweep.log")

	logger, closeLog, err := New(Config{Level: "info", Format: "json", File: path, Output: &buf})
	require.NoError(t, err)
	logger.With("run_id", "r1").Info("batch flushed", "rows", 3)
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &rec))
	assert.Equal(t, "batch flushed", rec["msg"])
	assert.Equal(t, "r1", rec["run_id"])
	assert.Equal(t, float64(3), rec["rows"])
	assert.Contains(t, buf.String(), `"msg":"batch flushed"`)
}
