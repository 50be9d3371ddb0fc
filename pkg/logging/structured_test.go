package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// capturedLogger routes slog output into buf so tests can inspect fields.
func capturedLogger(buf *bytes.Buffer) *Logger {
	return &Logger{
		slog: slog.New(slog.NewJSONHandler(buf, nil)),
		zap:  zap.NewNop(),
	}
}

func TestLogRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := capturedLogger(&buf)

	logger.LogRequest("POST", "/api/v2/mutate", 200, 42*time.Millisecond,
		"trace_id", "abc123")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "http request completed", record["msg"])
	assert.Equal(t, "POST", record["method"])
	assert.Equal(t, "/api/v2/mutate", record["path"])
	assert.Equal(t, float64(200), record["status_code"])
	assert.Equal(t, float64(42), record["duration_ms"])
	assert.Equal(t, "abc123", record["trace_id"])
}

func TestLevelsRouteThroughSlog(t *testing.T) {
	var buf bytes.Buffer
	logger := capturedLogger(&buf)

	logger.Debug("low level detail")
	assert.Empty(t, buf.String()) // default handler level is info

	logger.Error("request failed", "error", "boom")
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "boom", record["error"])
}

func TestParseLevels(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseSlogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseSlogLevel("warn"))
	assert.Equal(t, slog.LevelError, parseSlogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseSlogLevel("anything else"))
}

func TestConvertToZapFieldsSkipsNonStringKeys(t *testing.T) {
	fields := convertToZapFields([]any{"key", "value", 42, "dropped"})
	require.Len(t, fields, 1)
	assert.Equal(t, "key", fields[0].Key)
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	logger.Info("nothing to see")
	require.NoError(t, logger.Sync())
}
