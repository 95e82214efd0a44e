package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level   LogLevel
		debugOn bool
	}{
		{LogLevelQuiet, false},
		{LogLevelNormal, false},
		{LogLevelVerbose, true},
		{LogLevelDebug, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			logger, err := NewLogger(Config{Level: tt.level, Output: &bytes.Buffer{}})
			require.NoError(t, err)
			assert.Equal(t, tt.level, logger.GetLevel())
			assert.Equal(t, tt.debugOn, logger.IsLevelEnabled(LogLevelVerbose))
		})
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "json"})
	require.NoError(t, err)

	logger.WithField("backup_id", "bk-x").Info("Backup run started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "bk-x", entry["backup_id"])
	assert.Equal(t, "Backup run started", entry["msg"])
}

func TestLogTableCapture(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "json"})
	require.NoError(t, err)

	logger.LogTableCapture("orders", 120, 250*time.Millisecond, nil)
	assert.Contains(t, buf.String(), "table_capture")
	assert.Contains(t, buf.String(), "orders")

	buf.Reset()
	logger.LogTableCapture("inventory", 0, time.Millisecond, errors.New("table locked"))
	assert.Contains(t, buf.String(), "table locked")
	assert.Contains(t, buf.String(), "warning")
}

func TestQuietSuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelQuiet, Output: &buf})
	require.NoError(t, err)

	logger.Info("should not appear")
	assert.Empty(t, buf.String())

	logger.Error("should appear")
	assert.Contains(t, buf.String(), "should appear")
}
