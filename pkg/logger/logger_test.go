package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/folio/backend/pkg/config"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewSetsGlobalLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log := New(&config.Config{Env: "development", LogLevel: tt.level, LogFormat: "json"})
			require.NotNil(t, log)
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestLoggerLevels(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	log := NewWithWriter(&buf, "test")

	tests := []struct {
		name    string
		logFunc func()
		level   string
		msg     string
	}{
		{"debug", func() { log.Debug("run started") }, "debug", "run started"},
		{"info", func() { log.Infof("batch %d/%d", 1, 3) }, "info", "batch 1/3"},
		{"warn", func() { log.Warn("provider degraded") }, "warn", "provider degraded"},
		{"error", func() { log.Errorf("send failed: %s", "timeout") }, "error", "send failed: timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()

			entry := decode(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, tt.msg, entry["message"])
			assert.Equal(t, "folio", entry["service"])
			assert.Equal(t, "test", entry["env"])
		})
	}
}

func TestWithFieldsAndComponent(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	log := NewWithWriter(&buf, "test").
		WithComponent("scheduler").
		WithFields(map[string]interface{}{
			"user_id": "u-1",
			"batch":   2,
		}).
		WithField("attempt", 3)

	log.Info("attempt failed")

	entry := decode(t, &buf)
	assert.Equal(t, "scheduler", entry["component"])
	assert.Equal(t, "u-1", entry["user_id"])
	assert.Equal(t, float64(2), entry["batch"])
	assert.Equal(t, float64(3), entry["attempt"])
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "test")

	log.WithError(errors.New("smtp: connection refused")).Error("delivery failed")

	entry := decode(t, &buf)
	assert.Equal(t, "smtp: connection refused", entry["error"])
	assert.Equal(t, "delivery failed", entry["message"])
}

func TestNewNopDiscards(t *testing.T) {
	log := NewNop()
	assert.NotPanics(t, func() {
		log.WithComponent("gateway").WithField("symbol", "AAPL").Info("ignored")
	})
}
