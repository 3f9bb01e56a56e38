package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9085", cfg.HTTPPort)
	assert.Equal(t, TransportMemory, cfg.Transport)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, "systemLoad", cfg.TopicSystemLoad)
	assert.Equal(t, "addSystemProperty", cfg.TopicReservationIn)
	assert.Equal(t, "requestSystemProperty", cfg.TopicReservationOut)
	assert.Equal(t, 0, cfg.StreamBufferLimit)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.DeadLetterURL)
	assert.Equal(t, 90*time.Second, cfg.HostStaleAfter)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("MESSAGE_TRANSPORT", "Kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("STREAM_BUFFER_LIMIT", "128")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REPORT_INTERVAL", "2s")
	t.Setenv("ENABLE_METRICS", "false")
	t.Setenv("DEAD_LETTER_REDIS_URL", "redis://cache:6379/1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, TransportKafka, cfg.Transport)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 128, cfg.StreamBufferLimit)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.ReportInterval)
	assert.False(t, cfg.EnableMetrics)
	assert.Equal(t, "redis://cache:6379/1", cfg.DeadLetterURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown transport", "MESSAGE_TRANSPORT", "carrier-pigeon"},
		{"unknown store", "STORE_BACKEND", "cassandra"},
		{"negative buffer", "STREAM_BUFFER_LIMIT", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_HostMonitorDisabled(t *testing.T) {
	t.Setenv("HOST_STALE_AFTER", "0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.HostStaleAfter)
}

func TestGetEnvDuration_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")
	assert.Equal(t, 5*time.Second, getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second))
}
