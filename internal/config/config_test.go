package config

import (
	"testing"
	"time"

	"drowsiness-detector-go/internal/detector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 50051, cfg.GRPC.Port)
	assert.Equal(t, 30*time.Second, cfg.LandmarkTimeout())
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "drowsiness.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "drowsiness_detector", cfg.Database.Database)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "drowsiness.alerts", cfg.Kafka.AlertTopic)

	assert.Equal(t, detector.DefaultConfig(), cfg.Detection.ToDetector())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("SQLITE_PATH", "/var/lib/drowsiness/alerts.db")
	t.Setenv("EAR_THRESHOLD", "0.3")
	t.Setenv("CONSECUTIVE_FRAMES", "15")
	t.Setenv("ALERT_COOLDOWN_SECONDS", "2.5")
	t.Setenv("MIN_EAR_VALID", "0.04")
	t.Setenv("EAR_HISTORY_SIZE", "90")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")

	cfg := LoadConfig()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/drowsiness/alerts.db", cfg.Storage.SQLitePath)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)

	d := cfg.Detection.ToDetector()
	require.NoError(t, d.Validate())
	assert.Equal(t, 0.3, d.EarThreshold)
	assert.Equal(t, 15, d.ConsecutiveFramesRequired)
	assert.Equal(t, 2500*time.Millisecond, d.AlertCooldown)
	assert.Equal(t, 0.04, d.MinEarValid)
	assert.Equal(t, 90, d.HistoryCapacity)
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("EAR_THRESHOLD", "low")

	cfg := LoadConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.25, cfg.Detection.EarThreshold)
}
