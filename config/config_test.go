package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, 3004, cfg.Port)
		assert.Equal(t, 0.90, cfg.MatchPhoneThreshold)
		assert.Equal(t, 0.80, cfg.MatchNameThreshold)
		assert.Equal(t, 0.70, cfg.MatchAddressThreshold)
		assert.Equal(t, 4, cfg.DetectionWorkerCount)
		assert.Equal(t, 5*time.Minute, cfg.DetectionLockTTL)
		assert.False(t, cfg.KafkaEnabled)
		assert.Equal(t, "detection-requests", cfg.KafkaRequestTopic)
		assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
		assert.Equal(t, []string{"*"}, cfg.AllowOrigins)
		assert.True(t, cfg.DatabaseMigrationAutoRollback)
		assert.Equal(t, 10*time.Second, cfg.DatabaseConnMaxLifetime)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("MATCH_NAME_THRESHOLD", "0.85")
		t.Setenv("DETECTION_WORKER_COUNT", "8")
		t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 0.85, cfg.MatchNameThreshold)
		assert.Equal(t, 8, cfg.DetectionWorkerCount)
		assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	})

	t.Run("invalid threshold is rejected", func(t *testing.T) {
		t.Setenv("MATCH_PHONE_THRESHOLD", "1.5")

		_, err := Load("")
		assert.ErrorContains(t, err, "MATCH_PHONE_THRESHOLD")
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thistle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db:
  host: file-db
match_name_threshold: 0.75
detection_lock_ttl: 90s
kafka_brokers:
  - kafka-a:9092
  - kafka-b:9092
`), 0o600))

	// registered so the values exported by the file are restored afterwards
	t.Setenv("DB_HOST", "")
	t.Setenv("DETECTION_LOCK_TTL", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("MATCH_NAME_THRESHOLD", "0.85")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-db", cfg.DatabaseHost)
	assert.Equal(t, 90*time.Second, cfg.DetectionLockTTL)
	assert.Equal(t, []string{"kafka-a:9092", "kafka-b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 0.85, cfg.MatchNameThreshold, "environment wins over the file")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		MatchPhoneThreshold:   0.9,
		MatchNameThreshold:    0.8,
		MatchAddressThreshold: 0.7,
		DetectionWorkerCount:  1,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero threshold", func(c *Config) { c.MatchAddressThreshold = 0 }},
		{"negative threshold", func(c *Config) { c.MatchNameThreshold = -0.1 }},
		{"no workers", func(c *Config) { c.DetectionWorkerCount = 0 }},
		{"negative migration version", func(c *Config) { c.DatabaseMigrationVersion = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := Config{
		DatabaseHost:     "db",
		DatabasePort:     "5432",
		DatabaseUserName: "thistle",
		DatabasePassword: "secret",
		DatabaseName:     "thistle",
		DatabaseSSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=thistle password=secret dbname=thistle sslmode=disable", cfg.DatabaseDSN())
}
