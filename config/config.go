package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"thistle-api"`
	Version                       string   `env:"APP_VERSION" env-default:"dev"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"30"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL
	DatabaseHost                  string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"thistle"`
	DatabaseSSLMode               string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Graph database for match projections. Empty host disables it.
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:""`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// Redis for detection locks. Empty host disables locking.
	RedisHost     string `env:"REDIS_HOST" env-default:""`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Auth
	AuthEnabled bool `env:"AUTH_ENABLED" env-default:"false"`

	// Kafka
	KafkaEnabled         bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaRequestTopic    string   `env:"KAFKA_REQUEST_TOPIC" env-default:"detection-requests"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"thistle-detector"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`
	KafkaOutputTopic     string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"screening-events"`
	KafkaBatchSize       int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout    int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks    int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression     string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Tracing
	TracingExporter string `env:"TRACING_EXPORTER" env-default:"console"`
	TracingEndpoint string `env:"TRACING_ENDPOINT" env-default:"localhost:4317"`
	TracingProtocol string `env:"TRACING_PROTOCOL" env-default:"grpc"`

	// Matching
	MatchPhoneThreshold   float64 `env:"MATCH_PHONE_THRESHOLD" env-default:"0.90"`
	MatchNameThreshold    float64 `env:"MATCH_NAME_THRESHOLD" env-default:"0.80"`
	MatchAddressThreshold float64 `env:"MATCH_ADDRESS_THRESHOLD" env-default:"0.70"`

	// Detection
	DetectionWorkerCount int           `env:"DETECTION_WORKER_COUNT" env-default:"4"`
	DetectionLockTTL     time.Duration `env:"DETECTION_LOCK_TTL" env-default:"5m"`
}

// Load reads an optional .env file and an optional config file, then binds
// the environment. Variables already set win over .env, which wins over the
// config file.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	if configFile != "" {
		if err := LoadFile(configFile); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFile exports the keys of a yaml, json or toml file as environment
// variables without replacing any that are already set. Nested keys are
// joined with underscores, so db.host becomes DB_HOST.
func LoadFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if os.Getenv(name) != "" {
			continue
		}

		value := v.GetString(key)
		if _, ok := v.Get(key).([]any); ok {
			value = strings.Join(v.GetStringSlice(key), ",")
		}
		if err := os.Setenv(name, value); err != nil {
			return fmt.Errorf("failed to export %s: %w", name, err)
		}
	}

	return nil
}

// Validate rejects settings the detector cannot run with.
func (c *Config) Validate() error {
	thresholds := map[string]float64{
		"MATCH_PHONE_THRESHOLD":   c.MatchPhoneThreshold,
		"MATCH_NAME_THRESHOLD":    c.MatchNameThreshold,
		"MATCH_ADDRESS_THRESHOLD": c.MatchAddressThreshold,
	}
	for name, value := range thresholds {
		if value <= 0 || value > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", name, value)
		}
	}

	if c.DatabaseMigrationVersion < 0 {
		return fmt.Errorf("DB_MIGRATION_VERSION must not be negative, got %d", c.DatabaseMigrationVersion)
	}

	if c.DetectionWorkerCount < 1 {
		return fmt.Errorf("DETECTION_WORKER_COUNT must be at least 1, got %d", c.DetectionWorkerCount)
	}

	return nil
}

// DatabaseDSN builds the lib/pq connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost, c.DatabasePort, c.DatabaseUserName, c.DatabasePassword, c.DatabaseName, c.DatabaseSSLMode)
}
