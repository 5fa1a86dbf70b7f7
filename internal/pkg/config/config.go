package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPServerAddr  string `env:"HTTP_SERVER_ADDR" envDefault:":8080"`
	AdminServerAddr string `env:"ADMIN_SERVER_ADDR" envDefault:":9091"`
	MaxBodySize     int64  `env:"MAX_BODY_SIZE_BYTES" envDefault:"1048576"` // 1MB
	SnapshotPath    string `env:"SNAPSHOT_PATH" envDefault:"data/strings.json"`

	SSEHeartbeatInterval time.Duration `env:"SSE_HEARTBEAT_INTERVAL" envDefault:"15s"`

	// Rate limiting is disabled when RateLimitRPS is zero.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"100"`

	// The record event stream is disabled when RedisAddr is empty.
	RedisAddr           string        `env:"REDIS_ADDR"`
	EventStream         string        `env:"EVENT_STREAM" envDefault:"string_events"`
	EventDLQStream      string        `env:"EVENT_DLQ_STREAM" envDefault:"string_events_dlq"`
	WALPath             string        `env:"WAL_PATH" envDefault:"data/wal"`
	WALSegmentSize      int64         `env:"WAL_SEGMENT_SIZE_BYTES" envDefault:"10485760"`   // 10MB
	WALMaxDiskSize      int64         `env:"WAL_MAX_DISK_SIZE_BYTES" envDefault:"104857600"` // 100MB
	HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" envDefault:"5s"`

	// Consumer settings.
	ConsumerMetricsAddr string        `env:"CONSUMER_METRICS_ADDR" envDefault:":9092"`
	PostgresURL         string        `env:"POSTGRES_URL"`
	ConsumerGroup       string        `env:"CONSUMER_GROUP" envDefault:"string-mirrors"`
	SyncBatchSize       int           `env:"SYNC_BATCH_SIZE" envDefault:"500"`
	SyncRetryCount      int           `env:"SYNC_RETRY_COUNT" envDefault:"3"`
	SyncRetryBackoff    time.Duration `env:"SYNC_RETRY_BACKOFF" envDefault:"1s"`
	SyncInterval        time.Duration `env:"SYNC_INTERVAL" envDefault:"1s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
