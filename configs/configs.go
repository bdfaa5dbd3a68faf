// Package configs handles application configuration parsed from environment
// variables, prefixed with "CLOUDLEAKAGE_".
package configs

import (
	"time"

	"github.com/caarlos0/env/v6"
	log "github.com/sirupsen/logrus"
)

// devEncryptionKey is only acceptable for local development. Parse logs a
// loud warning whenever it is in use.
const devEncryptionKey = "dev-encryption-key-0123456789abc"

type Config struct {
	Host string `env:"HOST"`
	Port int    `env:"PORT" envDefault:"3000"`

	// Database
	DatabaseDSN  string `env:"DATABASE_DSN" envDefault:"cloudleakage.db"`
	DatabaseType string `env:"DATABASE_TYPE" envDefault:"sqlite"`

	// Encryption key for credential material at rest. 32 bytes for the
	// local AES-256-GCM backend, a key ARN or resource name for the KMS
	// backends.
	EncryptionKey     string `env:"ENCRYPTION_KEY"`
	EncryptionKeyType string `env:"ENCRYPTION_KEY_TYPE" envDefault:"local"`

	// Provider
	DefaultRegion       string `env:"DEFAULT_REGION" envDefault:"us-east-1"`
	ProviderCallsPerSec int    `env:"PROVIDER_CALLS_PER_SECOND" envDefault:"10"`

	// Worker pool and scheduled sync
	WorkerCount          uint          `env:"WORKER_COUNT" envDefault:"1"`
	WorkerQueueCapacity  uint          `env:"WORKER_QUEUE_CAPACITY" envDefault:"100"`
	SyncInterval         time.Duration `env:"SYNC_INTERVAL" envDefault:"1h"`
	DisableScheduledSync bool          `env:"DISABLE_SCHEDULED_SYNC" envDefault:"false"`

	// Idempotency middleware
	DisableIdempotencyMiddleware      bool   `env:"DISABLE_IDEMPOTENCY_MIDDLEWARE" envDefault:"true"`
	IdempotencyMiddlewareDatabaseType string `env:"IDEMPOTENCY_MIDDLEWARE_DATABASE_TYPE" envDefault:"local"`
	IdempotencyMiddlewareRedisURL     string `env:"IDEMPOTENCY_MIDDLEWARE_REDIS_URL"`

	ServerRequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"60s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Parse parses environment variables to a valid Config.
func Parse() (*Config, error) {
	cfg := Config{}
	err := env.Parse(&cfg, env.Options{Prefix: "CLOUDLEAKAGE_"})
	if err != nil {
		return nil, err
	}

	if cfg.EncryptionKey == "" {
		log.Warn("CLOUDLEAKAGE_ENCRYPTION_KEY is not set, using the built-in development key; credentials are NOT safe at rest, do not run like this in production")
		cfg.EncryptionKey = devEncryptionKey
	}

	return &cfg, nil
}

// ConfigureLogger sets the logrus level from config.
func ConfigureLogger(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("unable to parse log level %q, defaulting to info", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
