package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

// Config holds all runtime settings. Provider credentials are optional at
// load time: their absence surfaces as a missing-credentials failure on the
// first dispatch, not as a startup crash.
type Config struct {
	DatabaseDSN       string `env:"DATABASE_DSN,required=true"`
	RedisURL          string `env:"REDIS_URL,required=true"`
	RabbitMQURL       string `env:"RABBITMQ_URL"`
	OneSignalAppID    string `env:"ONESIGNAL_APP_ID"`
	OneSignalAPIKey   string `env:"ONESIGNAL_REST_API_KEY"`
	OneSignalAPIURL   string `env:"ONESIGNAL_API_URL,default=https://api.onesignal.com/notifications"`
	DirectoryURL      string `env:"DIRECTORY_URL"`
	RateLimitPerSec   int    `env:"RATE_LIMIT_PER_SEC,default=100"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY,default=4"`
	APIPort           int    `env:"API_PORT,default=8080"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// AsyncEnabled reports whether queue-triggered dispatch is configured.
func (c *Config) AsyncEnabled() bool {
	return c.RabbitMQURL != ""
}
