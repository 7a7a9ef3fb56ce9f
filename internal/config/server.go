package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// ServerConfig holds dev server configuration, read from DEVSERVER_* variables
type ServerConfig struct {
	Host string `env:"DEVSERVER_HOST"`
	Port int    `env:"DEVSERVER_PORT" envDefault:"8080"`

	// Store is memory or redis
	Store          string `env:"DEVSERVER_STORE" envDefault:"memory"`
	RedisURL       string `env:"DEVSERVER_REDIS_URL" envDefault:"redis://localhost:6379"`
	RedisNamespace string `env:"DEVSERVER_REDIS_NAMESPACE" envDefault:"devserver"`

	// Secret signs session tokens; empty uses the built-in development secret
	Secret          string        `env:"DEVSERVER_SECRET"`
	SessionDuration time.Duration `env:"DEVSERVER_SESSION_DURATION" envDefault:"24h"`

	// HubCleanupInterval is how often hubs without clients are dropped
	HubCleanupInterval time.Duration `env:"DEVSERVER_HUB_CLEANUP_INTERVAL" envDefault:"1m"`

	LogLevel slog.Level `env:"DEVSERVER_LOG_LEVEL" envDefault:"INFO"`
}

// LoadServer reads the dev server configuration from the environment
func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Store != StoreMemory && cfg.Store != StoreRedis {
		return ServerConfig{}, fmt.Errorf("invalid DEVSERVER_STORE %q: must be memory or redis", cfg.Store)
	}
	return cfg, nil
}
