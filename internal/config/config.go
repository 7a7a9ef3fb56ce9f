// Package config loads client and dev server settings.
// Client settings are layered: defaults, then an optional YAML file, then
// CARDROOM_* environment variables. Command-line flags are applied on top
// by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names the environment variable holding the config file path
const ConfigPathEnv = "CARDROOM_CONFIG"

// Store kinds
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config holds client configuration
type Config struct {
	// ServerURL is the base URL of the game server
	ServerURL string `yaml:"server_url" env:"CARDROOM_SERVER"`

	// Store selects where the session is persisted: memory, file or redis
	Store string `yaml:"store" env:"CARDROOM_STORE"`
	// StateFile is the file store location
	StateFile string `yaml:"state_file" env:"CARDROOM_STATE_FILE"`
	// RedisURL is used by the redis store
	RedisURL string `yaml:"redis_url" env:"CARDROOM_REDIS_URL"`
	// RedisNamespace separates sessions sharing one redis
	RedisNamespace string `yaml:"redis_namespace" env:"CARDROOM_REDIS_NAMESPACE"`
	// SessionTTL expires persisted keys in redis. Zero keeps them forever.
	SessionTTL time.Duration `yaml:"session_ttl" env:"CARDROOM_SESSION_TTL"`

	RequestTimeout  time.Duration `yaml:"request_timeout" env:"CARDROOM_REQUEST_TIMEOUT"`
	DialTimeout     time.Duration `yaml:"dial_timeout" env:"CARDROOM_DIAL_TIMEOUT"`
	ActionTimeout   time.Duration `yaml:"action_timeout" env:"CARDROOM_ACTION_TIMEOUT"`
	LookupTimeout   time.Duration `yaml:"lookup_timeout" env:"CARDROOM_LOOKUP_TIMEOUT"`
	NotificationTTL time.Duration `yaml:"notification_ttl" env:"CARDROOM_NOTIFICATION_TTL"`

	// Output is the CLI output format: text or json
	Output string `yaml:"output" env:"CARDROOM_OUTPUT"`
	// Verbose enables debug logging to stderr
	Verbose bool `yaml:"verbose" env:"CARDROOM_VERBOSE"`
}

// Default returns the built-in client configuration
func Default() Config {
	return Config{
		ServerURL:       "http://localhost:8080",
		Store:           StoreFile,
		RedisURL:        "redis://localhost:6379",
		RedisNamespace:  "default",
		SessionTTL:      24 * time.Hour,
		RequestTimeout:  30 * time.Second,
		DialTimeout:     10 * time.Second,
		ActionTimeout:   10 * time.Second,
		LookupTimeout:   10 * time.Second,
		NotificationTTL: 5 * time.Second,
		Output:          OutputText,
	}
}

// Load builds a Config from the defaults, the YAML file at path (if any)
// and the environment. An empty path falls back to $CARDROOM_CONFIG.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.LoadEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the keys present in a YAML file
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadEnv overlays the CARDROOM_* variables that are set
func (c *Config) LoadEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate reports settings that cannot work
func (c Config) Validate() error {
	var errs []error
	if c.ServerURL == "" {
		errs = append(errs, errors.New("server url is required"))
	}
	if !slices.Contains([]string{StoreMemory, StoreFile, StoreRedis}, c.Store) {
		errs = append(errs, fmt.Errorf("invalid store %q: must be memory, file or redis", c.Store))
	}
	if c.Store == StoreRedis && c.RedisURL == "" {
		errs = append(errs, errors.New("redis url is required for the redis store"))
	}
	if c.Output != OutputText && c.Output != OutputJSON {
		errs = append(errs, fmt.Errorf("invalid output %q: must be text or json", c.Output))
	}
	return errors.Join(errs...)
}
