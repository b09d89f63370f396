// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Config is the full process configuration
type Config struct {
	StorageType string `env:"PLAYERSYNC_STORAGE_TYPE" envDefault:"memory"`
	RedisURL    string `env:"PLAYERSYNC_REDIS_URL" envDefault:"redis://localhost:6379"`
	SQLitePath  string `env:"PLAYERSYNC_SQLITE_PATH" envDefault:"playersync.db"`

	Username    string        `env:"PLAYERSYNC_USERNAME"`
	Password    string        `env:"PLAYERSYNC_PASSWORD"`
	TokenSecret string        `env:"PLAYERSYNC_TOKEN_SECRET" envDefault:"playersync-dev-secret"`
	TokenTTL    time.Duration `env:"PLAYERSYNC_TOKEN_TTL" envDefault:"1h"`

	SaveAttempts   int           `env:"PLAYERSYNC_SAVE_ATTEMPTS" envDefault:"1"`
	SaveRetryDelay time.Duration `env:"PLAYERSYNC_SAVE_RETRY_DELAY" envDefault:"500ms"`

	HTTPHost string `env:"PLAYERSYNC_HTTP_HOST" envDefault:""`
	HTTPPort int    `env:"PLAYERSYNC_HTTP_PORT" envDefault:"8080"`

	LogLevel  string `env:"PLAYERSYNC_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"PLAYERSYNC_LOG_FORMAT" envDefault:"json"`
}

// ParseEnv loads configuration from environment variables into target
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads and validates the configuration
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the environment parser cannot
func (c Config) Validate() error {
	switch c.StorageType {
	case StorageMemory, StorageRedis, StorageSQLite:
	default:
		return fmt.Errorf("invalid storage type %q: must be memory, redis or sqlite", c.StorageType)
	}
	if c.SaveAttempts < 1 {
		return fmt.Errorf("save attempts must be at least 1, got %d", c.SaveAttempts)
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTPPort)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format %q: must be json or text", c.LogFormat)
	}
	return nil
}

// Addr returns the HTTP listen address
func (c Config) Addr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

// ParseLevel converts a level name to a slog level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
	}
}

// NewLogger builds the process logger writing to w
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := ParseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
