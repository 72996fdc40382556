// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config is the process configuration. Command-line flags override it.
type Config struct {
	Store   string `env:"STORYLINE_STORE" envDefault:"file"`
	DataDir string `env:"STORYLINE_DATA_DIR" envDefault:".storyline/episodes"`

	RedisAddr     string `env:"STORYLINE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"STORYLINE_REDIS_PASSWORD"`
	RedisDB       int    `env:"STORYLINE_REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"STORYLINE_REDIS_PREFIX" envDefault:"storyline:"`

	SQLitePath string `env:"STORYLINE_SQLITE_PATH" envDefault:".storyline/storyline.db"`

	ChoiceWindow      time.Duration `env:"STORYLINE_CHOICE_WINDOW" envDefault:"30s"`
	FallbackTimestamp float64       `env:"STORYLINE_FALLBACK_TIMESTAMP" envDefault:"5"`
	AssetBaseURL      string        `env:"STORYLINE_ASSET_BASE_URL"`
	AssetDir          string        `env:"STORYLINE_ASSET_DIR"`

	LogLevel string `env:"STORYLINE_LOG_LEVEL" envDefault:"info"`
	HTTPAddr string `env:"STORYLINE_HTTP_ADDR" envDefault:":8080"`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment and validates the result.
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

// Validate checks values that the parser cannot.
func (c Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreMemory, StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q (want file, memory, redis or sqlite)", c.Store)
	}
	if c.ChoiceWindow <= 0 {
		return fmt.Errorf("choice window must be positive, got %s", c.ChoiceWindow)
	}
	if c.FallbackTimestamp < 0 {
		return fmt.Errorf("fallback timestamp must not be negative, got %g", c.FallbackTimestamp)
	}
	return nil
}
