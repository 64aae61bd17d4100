// Package config loads recall settings from a YAML file overlaid by
// RECALL_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config holds every tunable recall reads at startup.
type Config struct {
	Backend  string       `yaml:"backend"   env:"RECALL_BACKEND"`
	Redis    RedisConfig  `yaml:"redis"`
	SQLite   SQLiteConfig `yaml:"sqlite"`
	Pages    PagesConfig  `yaml:"pages"`
	LogLevel string       `yaml:"log_level" env:"RECALL_LOG_LEVEL"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr        string        `yaml:"addr"         env:"RECALL_REDIS_ADDR"`
	Password    string        `yaml:"password"     env:"RECALL_REDIS_PASSWORD"`
	DB          int           `yaml:"db"           env:"RECALL_REDIS_DB"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"RECALL_REDIS_DIAL_TIMEOUT"`
	ReadTimeout time.Duration `yaml:"read_timeout" env:"RECALL_REDIS_READ_TIMEOUT"`
}

// SQLiteConfig configures the embedded backend.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"RECALL_SQLITE_PATH"`
}

// PagesConfig configures the page cache and its fetcher.
type PagesConfig struct {
	TTL           time.Duration `yaml:"ttl"            env:"RECALL_PAGE_TTL"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"  env:"RECALL_FETCH_TIMEOUT"`
	FetchAttempts int           `yaml:"fetch_attempts" env:"RECALL_FETCH_ATTEMPTS"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Backend: BackendRedis,
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			DialTimeout: 5 * time.Second,
			ReadTimeout: 3 * time.Second,
		},
		SQLite: SQLiteConfig{
			Path: "recall.db",
		},
		Pages: PagesConfig{
			TTL:           10 * time.Second,
			FetchTimeout:  10 * time.Second,
			FetchAttempts: 1,
		},
		LogLevel: "info",
	}
}

// Load returns defaults overlaid by the YAML file at path (skipped when
// path is empty) and then by environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true) // Reject misspelled keys
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis backend")
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("invalid backend %q: must be %q or %q", c.Backend, BackendRedis, BackendSQLite)
	}
	if c.Pages.TTL <= 0 {
		return fmt.Errorf("pages.ttl must be positive, got %s", c.Pages.TTL)
	}
	if c.Pages.FetchTimeout <= 0 {
		return fmt.Errorf("pages.fetch_timeout must be positive, got %s", c.Pages.FetchTimeout)
	}
	if c.Pages.FetchAttempts < 1 {
		return fmt.Errorf("pages.fetch_attempts must be at least 1, got %d", c.Pages.FetchAttempts)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
