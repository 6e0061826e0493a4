// Package config loads application configuration from environment variables
// and the static games catalog file.
package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string
	GamesPath     string
	ListenAddr    string
	SecretKey     []byte // 32-byte AES-256 key; nil when ROLLCALL_SECRET_KEY is unset.
	RunTimeout    time.Duration
	Workers       int
	RetryAttempts int
	RetryBackoff  time.Duration
	MaxFailures   int
	WebhookURL    string
}

// HasSecretKey returns true when an encryption key was configured. Commands
// that never touch stored tokens work without one.
func (c *Config) HasSecretKey() bool {
	return len(c.SecretKey) > 0
}

// rawConfig carries env values before post-parse validation. SecretKey
// stays a hex string here; Load decodes and length-checks it.
type rawConfig struct {
	DBPath        string        `env:"ROLLCALL_DB_PATH" envDefault:"rollcall.db"`
	GamesPath     string        `env:"ROLLCALL_GAMES_PATH" envDefault:"games.toml"`
	ListenAddr    string        `env:"ROLLCALL_LISTEN_ADDR" envDefault:"127.0.0.1:8080"`
	SecretKey     string        `env:"ROLLCALL_SECRET_KEY"`
	RunTimeout    time.Duration `env:"ROLLCALL_RUN_TIMEOUT" envDefault:"5m"`
	Workers       int           `env:"ROLLCALL_WORKERS" envDefault:"3"`
	RetryAttempts int           `env:"ROLLCALL_RETRY_ATTEMPTS" envDefault:"3"`
	RetryBackoff  time.Duration `env:"ROLLCALL_RETRY_BACKOFF" envDefault:"2s"`
	MaxFailures   int           `env:"ROLLCALL_MAX_FAILURES" envDefault:"7"`
	WebhookURL    string        `env:"ROLLCALL_WEBHOOK_URL"`
}

// Load reads configuration from environment variables and returns a
// validated Config. ROLLCALL_SECRET_KEY is optional at load time so that
// key-free commands (account listing, stats) still work; operations that
// need the key fail with ErrEncryptionKeyNotSet instead.
func Load() (*Config, error) {
	var raw rawConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg := &Config{
		DBPath:        raw.DBPath,
		GamesPath:     raw.GamesPath,
		ListenAddr:    raw.ListenAddr,
		RunTimeout:    raw.RunTimeout,
		Workers:       raw.Workers,
		RetryAttempts: raw.RetryAttempts,
		RetryBackoff:  raw.RetryBackoff,
		MaxFailures:   raw.MaxFailures,
		WebhookURL:    raw.WebhookURL,
	}

	if raw.SecretKey != "" {
		key, err := hex.DecodeString(raw.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("ROLLCALL_SECRET_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("ROLLCALL_SECRET_KEY must decode to 32 bytes, got %d", len(key))
		}
		cfg.SecretKey = key
	}

	if cfg.Workers < 1 {
		return nil, fmt.Errorf("ROLLCALL_WORKERS must be at least 1, got %d", cfg.Workers)
	}
	if cfg.RetryAttempts < 1 {
		return nil, fmt.Errorf("ROLLCALL_RETRY_ATTEMPTS must be at least 1, got %d", cfg.RetryAttempts)
	}
	if cfg.RetryBackoff < 0 {
		return nil, fmt.Errorf("ROLLCALL_RETRY_BACKOFF must not be negative, got %s", cfg.RetryBackoff)
	}
	if cfg.RunTimeout <= 0 {
		return nil, fmt.Errorf("ROLLCALL_RUN_TIMEOUT must be positive, got %s", cfg.RunTimeout)
	}
	if cfg.MaxFailures < 1 {
		return nil, fmt.Errorf("ROLLCALL_MAX_FAILURES must be at least 1, got %d", cfg.MaxFailures)
	}

	return cfg, nil
}
