package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Cloud modes select the remote record database used for sync
const (
	CloudModeSQL    = "sql"
	CloudModeMemory = "memory"
	CloudModeOff    = "off"
)

// Config holds application configuration
type Config struct {
	ServerPort string `env:"PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// Local store
	DatabaseType string `env:"DATABASE_TYPE" envDefault:"sqlite"`
	DatabasePath string `env:"DB_PATH" envDefault:"./tribeboard.db"`
	DatabaseURL  string `env:"DATABASE_URL"`

	// Remote record database
	CloudMode         string        `env:"CLOUD_MODE" envDefault:"off"`
	CloudDatabaseType string        `env:"CLOUD_DATABASE_TYPE" envDefault:"postgres"`
	CloudDatabaseURL  string        `env:"CLOUD_DATABASE_URL"`
	SyncInterval      time.Duration `env:"SYNC_INTERVAL" envDefault:"5m"`

	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"720h"`

	// Sign in with Apple
	AppleClientID     string `env:"APPLE_CLIENT_ID"`
	AppleClientSecret string `env:"APPLE_CLIENT_SECRET"`
	AppleKeysURL      string `env:"APPLE_KEYS_URL" envDefault:"https://appleid.apple.com/auth/keys"`
	AppleHashKey      string `env:"APPLE_HASH_KEY"`

	// Invitation email (SES)
	AWSRegion    string `env:"AWS_REGION" envDefault:"us-east-1"`
	SESFromEmail string `env:"SES_FROM_EMAIL"`
	SESFromName  string `env:"SES_FROM_NAME" envDefault:"TribeBoard"`
	AppBaseURL   string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations that env tags cannot express
func (c *Config) Validate() error {
	c.CloudMode = strings.ToLower(strings.TrimSpace(c.CloudMode))
	switch c.CloudMode {
	case CloudModeSQL:
		if c.CloudDatabaseURL == "" {
			return fmt.Errorf("CLOUD_DATABASE_URL is required when CLOUD_MODE=%s", CloudModeSQL)
		}
	case CloudModeMemory, CloudModeOff:
	default:
		return fmt.Errorf("unsupported cloud mode: %s", c.CloudMode)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive")
	}
	return nil
}

// CloudEnabled reports whether a remote record database is configured
func (c *Config) CloudEnabled() bool {
	return c.CloudMode != CloudModeOff
}
