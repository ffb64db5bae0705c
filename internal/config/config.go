package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration for the Prospector server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Vault    VaultConfig
	Identity IdentityConfig
	Apollo   ApolloConfig
}

type ServerConfig struct {
	Port               int    `env:"PROSPECTOR_PORT" envDefault:"3001"`
	Env                string `env:"PROSPECTOR_ENV" envDefault:"development"`
	FrontendURL        string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
}

type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"5m"`
}

type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

// VaultConfig carries the master secret the credential vault derives its
// cipher key from. It is read once at startup.
type VaultConfig struct {
	EncryptionKey string `env:"ENCRYPTION_KEY"`
}

type IdentityConfig struct {
	JWTSecret string `env:"IDENTITY_JWT_SECRET"`
	Audience  string `env:"IDENTITY_AUDIENCE"`
}

type ApolloConfig struct {
	BaseURL string        `env:"APOLLO_BASE_URL" envDefault:"https://api.apollo.io/api/v1"`
	Timeout time.Duration `env:"APOLLO_TIMEOUT" envDefault:"30s"`
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	// A missing key must stop startup: a generated one would orphan every
	// credential already encrypted under the real key.
	if c.Vault.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}

	if c.Identity.JWTSecret == "" {
		return fmt.Errorf("IDENTITY_JWT_SECRET is required")
	}

	if !strings.HasPrefix(c.Apollo.BaseURL, "http://") && !strings.HasPrefix(c.Apollo.BaseURL, "https://") {
		return fmt.Errorf("APOLLO_BASE_URL must start with http:// or https://, got %q", c.Apollo.BaseURL)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PROSPECTOR_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	return nil
}
