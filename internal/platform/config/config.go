// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, TokenService) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinSecretLength is the shortest HMAC signing secret accepted at startup.
const MinSecretLength = 32

// ErrWeakSecret is returned when JWT_SECRET is shorter than [MinSecretLength].
var ErrWeakSecret = errors.New("config: JWT_SECRET must be at least 32 bytes")

// ErrWildcardOrigin is returned when a production deployment leaves CORS_ORIGIN at "*".
var ErrWildcardOrigin = errors.New("config: CORS_ORIGIN must name an origin in production")

// # Configuration Schema

// Config holds all runtime configuration for the JetStream user service.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"3001"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis). Optional: enables distributed login throttling.
	RedisURL string `env:"REDIS_URL"`

	// Session token signing. The secret never leaves the process.
	JWTSecret string `env:"JWT_SECRET,required,unset"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"jetstream"`

	// Federated identity providers. An empty value means the provider is absent.
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	GoogleClientID    string `env:"GOOGLE_CLIENT_ID"`
	AppleClientID     string `env:"APPLE_CLIENT_ID"`

	// Cross-Origin Resource Sharing
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"*"`

	// Transport rate limiting (per client IP)
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// Failed-login throttling (per email)
	LoginMaxAttempts   int           `env:"LOGIN_MAX_ATTEMPTS"   envDefault:"10"`
	LoginAttemptWindow time.Duration `env:"LOGIN_ATTEMPT_WINDOW" envDefault:"15m"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces startup invariants that struct tags cannot express.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < MinSecretLength {
		return ErrWeakSecret
	}
	if c.JWTIssuer == "" {
		return errors.New("config: JWT_ISSUER must not be empty")
	}
	if c.LoginMaxAttempts < 1 {
		return errors.New("config: LOGIN_MAX_ATTEMPTS must be positive")
	}
	if c.IsProduction() && c.CORSOrigin == "*" {
		return ErrWildcardOrigin
	}
	return nil
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigin returns the configured CORS origin.
func (c *Config) AllowedOrigin() string {
	return c.CORSOrigin
}
