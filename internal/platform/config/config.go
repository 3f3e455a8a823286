// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. A local '.env' file, when
present, is loaded first with 'joho/godotenv'; real environment variables always win.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, mail) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Mail transports.
const (
	MailTransportLog  = "log"
	MailTransportAMQP = "amqp"
)

// # Configuration Schema

// Config holds all runtime configuration for the Trailhead API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// PublicURL is the externally visible origin used in mailed links.
	PublicURL string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	// Relational Database (PostgreSQL)
	DatabaseURL      string `env:"DATABASE_URL,required,notEmpty"`
	DatabaseMaxConns int32  `env:"DB_MAX_CONNS"      envDefault:"25"`
	DatabaseMinConns int32  `env:"DB_MIN_CONNS"      envDefault:"2"`

	// MigrationPath is a golang-migrate source URL. Empty uses the migrations
	// compiled into the binary.
	MigrationPath string `env:"MIGRATION_PATH"`

	// Key-Value Store (Redis). Empty selects the in-process rate limiter.
	RedisURL      string `env:"REDIS_URL"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`

	// Session token signing
	JWTPrivKeyPath string        `env:"JWT_PRIVATE_KEY_PATH,required"`
	JWTPubKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH,required"`
	JWTExpiresIn   time.Duration `env:"JWT_EXPIRES_IN"        envDefault:"2160h"`
	JWTCookieDays  int           `env:"JWT_COOKIE_EXPIRES_IN" envDefault:"90"`

	// Password hashing work factor
	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`

	// Request guards
	RateLimitCapacity int           `env:"RATE_LIMIT_CAPACITY" envDefault:"100"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW"   envDefault:"1h"`
	MaxBodyBytes      int64         `env:"MAX_BODY_BYTES"      envDefault:"10240"`

	// Outbound mail
	MailTransport string `env:"MAIL_TRANSPORT" envDefault:"log"`
	AMQPURL       string `env:"AMQP_URL"`
	MailQueue     string `env:"MAIL_QUEUE"     envDefault:"mail.outbound"`
	MailFrom      string `env:"MAIL_FROM"      envDefault:"Trailhead <hello@trailhead.app>"`

	// Maintenance jobs (cron with seconds). Empty disables the job.
	RatingsReconcileSchedule string `env:"RATINGS_RECONCILE_SCHEDULE" envDefault:"0 30 3 * * *"`

	// Cross-Origin Resource Sharing
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`
}

// # Configuration Loading

// Load reads an optional '.env' file and parses environment variables into a [Config].
func Load() (*Config, error) {

	// A missing .env file is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to load .env file: %w", err)
	}

	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects combinations that env tags cannot express.
func (c *Config) validate() error {
	switch c.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("config: ENVIRONMENT must be development or production, got %q", c.Environment)
	}

	public, err := url.Parse(c.PublicURL)
	if err != nil || (public.Scheme != "http" && public.Scheme != "https") || public.Host == "" {
		return fmt.Errorf("config: PUBLIC_URL must be an absolute http(s) URL, got %q", c.PublicURL)
	}
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")

	switch c.MailTransport {
	case MailTransportLog:
	case MailTransportAMQP:
		if c.AMQPURL == "" {
			return errors.New("config: AMQP_URL is required when MAIL_TRANSPORT=amqp")
		}
	default:
		return fmt.Errorf("config: unknown MAIL_TRANSPORT %q", c.MailTransport)
	}

	if c.DatabaseMinConns < 0 || c.DatabaseMaxConns < max(c.DatabaseMinConns, 1) {
		return errors.New("config: DB_MAX_CONNS must be positive and not below DB_MIN_CONNS")
	}

	if c.RateLimitCapacity < 1 || c.RateLimitWindow <= 0 {
		return errors.New("config: rate limit capacity and window must be positive")
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// VerboseErrors reports whether error responses may expose causes.
func (c *Config) VerboseErrors() bool {
	return c.IsDevelopment() || c.Debug
}

// CookieTTL returns the lifetime of the session cookie.
func (c *Config) CookieTTL() time.Duration {
	return time.Duration(c.JWTCookieDays) * 24 * time.Hour
}
