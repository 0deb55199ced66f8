// Package config defines the top-level configuration for the marketplace
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by NFTMARKET_* environment
// variables.
type Config struct {
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Archive  ArchiveConfig  `toml:"archive"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters for the account
// store.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional: without
// it the service runs with store-level locking only and no event stream.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for receipt
// archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey protects the HTTP API; empty disables authentication.
	APIKey string `toml:"api_key"`
}

// ArchiveConfig controls the receipt archive mode.
type ArchiveConfig struct {
	// RetentionDays is how many days of receipts stay in the primary store;
	// older receipts are archived when mode=archive runs.
	RetentionDays int `toml:"retention_days"`
}

// Defaults returns a Config with sensible development defaults.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "nftmarket",
			User:          "nftmarket",
			SSLMode:       "disable",
			PoolMaxConns:  8,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled: true,
			Addr:    "localhost:6379",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Archive: ArchiveConfig{
			RetentionDays: 90,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// RetentionCutoff returns the archive cutoff for the given wall-clock time.
func (a ArchiveConfig) RetentionCutoff(now time.Time) time.Time {
	return now.Add(-time.Duration(a.RetentionDays) * 24 * time.Hour)
}

// Validate checks the configuration for internal consistency and returns a
// descriptive error on the first problem found.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "serve", "archive":
	default:
		return fmt.Errorf("config: unsupported mode %q (want serve or archive)", c.Mode)
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" || c.Postgres.Database == "" || c.Postgres.User == "" {
			return fmt.Errorf("config: postgres requires dsn or host/database/user")
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis enabled but addr is empty")
	}

	if c.Mode == "archive" {
		if c.S3.Bucket == "" || c.S3.Region == "" {
			return fmt.Errorf("config: archive mode requires s3 bucket and region")
		}
		if c.Archive.RetentionDays <= 0 {
			return fmt.Errorf("config: archive retention_days must be positive")
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}

	return nil
}
