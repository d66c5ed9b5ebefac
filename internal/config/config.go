// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 3000).
	Port int

	// Database holds PostgreSQL connection settings for the identity store.
	Database DatabaseConfig

	// Redis holds Redis connection settings for the rate-limit counter store.
	Redis RedisConfig

	// Auth holds token signing settings.
	Auth AuthConfig

	// Downstream holds the analyzer service settings.
	Downstream DownstreamConfig

	// Upload holds file upload settings.
	Upload UploadConfig
}

// DatabaseConfig holds PostgreSQL connection parameters. Individual fields
// are read from separate env vars so container orchestrators can manage each
// independently.
type DatabaseConfig struct {
	// Host is the PostgreSQL hostname (default: "localhost").
	Host string

	// Port is the PostgreSQL port (default: 5432).
	Port int

	// Name is the database name (default: "fileanalyzer").
	Name string

	// User is the PostgreSQL username (default: "admin").
	User string

	// Password is the PostgreSQL password.
	Password string

	// MaxConns is the maximum number of connections in the pool.
	MaxConns int

	// ConnMaxLifetime is how long a pooled connection can be reused.
	ConnMaxLifetime time.Duration

	// ConnectTimeout bounds how long a single connection attempt may take.
	ConnectTimeout time.Duration

	// MigrationsPath is the directory holding SQL migration files, applied
	// automatically on startup.
	MigrationsPath string
}

// DSN returns the pgx connection string in keyword/value format, which
// avoids URL-escaping issues with special characters in passwords.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s connect_timeout=%d",
		d.Host, d.Port, d.Name, d.User, d.Password,
		int(d.ConnectTimeout.Seconds()),
	)
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	// JWTSecret is the HMAC signing secret for bearer tokens. Loaded once at
	// startup; rotation requires a restart.
	JWTSecret string

	// TokenTTL is how long an issued token remains valid (default: 24h).
	TokenTTL time.Duration
}

// DownstreamConfig holds settings for the proxied analyzer service.
type DownstreamConfig struct {
	// AnalyzerURL is the base URL of the analyzer service
	// (default: "http://localhost:8000").
	AnalyzerURL string
}

// UploadConfig holds file upload settings.
type UploadConfig struct {
	// MaxSize is the maximum upload file size in bytes (default: 10MB).
	// Enforced at the gateway before any bytes reach the analyzer.
	MaxSize int64
}

// Load reads configuration from environment variables with development
// defaults. Returns an error if required production variables are missing.
func Load() (*Config, error) {
	cfg := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnvInt("PORT", 3000),

		Database: DatabaseConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnvInt("POSTGRES_PORT", 5432),
			Name:            getEnv("POSTGRES_DB", "fileanalyzer"),
			User:            getEnv("POSTGRES_USER", "admin"),
			Password:        getEnv("POSTGRES_PASSWORD", ""),
			MaxConns:        getEnvInt("POSTGRES_MAX_CONNS", 20),
			ConnMaxLifetime: getEnvDuration("POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnectTimeout:  getEnvDuration("POSTGRES_CONNECT_TIMEOUT", 2*time.Second),
			MigrationsPath:  getEnv("MIGRATIONS_PATH", "migrations"),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("JWT_TTL", 24*time.Hour),
		},

		Downstream: DownstreamConfig{
			AnalyzerURL: strings.TrimSuffix(getEnv("ANALYZER_SERVICE_URL", "http://localhost:8000"), "/"),
		},

		Upload: UploadConfig{
			MaxSize: getEnvInt64("MAX_UPLOAD_SIZE", 10*1024*1024), // 10MB
		},
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Auth.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		if len(cfg.Auth.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
	}

	// Provide a dev-only default secret so local dev works without .env.
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-jwt-secret-do-not-use-in-production!"
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvInt64 reads an int64 env var or returns the default.
func getEnvInt64(key string, defaultVal int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "24h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
