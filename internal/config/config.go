// Package config loads runtime settings from the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Cache backends.
const (
	CacheFile   = "file"
	CacheRedis  = "redis"
	CacheMemory = "memory"
)

// Config holds all runtime configuration.
type Config struct {
	// Env is "development" or "production".
	Env string

	// Addr is the HTTP listen address of `breeze serve`.
	Addr string

	DB    DBConfig
	Cache CacheConfig
	Auth  AuthConfig

	// Timezone names the location whose calendar days count for streaks.
	Timezone string

	AllowedOrigins []string

	// RetryAttempts bounds retries of transient store failures.
	RetryAttempts int

	// SweepAt is the daily "HH:MM" time of the streak sweep.
	SweepAt string

	// SessionIdle is how long the server keeps an unused learner session
	// attached.
	SessionIdle time.Duration

	Log LogConfig
}

// DBConfig selects the document store.
type DBConfig struct {
	// Driver values: "sqlite", "postgres", "mongo".
	Driver string
	// DSN is the SQLite path or Postgres connection string. Empty means the
	// default SQLite path.
	DSN      string
	MongoURI string
	MongoDB  string
}

// CacheConfig selects the local cache.
type CacheConfig struct {
	// Backend values: "file", "redis", "memory".
	Backend  string
	Dir      string
	RedisURL string
}

// AuthConfig configures session tokens.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// GoogleClientID enables Google sign-in; ID tokens must carry it as
	// their audience.
	GoogleClientID string
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Env:  "development",
		Addr: ":8080",
		DB: DBConfig{
			Driver:  DriverSQLite,
			MongoDB: "breeze",
		},
		Cache: CacheConfig{
			Backend: CacheFile,
		},
		Auth: AuthConfig{
			TokenTTL: 7 * 24 * time.Hour,
		},
		Timezone:       "Local",
		AllowedOrigins: []string{"http://localhost:3000"},
		RetryAttempts:  3,
		SweepAt:        "00:05",
		SessionIdle:    30 * time.Minute,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads envFile (".env" when empty; a missing file is ignored) and then
// the environment, falling back to defaults for unset values. Variables
// already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	return FromEnv()
}

// FromEnv builds a Config from BREEZE_* environment variables.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("BREEZE_ENV"); v != "" {
		cfg.Env = strings.ToLower(v)
	}
	if v := os.Getenv("BREEZE_ADDR"); v != "" {
		cfg.Addr = v
	}

	if v := os.Getenv("BREEZE_DB_DRIVER"); v != "" {
		cfg.DB.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("BREEZE_DB"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("BREEZE_MONGO_URI"); v != "" {
		cfg.DB.MongoURI = v
	}
	if v := os.Getenv("BREEZE_MONGO_DB"); v != "" {
		cfg.DB.MongoDB = v
	}

	if v := os.Getenv("BREEZE_CACHE"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("BREEZE_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("BREEZE_REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}

	if v := os.Getenv("BREEZE_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("BREEZE_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("BREEZE_TOKEN_TTL: %w", err)
		}
		cfg.Auth.TokenTTL = d
	}

	if v := os.Getenv("BREEZE_GOOGLE_CLIENT_ID"); v != "" {
		cfg.Auth.GoogleClientID = v
	}

	if v := os.Getenv("BREEZE_TZ"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("BREEZE_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("BREEZE_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("BREEZE_RETRY_ATTEMPTS: %w", err)
		}
		cfg.RetryAttempts = n
	}
	if v := os.Getenv("BREEZE_SWEEP_AT"); v != "" {
		cfg.SweepAt = v
	}
	if v := os.Getenv("BREEZE_SESSION_IDLE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("BREEZE_SESSION_IDLE: %w", err)
		}
		cfg.SessionIdle = d
	}

	if v := os.Getenv("BREEZE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("BREEZE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Production reports whether Env is production.
func (c Config) Production() bool {
	return c.Env == "production"
}

// Validate checks backend choices and value formats.
func (c Config) Validate() error {
	var errs []error

	switch c.DB.Driver {
	case DriverSQLite, DriverPostgres:
	case DriverMongo:
		if c.DB.MongoURI == "" {
			errs = append(errs, errors.New("BREEZE_MONGO_URI is required for the mongo driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown db driver %q", c.DB.Driver))
	}
	if c.DB.Driver == DriverPostgres && c.DB.DSN == "" {
		errs = append(errs, errors.New("BREEZE_DB is required for the postgres driver"))
	}

	switch c.Cache.Backend {
	case CacheFile, CacheMemory:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			errs = append(errs, errors.New("BREEZE_REDIS_URL is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if _, err := time.Parse("15:04", c.SweepAt); err != nil {
		errs = append(errs, fmt.Errorf("sweep time %q: want HH:MM", c.SweepAt))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry attempts must be at least 1, got %d", c.RetryAttempts))
	}
	if c.SessionIdle <= 0 {
		errs = append(errs, errors.New("session idle timeout must be positive"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("token TTL must be positive"))
	}
	if c.Production() && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("BREEZE_JWT_SECRET must be at least 32 bytes in production"))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
