package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	developmentJWTSecret = "supersecuresecret"
)

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment        string        `env:"APP_ENV" envDefault:"development"`
	Addr               string        `env:"API_ADDR" envDefault:":4000"`
	DatabaseURL        string        `env:"DATABASE_URL" envDefault:"postgres://housechat:housechat@db:5432/housechat?sslmode=disable"`
	MigrationsDir      string        `env:"DB_MIGRATIONS_DIR" envDefault:"db/migrations"`
	StorageDriver      string        `env:"STORAGE_DRIVER" envDefault:"postgres"`
	JWTSecret          string        `env:"JWT_SECRET" envDefault:"supersecuresecret"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"24h"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	RateLimitRedisAddr string        `env:"RATE_LIMIT_REDIS_ADDR"`
	RateLimitRedisPass string        `env:"RATE_LIMIT_REDIS_PASSWORD"`
	RateLimitRedisDB   int           `env:"RATE_LIMIT_REDIS_DB" envDefault:"0"`
	MetricsEnabled     bool          `env:"METRICS_ENABLED" envDefault:"true"`
}

// LoadAPIConfig reads .env (if present) and then the process environment.
func LoadAPIConfig() (APIConfig, error) {
	if err := LoadDotEnv(); err != nil {
		return APIConfig{}, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := env.ParseAs[APIConfig]()
	if err != nil {
		return APIConfig{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if err := cfg.Validate(); err != nil {
		return APIConfig{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c APIConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.Environment == "production" && c.JWTSecret == developmentJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be overridden in production"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must be positive"))
	}
	switch c.StorageDriver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c APIConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	return level, nil
}
