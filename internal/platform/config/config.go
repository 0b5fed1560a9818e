// Package config holds the service configuration. Values are layered from
// defaults, an optional YAML file and HSDASH_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"

	maxRankingBatchSize = 500
)

type Config struct {
	Addr        string `koanf:"addr"`
	DatabaseURL string `koanf:"database_url"`
	JWTSecret   string `koanf:"jwt_secret"`
	Environment string `koanf:"environment"`
	FrontendDir string `koanf:"frontend_dir"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the slog handler: json or text.
	LogFormat string `koanf:"log_format"`

	SeedTenantName    string `koanf:"seed_tenant_name"`
	SeedAdminEmail    string `koanf:"seed_admin_email"`
	SeedAdminPassword string `koanf:"seed_admin_password"`
	RunMigrations     bool   `koanf:"run_migrations"`
	RunSeed           bool   `koanf:"run_seed"`
	MigrationsDir     string `koanf:"migrations_dir"`

	MaxBodyBytes       int64 `koanf:"max_body_bytes"`
	RateLimitPerMinute int   `koanf:"rate_limit_per_minute"`

	RankingCacheBackend      string        `koanf:"ranking_cache_backend"`
	RankingCacheTTL          time.Duration `koanf:"ranking_cache_ttl"`
	RankingCacheCapacity     int           `koanf:"ranking_cache_capacity"`
	RankingBatchSize         int           `koanf:"ranking_batch_size"`
	RankingRecomputeInterval time.Duration `koanf:"ranking_recompute_interval"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	MetricsEnabled    bool    `koanf:"metrics_enabled"`
	TracingEnabled    bool    `koanf:"tracing_enabled"`
	TracingEndpoint   string  `koanf:"tracing_endpoint"`
	TracingSampleRate float64 `koanf:"tracing_sample_rate"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Addr:                     ":8080",
		Environment:              "development",
		FrontendDir:              "frontend/dist",
		LogLevel:                 "info",
		LogFormat:                "json",
		SeedTenantName:           "Default Tenant",
		RunMigrations:            true,
		RunSeed:                  true,
		MigrationsDir:            "migrations",
		MaxBodyBytes:             1048576,
		RateLimitPerMinute:       60,
		RankingCacheBackend:      CacheBackendMemory,
		RankingCacheTTL:          5 * time.Minute,
		RankingCacheCapacity:     256,
		RankingBatchSize:         400,
		RankingRecomputeInterval: time.Hour,
		MetricsEnabled:           true,
		TracingSampleRate:        1.0,
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("%w: database_url is required", ErrInvalidConfig)
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("%w: jwt_secret must be set to a strong value in production", ErrInvalidConfig)
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("%w: seed_admin_password must be changed or run_seed disabled in production", ErrInvalidConfig)
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("%w: max_body_bytes must be at least 1024", ErrInvalidConfig)
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("%w: rate_limit_per_minute must be positive", ErrInvalidConfig)
	}
	if c.RankingBatchSize <= 0 || c.RankingBatchSize > maxRankingBatchSize {
		return fmt.Errorf("%w: ranking_batch_size must be between 1 and %d", ErrInvalidConfig, maxRankingBatchSize)
	}
	if c.RankingCacheTTL < 0 {
		return fmt.Errorf("%w: ranking_cache_ttl must not be negative", ErrInvalidConfig)
	}
	switch c.RankingCacheBackend {
	case CacheBackendMemory, CacheBackendNone:
	case CacheBackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("%w: redis_addr must be set when ranking_cache_backend is redis", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown ranking_cache_backend %q", ErrInvalidConfig, c.RankingCacheBackend)
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("%w: tracing_sample_rate must be between 0 and 1", ErrInvalidConfig)
	}
	return nil
}
