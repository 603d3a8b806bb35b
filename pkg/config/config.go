package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/pkgindex/pkg/index/cache"
	"github.com/platinummonkey/pkgindex/pkg/index/sqlindex"
	"github.com/platinummonkey/pkgindex/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Index database configuration
	Index IndexConfig

	// Cache configuration
	Cache CacheConfig

	// Observability configuration
	Observability ObservabilityConfig

	// Validation configuration
	Validation ValidationConfig
}

// IndexConfig holds index database configuration
type IndexConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Timeout         time.Duration
}

// CacheConfig holds index cache configuration
type CacheConfig struct {
	Enabled    bool
	MaxEntries int
	TTL        time.Duration
	KeyPrefix  string

	// Redis is optional. Without a URL only the in-process layer is used.
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  observability.LogLevel
	LogFormat string

	// Metrics
	MetricsEnabled bool
	// MetricsFile is written in the Prometheus text format when the command exits
	MetricsFile string
}

// ValidationConfig holds batch validation settings
type ValidationConfig struct {
	// Concurrency bounds how many manifests are validated at once
	Concurrency int
}

// LoadConfig loads configuration from environment variables and validates it
func LoadConfig() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// FromEnv reads configuration from environment variables without validating
// it. Callers that override fields must call Validate themselves.
func FromEnv() *Config {
	return &Config{
		Index:         loadIndexConfig(),
		Cache:         loadCacheConfig(),
		Observability: loadObservabilityConfig(),
		Validation:    loadValidationConfig(),
	}
}

// loadIndexConfig loads index configuration from environment
func loadIndexConfig() IndexConfig {
	return IndexConfig{
		Driver:          getEnv("PKGINDEX_INDEX_DRIVER", "sqlite3"),
		DSN:             getEnv("PKGINDEX_INDEX_DSN", "file:pkgindex.db?_busy_timeout=5000"),
		MaxOpenConns:    getEnvInt("PKGINDEX_INDEX_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvInt("PKGINDEX_INDEX_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: getEnvDuration("PKGINDEX_INDEX_CONN_MAX_LIFETIME", time.Hour),
		Timeout:         getEnvDuration("PKGINDEX_INDEX_TIMEOUT", 10*time.Second),
	}
}

// loadCacheConfig loads cache configuration from environment
func loadCacheConfig() CacheConfig {
	defaults := cache.DefaultConfig()
	return CacheConfig{
		Enabled:         getEnvBool("PKGINDEX_CACHE_ENABLED", false),
		MaxEntries:      getEnvInt("PKGINDEX_CACHE_MAX_ENTRIES", defaults.MaxEntries),
		TTL:             getEnvDuration("PKGINDEX_CACHE_TTL", defaults.TTL),
		KeyPrefix:       getEnv("PKGINDEX_CACHE_KEY_PREFIX", defaults.KeyPrefix),
		RedisURL:        getEnv("PKGINDEX_REDIS_URL", ""),
		RedisPassword:   getEnv("PKGINDEX_REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("PKGINDEX_REDIS_DB", -1),
		RedisMaxRetries: getEnvInt("PKGINDEX_REDIS_MAX_RETRIES", 0),
		RedisPoolSize:   getEnvInt("PKGINDEX_REDIS_POOL_SIZE", 0),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       parseLogLevel(getEnv("PKGINDEX_LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("PKGINDEX_LOG_FORMAT", "json")),
		MetricsEnabled: getEnvBool("PKGINDEX_METRICS_ENABLED", true),
		MetricsFile:    getEnv("PKGINDEX_METRICS_FILE", ""),
	}
}

// loadValidationConfig loads validation configuration from environment
func loadValidationConfig() ValidationConfig {
	return ValidationConfig{
		Concurrency: getEnvInt("PKGINDEX_VALIDATE_CONCURRENCY", 4),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := sqlindex.ParseDialect(c.Index.Driver); err != nil {
		return err
	}
	if c.Index.DSN == "" {
		return fmt.Errorf("index DSN is required")
	}

	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache TTL must be positive")
		}
		if c.Cache.MaxEntries <= 0 {
			return fmt.Errorf("cache max entries must be positive")
		}
		if c.Cache.RedisURL != "" {
			if _, err := redis.ParseURL(c.Cache.RedisURL); err != nil {
				return fmt.Errorf("invalid redis URL: %w", err)
			}
		}
	}

	switch c.Observability.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Observability.LogFormat)
	}

	if c.Validation.Concurrency < 1 {
		return fmt.Errorf("validation concurrency must be at least 1")
	}

	return nil
}

// SQLConfig converts the index settings into a sqlindex.Config
func (c IndexConfig) SQLConfig() (sqlindex.Config, error) {
	dialect, err := sqlindex.ParseDialect(c.Driver)
	if err != nil {
		return sqlindex.Config{}, err
	}
	return sqlindex.Config{
		Dialect:         dialect,
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		Timeout:         c.Timeout,
	}, nil
}

// CacheOptions converts the cache settings into a cache.Config
func (c CacheConfig) CacheOptions() *cache.Config {
	return &cache.Config{
		MaxEntries: c.MaxEntries,
		TTL:        c.TTL,
		KeyPrefix:  c.KeyPrefix,
	}
}

// RedisOptions builds client options, or returns nil when Redis is not configured
func (c CacheConfig) RedisOptions() (*redis.Options, error) {
	if c.RedisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	// Override with config values if provided
	if c.RedisPassword != "" {
		opts.Password = c.RedisPassword
	}
	if c.RedisDB >= 0 {
		opts.DB = c.RedisDB
	}
	if c.RedisMaxRetries > 0 {
		opts.MaxRetries = c.RedisMaxRetries
	}
	if c.RedisPoolSize > 0 {
		opts.PoolSize = c.RedisPoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	return opts, nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	lvl, err := observability.ParseLogLevel(level)
	if err != nil {
		return observability.InfoLevel
	}
	return lvl
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
