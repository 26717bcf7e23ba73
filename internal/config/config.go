package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the settings shared by the empyreal tools
type Config struct {
	// API configuration
	APIKey         string
	Environment    string
	BaseURL        string
	APIVersion     string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	ChainID        int64

	// Redis configuration
	RedisURL string

	// Database configuration
	DatabaseDSN string
	DBHost      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBPort      string
	DBSSLMode   string

	// Worker configuration
	MinWorkers int
	MaxWorkers int

	// Logging configuration
	LogLevel string

	// Metrics configuration
	MetricsPort string
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	cfg := Config{
		APIKey:      getEnv("EMPYREAL_API_KEY", ""),
		Environment: strings.ToLower(getEnv("EMPYREAL_ENV", "prod")),
		BaseURL:     getEnv("EMPYREAL_BASE_URL", ""),
		APIVersion:  getEnv("EMPYREAL_API_VERSION", "v1"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		DatabaseDSN: getEnv("DATABASE_DSN", ""),
		DBHost:      getEnv("DB_HOST", ""),
		DBUser:      getEnv("DB_USER", ""),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", ""),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBSSLMode:   getEnv("DB_SSL_MODE", "disable"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		MetricsPort: getEnv("METRICS_PORT", "9100"),
	}

	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("EMPYREAL_API_KEY environment variable is required")
	}

	var err error
	cfg.RequestTimeout, err = parseDurationEnv("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return cfg, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}

	cfg.RateLimitRPS, err = parseFloatEnv("RATE_LIMIT_RPS", 0)
	if err != nil {
		return cfg, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	cfg.RateLimitBurst, err = parseIntEnv("RATE_LIMIT_BURST", 5)
	if err != nil {
		return cfg, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	chainID, err := parseIntEnv("CHAIN_ID", 1)
	if err != nil {
		return cfg, fmt.Errorf("invalid CHAIN_ID: %w", err)
	}
	cfg.ChainID = int64(chainID)

	cfg.MinWorkers, err = parseIntEnv("MIN_WORKERS", 2)
	if err != nil {
		return cfg, fmt.Errorf("invalid MIN_WORKERS: %w", err)
	}

	cfg.MaxWorkers, err = parseIntEnv("MAX_WORKERS", 16)
	if err != nil {
		return cfg, fmt.Errorf("invalid MAX_WORKERS: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks that the configuration is valid
func (c Config) validate() error {
	if c.BaseURL == "" && c.Environment != "prod" && c.Environment != "local" {
		return fmt.Errorf("EMPYREAL_ENV must be prod or local, got %s", c.Environment)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}

	if c.ChainID < 1 {
		return fmt.Errorf("CHAIN_ID must be at least 1")
	}

	if c.MinWorkers < 1 {
		return fmt.Errorf("MIN_WORKERS must be at least 1")
	}

	if c.MaxWorkers < c.MinWorkers {
		return fmt.Errorf("MAX_WORKERS must be greater than or equal to MIN_WORKERS")
	}

	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid LOG_LEVEL: %s (must be one of: trace, debug, info, warn, error, fatal, panic)", c.LogLevel)
	}

	return nil
}

// ValidateSync checks the extra settings the history syncer needs
func (c Config) ValidateSync() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.DatabaseDSN == "" && (c.DBHost == "" || c.DBName == "") {
		return fmt.Errorf("DATABASE_DSN or DB_HOST and DB_NAME are required")
	}

	return nil
}

// DSN returns DATABASE_DSN, or builds one from the DB_* settings
func (c Config) DSN() string {
	if c.DatabaseDSN != "" {
		return c.DatabaseDSN
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		c.DBPort,
		c.DBSSLMode,
	)
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an integer environment variable with a default value
func parseIntEnv(key string, defaultValue int) (int, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(str)
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.ParseFloat(str, 64)
}

// parseDurationEnv accepts Go durations ("45s") or a bare number of seconds
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(str); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(str)
}
