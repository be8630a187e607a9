package app

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseFile string // Optional: path to SQLite database file (default: ./todo.db)

	JWTSecret    string        // Required: HMAC signing key for access tokens
	JWTAlgorithm string        // Optional: signing algorithm (HS256, HS384, HS512) (default: HS256)
	TokenTTL     time.Duration // Optional: access token lifetime (default: 30m)

	RedisURL         string        // Optional: redis connection URL (default: redis://localhost:6379/0)
	CacheTTL         time.Duration // Optional: item/list cache entry lifetime (default: 1h)
	CacheFallbackMax int           // Optional: bounded local write buffer size (default: 1000)

	AuditLogFile   string // Optional: path to the audit log file (default: ./logs/audit.log)
	AuditRecentMax int64  // Optional: length of the recent-events ring in redis (default: 1000)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Fallback drain interval (default: 30s)
}

// ErrMissingSecret is returned by Validate when no signing key is configured.
var ErrMissingSecret = errors.New("TODO_JWT_SECRET must be set")

func LoadConfig() Config {
	return Config{
		DatabaseFile: getEnvOrDefault("TODO_DATABASE_FILE", "todo.db"),

		JWTSecret:    os.Getenv("TODO_JWT_SECRET"),
		JWTAlgorithm: getEnvOrDefault("TODO_JWT_ALGORITHM", "HS256"),
		TokenTTL:     getEnvDurationOrDefault("TODO_TOKEN_TTL", 30*time.Minute),

		RedisURL:         getEnvOrDefault("TODO_REDIS_URL", "redis://localhost:6379/0"),
		CacheTTL:         getEnvDurationOrDefault("TODO_CACHE_TTL", 1*time.Hour),
		CacheFallbackMax: getEnvIntOrDefault("TODO_CACHE_FALLBACK_MAX", 1000),

		AuditLogFile:   getEnvOrDefault("TODO_AUDIT_LOG_FILE", "logs/audit.log"),
		AuditRecentMax: int64(getEnvIntOrDefault("TODO_AUDIT_RECENT_MAX", 1000)),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 30*time.Second),
	}
}

// Validate checks the settings that have no sane default.
func (cfg Config) Validate() error {
	if cfg.JWTSecret == "" {
		return ErrMissingSecret
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are read as seconds.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
