package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/secret"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	DataAPI   DataAPIConfig
	Registry  RegistryConfig
	Cache     CacheConfig
	Reconcile ReconcileConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port   string
	Host   string
	Addr   string // Combined host:port for convenience
	APIKey string // Guards refresh and reconcile endpoints; empty disables the check
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// DataAPIConfig describes the remote data API the datasets are fetched from.
type DataAPIConfig struct {
	BaseURL      string
	Token        string // Bearer token, already decrypted
	Timeout      time.Duration
	MetadataPath string
}

// RegistryConfig points to an optional dataset registry file.
// An empty Path selects the embedded default registry.
type RegistryConfig struct {
	Path string
}

// CacheConfig holds the persistent cache freshness window.
type CacheConfig struct {
	TTL time.Duration
}

// ReconcileConfig controls the staleness reconciler.
type ReconcileConfig struct {
	Schedule    string // cron spec, e.g. "@every 1h"
	OnStart     bool
	Concurrency int
}

// RateLimitConfig holds request limits per client IP.
type RateLimitConfig struct {
	RefreshPerMinute int
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
	File   string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	timeout, err := getEnvDuration("DATA_API_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	ttl, err := getEnvDuration("CACHE_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	concurrency, err := getEnvInt("RECONCILE_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	refreshLimit, err := getEnvInt("REFRESH_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}

	token, err := secret.Resolve(os.Getenv("DATA_API_TOKEN"), os.Getenv("FERNET_KEY"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DATA_API_TOKEN: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port:   getEnv("SERVER_PORT", "5001"),
			Host:   getEnv("SERVER_HOST", "localhost"),
			APIKey: os.Getenv("INTERNAL_API_KEY"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/dashboard_cache.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{
				"http://localhost:3000",
				"http://localhost",
			}),
		},
		DataAPI: DataAPIConfig{
			BaseURL:      strings.TrimRight(getEnv("DATA_API_BASE_URL", "http://localhost:8000"), "/"),
			Token:        token,
			Timeout:      timeout,
			MetadataPath: getEnv("DATA_API_METADATA_PATH", "/api/last_update/"),
		},
		Registry: RegistryConfig{
			Path: os.Getenv("DATASET_REGISTRY"),
		},
		Cache: CacheConfig{
			TTL: ttl,
		},
		Reconcile: ReconcileConfig{
			Schedule:    getEnv("RECONCILE_SCHEDULE", "@every 1h"),
			OnStart:     getEnv("RECONCILE_ON_START", "true") == "true",
			Concurrency: concurrency,
		},
		RateLimit: RateLimitConfig{
			RefreshPerMinute: refreshLimit,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			File:   os.Getenv("LOG_FILE"),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, value)
	}
	return d, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, value)
	}
	return n, nil
}
