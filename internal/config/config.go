package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	AppEnv    string
	Port      string
	LogLevel  string
	LogFormat string

	// AppURL is the public base URL, used for WebSocket origin checks.
	AppURL string

	// RedisURL enables the cross-instance relay when set. Empty means
	// single-instance operation with local-only broadcast.
	RedisURL string

	MaxConnections      int64
	MaxConnectionsPerIP int

	// ClientFrameRate limits inbound frames per second per connection.
	ClientFrameRate  float64
	ClientFrameBurst int

	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment. A .env file is applied
// first when present (development convenience, ignored in production images).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		AppURL:          getEnv("APP_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		ShutdownTimeout: 10 * time.Second,
	}

	var err error
	if cfg.MaxConnections, err = getEnvInt64("MAX_CONNECTIONS", 10000); err != nil {
		return nil, err
	}
	if cfg.MaxConnectionsPerIP, err = getEnvInt("MAX_CONNECTIONS_PER_IP", 20); err != nil {
		return nil, err
	}
	if cfg.ClientFrameRate, err = getEnvFloat("CLIENT_FRAME_RATE", 10); err != nil {
		return nil, err
	}
	if cfg.ClientFrameBurst, err = getEnvInt("CLIENT_FRAME_BURST", 20); err != nil {
		return nil, err
	}

	if cfg.AppEnv == "production" && cfg.AppURL == "" {
		return nil, fmt.Errorf("APP_URL is required in production")
	}
	if cfg.MaxConnections <= 0 {
		return nil, fmt.Errorf("MAX_CONNECTIONS must be positive")
	}
	if cfg.MaxConnectionsPerIP <= 0 {
		return nil, fmt.Errorf("MAX_CONNECTIONS_PER_IP must be positive")
	}
	if cfg.ClientFrameRate <= 0 {
		return nil, fmt.Errorf("CLIENT_FRAME_RATE must be positive")
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return v, nil
}
