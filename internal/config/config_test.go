package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "", cfg.RedisURL)
	assert.Equal(t, int64(10000), cfg.MaxConnections)
	assert.Equal(t, 20, cfg.MaxConnectionsPerIP)
	assert.Equal(t, float64(10), cfg.ClientFrameRate)
	assert.Equal(t, 20, cfg.ClientFrameBurst)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("APP_URL", "https://ops.example.com")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("MAX_CONNECTIONS", "500")
	t.Setenv("MAX_CONNECTIONS_PER_IP", "5")
	t.Setenv("CLIENT_FRAME_RATE", "2.5")
	t.Setenv("CLIENT_FRAME_BURST", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://ops.example.com", cfg.AppURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, int64(500), cfg.MaxConnections)
	assert.Equal(t, 5, cfg.MaxConnectionsPerIP)
	assert.Equal(t, 2.5, cfg.ClientFrameRate)
	assert.Equal(t, 4, cfg.ClientFrameBurst)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_ProductionRequiresAppURL(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_URL is required")
}

func TestLoad_InvalidInteger(t *testing.T) {
	t.Setenv("MAX_CONNECTIONS", "plenty")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_CONNECTIONS")
}

func TestLoad_RejectsNonPositiveLimits(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero max connections", key: "MAX_CONNECTIONS", value: "0"},
		{name: "negative per-ip limit", key: "MAX_CONNECTIONS_PER_IP", value: "-1"},
		{name: "zero frame rate", key: "CLIENT_FRAME_RATE", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "must be positive")
		})
	}
}
