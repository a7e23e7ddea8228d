package config

import (
	"errors"
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, uint(2048), cfg.CacheSize)
	assert.Equal(t, "havengate.db", cfg.DBPath)
	assert.Empty(t, cfg.AllowlistURL)
	assert.Empty(t, cfg.TelemetryURL)
	assert.Equal(t, 6*time.Hour, cfg.RefreshInterval)
	assert.Equal(t, 24*time.Hour, cfg.SnapshotTTL)
	assert.Equal(t, "unknown", cfg.DeviceType)
	assert.Empty(t, cfg.ListenAddr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HAVEN_ENV", "dev")
	t.Setenv("HAVEN_LOG_LEVEL", "debug")
	t.Setenv("HAVEN_CACHE_SIZE", "512")
	t.Setenv("HAVEN_DB_PATH", "/var/lib/havengate/allowlist.db")
	t.Setenv("HAVEN_ALLOWLIST_URL", "https://lists.example.com/allowlist.json")
	t.Setenv("HAVEN_TELEMETRY_URL", "https://telemetry.example.com/v1/reports")
	t.Setenv("HAVEN_REFRESH_INTERVAL", "30m")
	t.Setenv("HAVEN_SNAPSHOT_TTL", "48h")
	t.Setenv("HAVEN_DEVICE_TYPE", "mobile")
	t.Setenv("HAVEN_LISTEN_ADDR", "127.0.0.1:7877")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint(512), cfg.CacheSize)
	assert.Equal(t, "/var/lib/havengate/allowlist.db", cfg.DBPath)
	assert.Equal(t, "https://lists.example.com/allowlist.json", cfg.AllowlistURL)
	assert.Equal(t, "https://telemetry.example.com/v1/reports", cfg.TelemetryURL)
	assert.Equal(t, 30*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 48*time.Hour, cfg.SnapshotTTL)
	assert.Equal(t, "mobile", cfg.DeviceType)
	assert.Equal(t, "127.0.0.1:7877", cfg.ListenAddr)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown env", "HAVEN_ENV", "staging"},
		{"unknown log level", "HAVEN_LOG_LEVEL", "trace"},
		{"zero cache size", "HAVEN_CACHE_SIZE", "0"},
		{"malformed allowlist url", "HAVEN_ALLOWLIST_URL", "not-a-url"},
		{"refresh interval too small", "HAVEN_REFRESH_INTERVAL", "5s"},
		{"snapshot ttl too small", "HAVEN_SNAPSHOT_TTL", "10m"},
		{"unknown device type", "HAVEN_DEVICE_TYPE", "smartwatch"},
		{"bad listen addr", "HAVEN_LISTEN_ADDR", "no-port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validation failed")
		})
	}
}

func TestLoad_EnvLoaderFailure(t *testing.T) {
	orig := envLoader
	defer func() { envLoader = orig }()
	envLoader = func(*koanf.Koanf) error {
		return errors.New("boom")
	}

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading env")
}
