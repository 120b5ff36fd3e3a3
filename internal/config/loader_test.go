package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banzuke/banzuke/internal/core/ratelimit"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	SetConfigFile("")
	t.Cleanup(func() { SetConfigFile("") })
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	// Test basic config loading with defaults
	t.Run("LoadDefaults", func(t *testing.T) {
		isolate(t)

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify API defaults
		assert.Equal(t, "https://www.sumo-api.com/api", cfg.API.BaseURL)
		assert.Equal(t, 10*time.Second, cfg.API.Timeout)

		// Verify rate limit defaults
		assert.Equal(t, 60, cfg.RateLimit.MaxCalls)
		assert.Equal(t, time.Minute, cfg.RateLimit.Window)
		assert.Equal(t, ratelimit.DefaultMaxWaits, cfg.RateLimit.MaxRechecks)
		assert.Equal(t, ratelimit.DefaultConfig(), cfg.RateLimit.Limiter())

		// Verify cache defaults
		assert.False(t, cfg.Cache.Enabled)
		assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)

		// Verify server defaults
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, 5.0, cfg.Server.RequestsPerSecond)
		assert.Equal(t, 10, cfg.Server.Burst)

		// Verify store defaults
		assert.Equal(t, "libsql", cfg.Store.Driver)
		expectedStorePath := filepath.Join(gfconfig.GetAppDataDir("banzuke"), "banzuke.db")
		assert.Equal(t, expectedStorePath, cfg.Store.Path)

		// Verify logging and metrics defaults
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "SIMPLE", cfg.Logging.Profile)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)
		assert.True(t, cfg.Health.Enabled)
	})

	// Test runtime overrides
	t.Run("RuntimeOverrides", func(t *testing.T) {
		isolate(t)

		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"rate_limit": map[string]any{
				"max_calls": 10,
				"window":    "30s",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, 10, cfg.RateLimit.MaxCalls)
		assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)

		// Verify non-overridden values remain default
		assert.Equal(t, "SIMPLE", cfg.Logging.Profile)
		assert.Equal(t, ratelimit.DefaultMaxWaits, cfg.RateLimit.MaxRechecks)
	})

	// Test environment variable overrides
	t.Run("EnvOverrides", func(t *testing.T) {
		isolate(t)
		t.Setenv("BANZUKE_SERVER_PORT", "3000")
		t.Setenv("BANZUKE_LOGGING_LEVEL", "warn")
		t.Setenv("BANZUKE_RATE_LIMIT_MAX_CALLS", "15")
		t.Setenv("BANZUKE_CACHE_ENABLED", "true")
		t.Setenv("BANZUKE_CACHE_TTL", "2m")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, 15, cfg.RateLimit.MaxCalls)
		assert.True(t, cfg.Cache.Enabled)
		assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	})

	// Test config precedence: runtime > env > file > defaults
	t.Run("ConfigPrecedence", func(t *testing.T) {
		isolate(t)

		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n  host: file-host\nrate_limit:\n  window: 5s\n"), 0o600))
		SetConfigFile(path)

		t.Setenv("BANZUKE_SERVER_PORT", "4000")

		cfg, err := Load(ctx, map[string]any{
			"server": map[string]any{"port": 5000},
		})
		require.NoError(t, err)

		assert.Equal(t, 5000, cfg.Server.Port)
		assert.Equal(t, "file-host", cfg.Server.Host)
		assert.Equal(t, 5*time.Second, cfg.RateLimit.Window)
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		isolate(t)
		SetConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))

		_, err := Load(ctx)
		require.Error(t, err)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		isolate(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := Load(cancelled)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoadRejectsInvalidRateLimit(t *testing.T) {
	isolate(t)

	_, err := Load(context.Background(), map[string]any{
		"rate_limit": map[string]any{"max_calls": 0},
	})
	require.ErrorIs(t, err, ratelimit.ErrInvalidMaxCalls)

	_, err = Load(context.Background(), map[string]any{
		"rate_limit": map[string]any{"window": "0s"},
	})
	require.ErrorIs(t, err, ratelimit.ErrInvalidWindow)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			RateLimit: RateLimitConfig{MaxCalls: 5, Window: time.Second},
			Cache:     CacheConfig{TTL: time.Minute},
			Server:    ServerConfig{Port: 8080},
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.RateLimit.MaxRechecks = -1
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Cache = CacheConfig{Enabled: true}
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Server.Port = 70000
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Server.RequestsPerSecond = -1
	require.Error(t, cfg.Validate())

	var nilCfg *Config
	require.Error(t, nilCfg.Validate())
}

func TestGetConfig(t *testing.T) {
	isolate(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
	assert.Equal(t, cfg.RateLimit, retrieved.RateLimit)
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	assert.Equal(t, filepath.Join(gfconfig.GetAppConfigDir("banzuke"), "config.yaml"), DefaultConfigPath())
	assert.Equal(t, gfconfig.GetAppDataDir("banzuke"), DefaultDataDir())
}

func TestDurationOrDefault(t *testing.T) {
	assert.Equal(t, time.Second, DurationOrDefault(0, time.Second))
	assert.Equal(t, time.Minute, DurationOrDefault(time.Minute, time.Second))
}
