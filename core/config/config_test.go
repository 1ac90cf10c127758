package config_test

import (
	"testing"

	"filament-sync/core/config"
	"filament-sync/core/pool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := config.LoadConfig(".")
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, pool.BackendFile, cfg.Pool.Backend)
		assert.Equal(t, "pool.json", cfg.Pool.Path)
		assert.Equal(t, 250, cfg.Watch.DebounceMS)
		assert.Equal(t, 50, cfg.Reconcile.MaxDebugEntries)
		assert.False(t, cfg.Snapshot.Enabled)
	})

	t.Run("EnvironmentOverride", func(t *testing.T) {
		t.Setenv("POOL_BACKEND", "spoolman")
		t.Setenv("POOL_URL", "http://pool.local:7912")
		t.Setenv("WATCH_DEBOUNCE_MS", "500")

		cfg, err := config.LoadConfig(".")
		require.NoError(t, err)

		assert.Equal(t, pool.BackendSpoolman, cfg.Pool.Backend)
		assert.Equal(t, "http://pool.local:7912", cfg.Pool.URL)
		assert.Equal(t, 500, cfg.Watch.DebounceMS)
	})
}
