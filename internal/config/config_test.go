package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	// No config file, no env, no flags: every knob gets its default.
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err, "explicit missing config file should fail")

	cfg, err = Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, DefaultEngineType, cfg.EngineType)
	assert.Equal(t, int64(DefaultMemoryLimitMB), cfg.MemoryLimitMB)
	assert.Equal(t, DefaultMemoryCheckInterval, cfg.MemoryCheckInterval)
	assert.Equal(t, DefaultCacheCapacity, cfg.CacheCapacity)
	assert.Equal(t, DefaultCacheTTLDefault, cfg.CacheTTLDefault)
	assert.Equal(t, DefaultCacheTTLAggregate, cfg.CacheTTLAggregate)
	assert.Equal(t, DefaultCacheTTLRealtime, cfg.CacheTTLRealtime)
	assert.Equal(t, DefaultRecencyWindowDays, cfg.RecencyWindowDays)
	assert.Equal(t, DefaultTimestampColumn, cfg.TimestampColumn)
	assert.Equal(t, DefaultCategoryColumn, cfg.CategoryColumn)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
data_dir: /srv/metrics
memory_limit_mb: 1024
cache_ttl_default: 45s
recency_window_days: 30
views:
  recent_energy: SELECT * FROM energy WHERE period_start >= NOW() - INTERVAL 7 DAY
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/srv/metrics", cfg.DataDir)
	assert.Equal(t, int64(1024), cfg.MemoryLimitMB)
	assert.Equal(t, 45*time.Second, cfg.CacheTTLDefault)
	assert.Equal(t, 30, cfg.RecencyWindowDays)
	assert.Contains(t, cfg.Views, "recent_energy")

	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultEngineType, cfg.EngineType)
	assert.Equal(t, DefaultCacheTTLAggregate, cfg.CacheTTLAggregate)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "memory_limit_mb: 1024\n")

	t.Setenv("QUARRY_MEMORY_LIMIT_MB", "256")
	t.Setenv("QUARRY_DATA_DIR", "/env/data")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(256), cfg.MemoryLimitMB)
	assert.Equal(t, "/env/data", cfg.DataDir)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("QUARRY_DATA_DIR", "/env/data")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("data-dir", "", "")
	flags.Int64("memory-limit-mb", 0, "")
	require.NoError(t, flags.Set("data-dir", "/flag/data"))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "/flag/data", cfg.DataDir)
	// memory-limit-mb was registered but never set, so the default survives.
	assert.Equal(t, int64(DefaultMemoryLimitMB), cfg.MemoryLimitMB)
}

func TestMemoryLimitBytes(t *testing.T) {
	cfg := Config{MemoryLimitMB: 512}
	assert.Equal(t, int64(512*1024*1024), cfg.MemoryLimitBytes())
}

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{DataDir: "custom", MemoryLimitMB: 64}
	ApplyDefaults(cfg)

	assert.Equal(t, "custom", cfg.DataDir)
	assert.Equal(t, int64(64), cfg.MemoryLimitMB)
	assert.Equal(t, DefaultEngineType, cfg.EngineType)
	assert.Equal(t, DefaultCacheCapacity, cfg.CacheCapacity)

	ApplyDefaults(nil) // must not panic
}
