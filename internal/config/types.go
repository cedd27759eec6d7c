// Package config provides configuration loading for Quarry.
// This package is decoupled from CLI concerns so the engine can be
// embedded by other tools.
package config

import "time"

// Config holds the full Quarry configuration. Every knob that shapes the
// data access layer lives here: the memory ceiling, cache capacity and
// TTL classes, the recency window, and the memory check interval.
type Config struct {
	// DataDir is the directory of dataset source files.
	DataDir string `koanf:"data_dir"`

	// EngineType selects the analytical engine adapter.
	EngineType string `koanf:"engine_type"`

	// DatabasePath is the engine database path (empty for in-memory).
	DatabasePath string `koanf:"database_path"`

	// HistoryPath is the query history SQLite path. Empty disables the
	// history log.
	HistoryPath string `koanf:"history_path"`

	// MemoryLimitMB is the memory ceiling for loaded tables.
	MemoryLimitMB int64 `koanf:"memory_limit_mb"`

	// MemoryCheckInterval is how often the memory manager re-estimates.
	MemoryCheckInterval time.Duration `koanf:"memory_check_interval"`

	// CacheCapacity bounds the query cache entry count.
	CacheCapacity int `koanf:"cache_capacity"`

	// Cache TTLs by query class.
	CacheTTLDefault   time.Duration `koanf:"cache_ttl_default"`
	CacheTTLAggregate time.Duration `koanf:"cache_ttl_aggregate"`
	CacheTTLRealtime  time.Duration `koanf:"cache_ttl_realtime"`

	// RecencyWindowDays bounds each table load to the trailing window.
	RecencyWindowDays int `koanf:"recency_window_days"`

	// TimestampColumn is the designated timestamp column of the dataset
	// schema, used for the recency window and the time-ordering index.
	TimestampColumn string `koanf:"timestamp_column"`

	// CategoryColumn is the dataset discriminator column.
	CategoryColumn string `koanf:"category_column"`

	// Views maps view names to their expansion SQL.
	Views map[string]string `koanf:"views"`

	// Watch registers dataset files created in DataDir after startup.
	Watch bool `koanf:"watch"`

	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`
}

// MemoryLimitBytes returns the configured ceiling in bytes.
func (c *Config) MemoryLimitBytes() int64 {
	return c.MemoryLimitMB * 1024 * 1024
}
