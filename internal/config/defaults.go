package config

import "time"

// Default configuration values.
const (
	DefaultDataDir             = "data"
	DefaultEngineType          = "duckdb"
	DefaultMemoryLimitMB       = 512
	DefaultMemoryCheckInterval = 30 * time.Second
	DefaultCacheCapacity       = 100
	DefaultCacheTTLDefault     = 5 * time.Minute
	DefaultCacheTTLAggregate   = 30 * time.Minute
	DefaultCacheTTLRealtime    = 30 * time.Second
	DefaultRecencyWindowDays   = 90
	DefaultTimestampColumn     = "period_start"
	DefaultCategoryColumn      = "metric_type"
)

// ApplyDefaults fills zero-valued fields with defaults.
func ApplyDefaults(c *Config) {
	if c == nil {
		return
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.EngineType == "" {
		c.EngineType = DefaultEngineType
	}
	if c.MemoryLimitMB == 0 {
		c.MemoryLimitMB = DefaultMemoryLimitMB
	}
	if c.MemoryCheckInterval == 0 {
		c.MemoryCheckInterval = DefaultMemoryCheckInterval
	}
	if c.CacheCapacity == 0 {
		c.CacheCapacity = DefaultCacheCapacity
	}
	if c.CacheTTLDefault == 0 {
		c.CacheTTLDefault = DefaultCacheTTLDefault
	}
	if c.CacheTTLAggregate == 0 {
		c.CacheTTLAggregate = DefaultCacheTTLAggregate
	}
	if c.CacheTTLRealtime == 0 {
		c.CacheTTLRealtime = DefaultCacheTTLRealtime
	}
	if c.RecencyWindowDays == 0 {
		c.RecencyWindowDays = DefaultRecencyWindowDays
	}
	if c.TimestampColumn == "" {
		c.TimestampColumn = DefaultTimestampColumn
	}
	if c.CategoryColumn == "" {
		c.CategoryColumn = DefaultCategoryColumn
	}
}
