package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "quarry.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "quarry.yml"

// envPrefix is the environment variable prefix for overrides,
// e.g. QUARRY_DATA_DIR overrides data_dir.
const envPrefix = "QUARRY_"

// Load builds the configuration by layering, lowest priority first:
// built-in defaults, the config file (if found), QUARRY_* environment
// variables, and explicitly-set command-line flags (flags may be nil).
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"data_dir":              DefaultDataDir,
		"engine_type":           DefaultEngineType,
		"memory_limit_mb":       DefaultMemoryLimitMB,
		"memory_check_interval": DefaultMemoryCheckInterval,
		"cache_capacity":        DefaultCacheCapacity,
		"cache_ttl_default":     DefaultCacheTTLDefault,
		"cache_ttl_aggregate":   DefaultCacheTTLAggregate,
		"cache_ttl_realtime":    DefaultCacheTTLRealtime,
		"recency_window_days":   DefaultRecencyWindowDays,
		"timestamp_column":      DefaultTimestampColumn,
		"category_column":       DefaultCategoryColumn,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		cfgFile = findConfigFile(".")
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment variables
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (only those explicitly set)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// findConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func findConfigFile(dir string) string {
	yamlPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}

	ymlPath := filepath.Join(dir, ConfigFileNameAlt)
	if _, err := os.Stat(ymlPath); err == nil {
		return ymlPath
	}

	return ""
}
