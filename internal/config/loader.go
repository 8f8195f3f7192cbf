package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for all settings.
const envPrefix = "SUMAI"

// envKeys lists every configuration key.  Viper only unmarshals env-backed
// keys it knows about, so each one is bound explicitly; AutomaticEnv alone
// does not surface env-only keys to Unmarshal.
var envKeys = []string{
	"server.host", "server.port", "server.mode",
	"server.read_timeout", "server.write_timeout",
	"server.max_body_size", "server.shutdown_timeout",
	"spec.bundle_path", "spec.watch",
	"benchmark.index_path", "benchmark.raw_paths", "benchmark.write_if_missing",
	"cache.enabled", "cache.key_prefix", "cache.ttl",
	"redis.mode", "redis.addr", "redis.master_name",
	"redis.sentinel_addrs", "redis.cluster_addrs",
	"redis.username", "redis.password", "redis.db",
	"redis.pool_size", "redis.min_idle_conns",
	"redis.dial_timeout", "redis.read_timeout", "redis.write_timeout",
	"evaluation.mgmt_fee_estimate_ratio",
	"evaluation.mgmt_fee_estimate_cap_yen",
	"evaluation.evaluation_year",
	"metrics.enabled", "metrics.namespace",
	"metrics.process_metrics", "metrics.go_metrics",
	"log.level", "log.format", "log.output_paths",
}

// newViper builds a pre-configured Viper instance: YAML file type, SUMAI_
// env prefix, automatic env binding, and a key replacer mapping "." to "_"
// so nested keys like "redis.addr" resolve to "SUMAI_REDIS_ADDR".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	// Defaulted through viper rather than ApplyDefaults so an explicit 0
	// (estimate disabled / cap removed) is distinguishable from "unset".
	v.SetDefault("evaluation.mgmt_fee_estimate_ratio", DefaultMgmtFeeEstimateRatio)
	v.SetDefault("evaluation.mgmt_fee_estimate_cap_yen", DefaultMgmtFeeEstimateCapYen)
	return v
}

// Load reads the YAML file at configPath, merges SUMAI_* environment
// variable overrides, applies defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from SUMAI_* environment variables,
// with no config file required.  Preferred for containerised deployments.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed
// Config whenever the file changes on disk.  A change that fails to parse or
// validate is dropped so the application never adopts a broken config.
// Watch is non-blocking; viper manages the background goroutine.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; errors surface via Load, which callers run first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad wraps Load and panics on error, for use in main() where a config
// failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
