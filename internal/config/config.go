// Package config defines the service configuration structures.  No I/O or
// parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SpecConfig locates the rule spec bundle.
type SpecConfig struct {
	BundlePath string `mapstructure:"bundle_path"`
	Watch      bool   `mapstructure:"watch"`
}

// BenchmarkConfig locates the market benchmark data.  A prebuilt index is
// preferred; raw files are aggregated when the index is absent.
type BenchmarkConfig struct {
	IndexPath      string   `mapstructure:"index_path"`
	RawPaths       []string `mapstructure:"raw_paths"`
	WriteIfMissing bool     `mapstructure:"write_if_missing"`
}

// CacheConfig holds the report cache settings.  Disabled means evaluations
// are always computed fresh.
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Mode          string        `mapstructure:"mode"` // "standalone" | "sentinel" | "cluster"
	Addr          string        `mapstructure:"addr"`
	MasterName    string        `mapstructure:"master_name"`
	SentinelAddrs []string      `mapstructure:"sentinel_addrs"`
	ClusterAddrs  []string      `mapstructure:"cluster_addrs"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	PoolSize      int           `mapstructure:"pool_size"`
	MinIdleConns  int           `mapstructure:"min_idle_conns"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
}

// EvaluationConfig tunes evaluation behavior that is operational rather than
// spec-authored.
type EvaluationConfig struct {
	// MgmtFeeEstimateRatio approximates management fees for rent-only
	// benchmark sources, capped at MgmtFeeEstimateCapYen.
	MgmtFeeEstimateRatio  float64 `mapstructure:"mgmt_fee_estimate_ratio"`
	MgmtFeeEstimateCapYen int     `mapstructure:"mgmt_fee_estimate_cap_yen"`

	// EvaluationYear pins building-age math for reproducible output.
	// 0 uses the current year.
	EvaluationYear int `mapstructure:"evaluation_year"`
}

// MetricsConfig holds Prometheus exporter settings.
type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Namespace      string `mapstructure:"namespace"`
	ProcessMetrics bool   `mapstructure:"process_metrics"`
	GoMetrics      bool   `mapstructure:"go_metrics"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// Config is the root configuration for the service.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Spec       SpecConfig       `mapstructure:"spec"`
	Benchmark  BenchmarkConfig  `mapstructure:"benchmark"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
}

// Validate performs semantic validation of the fully-populated Config.  Any
// error is fatal; the application must refuse to start on an invalid config.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	if c.Spec.BundlePath == "" {
		return fmt.Errorf("config: spec.bundle_path is required")
	}

	if c.Benchmark.IndexPath == "" && len(c.Benchmark.RawPaths) == 0 {
		return fmt.Errorf("config: benchmark.index_path or benchmark.raw_paths is required")
	}

	if c.Cache.Enabled {
		if c.Redis.Addr == "" && len(c.Redis.SentinelAddrs) == 0 && len(c.Redis.ClusterAddrs) == 0 {
			return fmt.Errorf("config: cache is enabled but no redis address is configured")
		}
		if c.Cache.TTL < 0 {
			return fmt.Errorf("config: cache.ttl must be ≥ 0, got %s", c.Cache.TTL)
		}
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	if c.Evaluation.MgmtFeeEstimateRatio < 0 || c.Evaluation.MgmtFeeEstimateRatio >= 1 {
		return fmt.Errorf("config: evaluation.mgmt_fee_estimate_ratio %g is out of range [0, 1)",
			c.Evaluation.MgmtFeeEstimateRatio)
	}
	if c.Evaluation.MgmtFeeEstimateCapYen < 0 {
		return fmt.Errorf("config: evaluation.mgmt_fee_estimate_cap_yen must be ≥ 0, got %d",
			c.Evaluation.MgmtFeeEstimateCapYen)
	}
	if y := c.Evaluation.EvaluationYear; y != 0 && (y < 1900 || y > 2200) {
		return fmt.Errorf("config: evaluation.evaluation_year %d is implausible", y)
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("config: metrics.namespace is required when metrics are enabled")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
