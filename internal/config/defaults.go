package config

import "time"

// Default values applied to unset fields.
const (
	DefaultServerPort      = 8080
	DefaultServerMode      = "release"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultMaxBodySize     = 1 << 20 // 1 MiB; evaluation payloads are small

	DefaultSpecBundlePath = "configs/spec_bundle/spec_bundle.json"

	DefaultBenchmarkIndexPath = "data/derived/benchmark_index.json"

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisMode = "standalone"

	DefaultCachePrefix = "sumaiwise:report:"
	DefaultCacheTTL    = 15 * time.Minute

	DefaultMgmtFeeEstimateRatio  = 0.05
	DefaultMgmtFeeEstimateCapYen = 10000

	DefaultMetricsNamespace = "sumaiwise"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills zero-value fields in cfg with well-known defaults.
// Call after unmarshalling and before Validate so optional-but-defaulted
// fields are never seen as missing.  Explicitly set values always win.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Spec.BundlePath == "" {
		cfg.Spec.BundlePath = DefaultSpecBundlePath
	}

	if cfg.Benchmark.IndexPath == "" && len(cfg.Benchmark.RawPaths) == 0 {
		cfg.Benchmark.IndexPath = DefaultBenchmarkIndexPath
	}

	if cfg.Redis.Mode == "" {
		cfg.Redis.Mode = DefaultRedisMode
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}

	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = DefaultCachePrefix
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}

	// The mgmt-fee estimate ratio and cap are defaulted at the viper layer
	// (see newViper), not here: an explicit 0 in the file or environment is
	// a deliberate "off"/"uncapped" setting and must survive loading.

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stdout"}
	}
}
