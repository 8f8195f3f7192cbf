package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerMode, cfg.Server.Mode)
	assert.Equal(t, DefaultSpecBundlePath, cfg.Spec.BundlePath)
	assert.Equal(t, DefaultBenchmarkIndexPath, cfg.Benchmark.IndexPath)
	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
	assert.Equal(t, DefaultCacheTTL, cfg.Cache.TTL)
	assert.Equal(t, DefaultMetricsNamespace, cfg.Metrics.Namespace)
	assert.Equal(t, []string{"stdout"}, cfg.Log.OutputPaths)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9000
	cfg.Cache.TTL = time.Minute
	cfg.Evaluation.MgmtFeeEstimateRatio = 0.03
	cfg.Benchmark.RawPaths = []string{"data/raw/benchmark_rent_raw.csv"}
	ApplyDefaults(cfg)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 0.03, cfg.Evaluation.MgmtFeeEstimateRatio)
	// Raw paths were configured, so no default index path is forced.
	assert.Empty(t, cfg.Benchmark.IndexPath)
}

func TestApplyDefaultsLeavesMgmtFeeEstimateAlone(t *testing.T) {
	// Zero means "estimate disabled" / "no cap" and is defaulted at the
	// viper layer instead, so the struct pass must not floor it.
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Zero(t, cfg.Evaluation.MgmtFeeEstimateRatio)
	assert.Zero(t, cfg.Evaluation.MgmtFeeEstimateCapYen)
}

func TestApplyDefaultsNilIsSafe(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
