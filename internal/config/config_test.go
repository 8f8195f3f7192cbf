package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidateDefaultsPass(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateServerPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidateServerMode(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Mode = "production"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.mode")
}

func TestValidateSpecBundlePathRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Spec.BundlePath = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spec.bundle_path")
}

func TestValidateBenchmarkSourceRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Benchmark.IndexPath = ""
	cfg.Benchmark.RawPaths = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "benchmark")
}

func TestValidateCacheNeedsRedis(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Enabled = true
	cfg.Redis.Addr = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestValidateMgmtFeeRatioRange(t *testing.T) {
	cfg := validConfig()
	cfg.Evaluation.MgmtFeeEstimateRatio = 1.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mgmt_fee_estimate_ratio")
}

func TestValidateEvaluationYearPlausible(t *testing.T) {
	cfg := validConfig()
	cfg.Evaluation.EvaluationYear = 26
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluation_year")

	cfg.Evaluation.EvaluationYear = 0
	assert.NoError(t, cfg.Validate())
}

func TestValidateMetricsNamespace(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Namespace = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics.namespace")
}

func TestValidateLogSettings(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "verbose"
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Log.Format = "text"
	require.Error(t, cfg.Validate())
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", s.Addr())
}
