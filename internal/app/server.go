// Package app wires configuration, spec store, benchmark data, cache,
// metrics, and the HTTP server into a running service.  Both the apiserver
// binary and the CLI serve command boot through here.
package app

import (
	"context"
	"net/http"

	"github.com/sumaiwise/sumaiwise/internal/application/evaluation"
	"github.com/sumaiwise/sumaiwise/internal/config"
	"github.com/sumaiwise/sumaiwise/internal/infrastructure/database/redis"
	"github.com/sumaiwise/sumaiwise/internal/infrastructure/marketdata"
	"github.com/sumaiwise/sumaiwise/internal/infrastructure/monitoring/logging"
	"github.com/sumaiwise/sumaiwise/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/sumaiwise/sumaiwise/internal/interfaces/http"
	"github.com/sumaiwise/sumaiwise/internal/interfaces/http/handlers"
	"github.com/sumaiwise/sumaiwise/internal/interfaces/http/middleware"
	"github.com/sumaiwise/sumaiwise/internal/specstore"
	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

// Run boots the evaluation service and blocks until ctx is canceled or the
// listener fails.  Version is reported by the health probes and the spec
// info gauge.
func Run(ctx context.Context, cfg *config.Config, logger logging.Logger, version string) error {
	specs, err := specstore.Open(cfg.Spec.BundlePath, logger)
	if err != nil {
		return err
	}

	index, err := marketdata.LoadOrBuild(marketdata.LoadOptions{
		IndexPath:      cfg.Benchmark.IndexPath,
		RawPaths:       cfg.Benchmark.RawPaths,
		WriteIfMissing: cfg.Benchmark.WriteIfMissing,
	}, logger)
	if err != nil {
		return err
	}
	source := marketdata.NewSource(index, specs.Current().Hedonic, logger)

	var (
		appMetrics     *prometheus.AppMetrics
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: cfg.Metrics.ProcessMetrics,
			EnableGoMetrics:      cfg.Metrics.GoMetrics,
		}, logger)
		if err != nil {
			return err
		}
		appMetrics = prometheus.NewAppMetrics(collector)
		appMetrics.SpecReloaded(specs.Current().Version, true)
		metricsHandler = collector.Handler()
	}

	// Bundle swaps retune the hedonic matcher without restarting.
	specs.OnSwap(func(b *specstore.Bundle) {
		source.SetHedonicConfig(b.Hedonic)
		if appMetrics != nil {
			appMetrics.SpecReloaded(b.Version, true)
		}
	})

	checkers := []handlers.HealthChecker{
		handlers.NewChecker("spec_bundle", func(context.Context) error {
			if specs.Current() == nil {
				return errors.New(errors.CodeSpecBundleNotFound, "no spec bundle loaded")
			}
			return nil
		}),
	}

	var opts []evaluation.Option
	if cfg.Cache.Enabled {
		client, err := redis.NewClient(redisConfig(cfg.Redis), logger)
		if err != nil {
			return err
		}
		defer client.Close()
		cache := redis.NewReportCache(client, logger,
			redis.WithPrefix(cfg.Cache.KeyPrefix),
			redis.WithTTL(cfg.Cache.TTL))
		opts = append(opts, evaluation.WithCache(cache))
		checkers = append(checkers, handlers.NewChecker("redis", client.Ping))
	}
	if appMetrics != nil {
		opts = append(opts, evaluation.WithMetrics(appMetrics))
	}

	svc := evaluation.NewService(specs, source, evaluation.Config{
		MgmtFeeEstimateRatio:  cfg.Evaluation.MgmtFeeEstimateRatio,
		MgmtFeeEstimateCapYen: cfg.Evaluation.MgmtFeeEstimateCapYen,
		EvaluationYear:        cfg.Evaluation.EvaluationYear,
	}, logger, opts...)

	corsCfg := middleware.DefaultCORSConfig()
	rateCfg := middleware.DefaultRateLimitConfig()
	limiter := middleware.NewTokenBucketLimiter(rateCfg.RequestsPerSecond, rateCfg.BurstSize, rateCfg.CleanupInterval)
	defer limiter.Close()

	routerCfg := httpserver.RouterConfig{
		Logger:         logger,
		Evaluator:      svc,
		Specs:          specs,
		Checkers:       checkers,
		MetricsHandler: metricsHandler,
		Version:        version,
		Mode:           cfg.Server.Mode,
		MaxBodySize:    cfg.Server.MaxBodySize,
		CORS:           &corsCfg,
		RateLimiter:    limiter,
		RateLimit:      rateCfg,
	}
	if appMetrics != nil {
		routerCfg.HTTPMetrics = appMetrics
	}

	server := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	if cfg.Spec.Watch {
		go func() {
			if err := specs.Watch(ctx); err != nil {
				logger.Error("spec bundle watch failed", logging.Err(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return server.Stop(context.Background())
	case err := <-errCh:
		return err
	}
}

func redisConfig(cfg config.RedisConfig) redis.Config {
	return redis.Config{
		Mode:          cfg.Mode,
		Addr:          cfg.Addr,
		MasterName:    cfg.MasterName,
		SentinelAddrs: cfg.SentinelAddrs,
		ClusterAddrs:  cfg.ClusterAddrs,
		Username:      cfg.Username,
		Password:      cfg.Password,
		DB:            cfg.DB,
		PoolSize:      cfg.PoolSize,
		MinIdleConns:  cfg.MinIdleConns,
		DialTimeout:   cfg.DialTimeout,
		ReadTimeout:   cfg.ReadTimeout,
		WriteTimeout:  cfg.WriteTimeout,
	}
}
