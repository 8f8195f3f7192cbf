// Package http assembles the gin router and HTTP server for the evaluation
// API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sumaiwise/sumaiwise/internal/infrastructure/monitoring/logging"
	"github.com/sumaiwise/sumaiwise/internal/interfaces/http/handlers"
	"github.com/sumaiwise/sumaiwise/internal/interfaces/http/middleware"
	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

// RouterConfig wires the handlers and middleware into a router.
type RouterConfig struct {
	Logger logging.Logger

	// Evaluator serves POST /api/v1/evaluate.  Required.
	Evaluator handlers.Evaluator

	// Specs serves GET /api/v1/spec/version.  Required.
	Specs handlers.SpecProvider

	// Checkers are probed by GET /readyz.
	Checkers []handlers.HealthChecker

	// MetricsHandler is mounted at GET /metrics when non-nil.
	MetricsHandler http.Handler

	// HTTPMetrics records per-request observations when non-nil.
	HTTPMetrics middleware.HTTPMetrics

	// Version is reported by the health probes.
	Version string

	// Mode is the gin mode: debug, release, or test.
	Mode string

	// MaxBodySize caps request bodies in bytes.  Zero means no cap.
	MaxBodySize int64

	// CORS enables cross-origin handling when non-nil.
	CORS *middleware.CORSConfig

	// RateLimiter enables per-client rate limiting when non-nil.
	RateLimiter middleware.RateLimiter
	RateLimit   middleware.RateLimitConfig
}

// NewRouter builds the gin engine with the full middleware stack and all
// routes registered.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered interface{}) {
		logger.Error("panic recovered",
			logging.Any("panic", recovered),
			logging.String("path", c.Request.URL.Path),
			logging.String("request_id", middleware.GetRequestID(c)),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, handlers.ErrorResponse{
			Code:    errors.CodeInternal.String(),
			Message: "internal server error",
		})
	}))
	engine.Use(middleware.RequestLogging(logger.Named("http"), middleware.DefaultLoggingConfig()))
	if cfg.HTTPMetrics != nil {
		engine.Use(middleware.Metrics(cfg.HTTPMetrics))
	}
	if cfg.CORS != nil {
		engine.Use(middleware.CORS(*cfg.CORS))
	}
	if cfg.RateLimiter != nil {
		engine.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit))
	}
	if cfg.MaxBodySize > 0 {
		engine.Use(maxBodySize(cfg.MaxBodySize))
	}

	health := handlers.NewHealthHandler(cfg.Version, cfg.Checkers...)
	engine.GET("/healthz", health.Liveness)
	engine.GET("/readyz", health.Readiness)

	if cfg.MetricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := engine.Group("/api/v1")
	api.POST("/evaluate", handlers.NewEvaluateHandler(cfg.Evaluator, logger).Evaluate)
	api.GET("/spec/version", handlers.NewSpecHandler(cfg.Specs).Info)

	return engine
}

// maxBodySize rejects oversized request bodies before the JSON decoder reads
// them into memory.
func maxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
