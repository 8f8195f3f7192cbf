package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sumaiwise/sumaiwise/internal/application/evaluation"
	"github.com/sumaiwise/sumaiwise/internal/infrastructure/monitoring/logging"
)

// ReportCache stores finished evaluation reports.  Cache failures are
// logged and swallowed: the cache is an accelerator, never a dependency the
// evaluation path can fail on.
type ReportCache struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
}

// ReportCacheOption tunes the cache.
type ReportCacheOption func(*ReportCache)

// WithPrefix overrides the key namespace.
func WithPrefix(prefix string) ReportCacheOption {
	return func(c *ReportCache) { c.prefix = prefix }
}

// WithTTL overrides the report lifetime.
func WithTTL(ttl time.Duration) ReportCacheOption {
	return func(c *ReportCache) { c.ttl = ttl }
}

// NewReportCache wraps a client as an evaluation report cache.
func NewReportCache(client *Client, logger logging.Logger, opts ...ReportCacheOption) *ReportCache {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &ReportCache{
		client: client,
		logger: logger.Named("reportcache"),
		prefix: "sumaiwise:report:",
		ttl:    15 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ evaluation.ReportCache = (*ReportCache)(nil)

// Get returns the cached report for the key, or a miss on any failure.
func (c *ReportCache) Get(ctx context.Context, key string) (*evaluation.Report, bool) {
	data, err := c.client.rdb.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("report cache get failed", logging.Err(err))
		return nil, false
	}
	var report evaluation.Report
	if err := json.Unmarshal(data, &report); err != nil {
		c.logger.Warn("discarding unreadable cached report", logging.Err(err))
		return nil, false
	}
	return &report, true
}

// Set stores the report with a jittered TTL so a burst of identical
// evaluations does not expire in lockstep.
func (c *ReportCache) Set(ctx context.Context, key string, report *evaluation.Report) {
	data, err := json.Marshal(report)
	if err != nil {
		c.logger.Warn("report cache marshal failed", logging.Err(err))
		return
	}
	if err := c.client.rdb.Set(ctx, c.prefix+key, data, c.jitterTTL()).Err(); err != nil {
		c.logger.Warn("report cache set failed", logging.Err(err))
	}
}

// jitterTTL spreads expirations by +/-10%.
func (c *ReportCache) jitterTTL() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitter := float64(c.ttl) * 0.1 * (rand.Float64()*2 - 1)
	return c.ttl + time.Duration(jitter)
}
