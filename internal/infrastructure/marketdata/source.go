package marketdata

import (
	"context"
	"sync/atomic"

	"github.com/sumaiwise/sumaiwise/internal/domain/benchmark"
	"github.com/sumaiwise/sumaiwise/internal/infrastructure/monitoring/logging"
	"github.com/sumaiwise/sumaiwise/pkg/types/rental"
)

// Source adapts a loaded benchmark index to the evaluation service's
// collaborator contract.  The hedonic configuration is swappable at runtime
// so a spec bundle reload can retune adjustments without reloading the
// index; Match stays lock-free.
type Source struct {
	index   *benchmark.Index
	matcher atomic.Pointer[benchmark.Matcher]
	logger  logging.Logger
}

// NewSource wraps an index with the given hedonic configuration.
func NewSource(index *benchmark.Index, cfg benchmark.HedonicConfig, logger logging.Logger) *Source {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Source{index: index, logger: logger.Named("marketdata")}
	s.matcher.Store(benchmark.NewMatcher(index, cfg))
	return s
}

// SetHedonicConfig rebuilds the matcher with new adjustment factors.
func (s *Source) SetHedonicConfig(cfg benchmark.HedonicConfig) {
	s.matcher.Store(benchmark.NewMatcher(s.index, cfg))
	s.logger.Info("benchmark hedonic configuration updated")
}

// Match resolves the query against the index.  The lookup itself is
// in-memory and cannot fail; only context cancellation produces an error.
func (s *Source) Match(ctx context.Context, q benchmark.Query) (rental.BenchmarkComparison, error) {
	if err := ctx.Err(); err != nil {
		return rental.NoBenchmark(), err
	}
	return s.matcher.Load().Match(q), nil
}
