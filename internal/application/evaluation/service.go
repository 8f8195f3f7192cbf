package evaluation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sumaiwise/sumaiwise/internal/domain/benchmark"
	"github.com/sumaiwise/sumaiwise/internal/domain/listing"
	"github.com/sumaiwise/sumaiwise/internal/domain/rules"
	"github.com/sumaiwise/sumaiwise/internal/infrastructure/monitoring/logging"
	"github.com/sumaiwise/sumaiwise/internal/specstore"
	"github.com/sumaiwise/sumaiwise/pkg/errors"
	"github.com/sumaiwise/sumaiwise/pkg/types/rental"
)

// BundleProvider supplies the currently active spec bundle.
type BundleProvider interface {
	Current() *specstore.Bundle
}

// BenchmarkSource resolves a listing segment to a market rent comparison.
type BenchmarkSource interface {
	Match(ctx context.Context, q benchmark.Query) (rental.BenchmarkComparison, error)
}

// ReportCache stores finished reports keyed by payload and spec version.
// Implementations must be safe for concurrent use; a nil cache disables
// caching.
type ReportCache interface {
	Get(ctx context.Context, key string) (*Report, bool)
	Set(ctx context.Context, key string, report *Report)
}

// Metrics receives evaluation telemetry.  A nil Metrics disables it.
type Metrics interface {
	ObserveEvaluation(outcome string, elapsed time.Duration)
	CacheLookup(hit bool)
	BenchmarkMatched(level string)
}

// Evaluation outcomes reported to metrics.
const (
	OutcomeOK           = "ok"
	OutcomeInvalidInput = "invalid_input"
	OutcomeError        = "error"
)

// Config tunes evaluation behavior that is operational rather than
// spec-authored.
type Config struct {
	// MgmtFeeEstimateRatio and MgmtFeeEstimateCapYen approximate management
	// fees for rent-only benchmark sources.  A zero ratio disables the
	// estimate; a zero cap leaves it uncapped.
	MgmtFeeEstimateRatio  float64
	MgmtFeeEstimateCapYen int

	// EvaluationYear pins building-age math for reproducible output;
	// 0 uses the current year.
	EvaluationYear int
}

// Service runs full listing evaluations.
type Service struct {
	bundles    BundleProvider
	benchmarks BenchmarkSource
	cache      ReportCache
	metrics    Metrics
	logger     logging.Logger
	cfg        Config
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithCache attaches a report cache.
func WithCache(c ReportCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithMetrics attaches evaluation telemetry.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService wires an evaluation service.
func NewService(bundles BundleProvider, benchmarks BenchmarkSource, cfg Config, logger logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Service{
		bundles:    bundles,
		benchmarks: benchmarks,
		logger:     logger.Named("evaluation"),
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate validates the payload, derives metrics, scores, resolves rules,
// and renders the report.  Authoring errors cannot occur here: the bundle
// was fully compiled at load time, so any failure is either bad input or an
// unresolved template token against this specific record.
func (s *Service) Evaluate(ctx context.Context, payload map[string]interface{}) (*Report, error) {
	start := time.Now()
	report, err := s.evaluate(ctx, payload)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		s.observe(OutcomeOK, elapsed)
	case errors.IsValidation(err):
		s.observe(OutcomeInvalidInput, elapsed)
	default:
		s.observe(OutcomeError, elapsed)
		s.logger.Error("evaluation failed", logging.Err(err))
	}
	return report, err
}

func (s *Service) evaluate(ctx context.Context, payload map[string]interface{}) (*Report, error) {
	bundle := s.bundles.Current()
	if bundle == nil {
		return nil, errors.New(errors.CodeSpecBundleNotFound, "no spec bundle loaded")
	}
	if err := bundle.Validator.Validate(payload); err != nil {
		return nil, err
	}

	key := cacheKey(payload, bundle.Version)
	if s.cache != nil {
		if cached, hit := s.cache.Get(ctx, key); hit {
			if s.metrics != nil {
				s.metrics.CacheLookup(true)
			}
			return cached, nil
		}
		if s.metrics != nil {
			s.metrics.CacheLookup(false)
		}
	}

	rec := rental.Record(payload)
	bm := s.matchBenchmark(ctx, rec, bundle)

	opts := s.deriveOptions(bundle)
	enriched := listing.Derive(rec, bm, opts)

	scores, grades := scoreAll(bundle.Scoring, enriched)
	enriched[listing.FieldLocationScore] = scores.LocationScore
	enriched[listing.FieldConditionScore] = scores.ConditionScore
	enriched[listing.FieldCostScore] = scores.CostScore
	enriched[listing.FieldOverallScore] = scores.OverallScore
	enriched[listing.FieldLocationGrade] = grades.LocationGrade
	enriched[listing.FieldConditionGrade] = grades.ConditionGrade
	enriched[listing.FieldCostGrade] = grades.CostGrade
	enriched[listing.FieldOverallGrade] = grades.OverallGrade

	riskFlags := resolveRiskFlags(bundle.Scoring, enriched)
	tradeoff := bundle.Scoring.TradeoffRules.ResolveOne(enriched)
	if tag, ok := tradeoff.Output["tradeoff_tag"].(string); ok {
		enriched[listing.FieldTradeoffTag] = tag
	}

	whatIf := runWhatIf(bundle.Scoring, rec, enriched, scores)

	narrative, err := renderNarrative(bundle.Report, enriched)
	if err != nil {
		return nil, err
	}
	narrative.RiskFlags = riskFlags
	narrative.WhatIfResults = whatIf

	report := &Report{
		ReportID:    uuid.NewString(),
		SpecVersion: bundle.Version,
		Derived:     derivedOutput(enriched),
		Scoring:     scores,
		Grades:      grades,
		Report:      narrative,
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, report)
	}
	return report, nil
}

// matchBenchmark looks up the market comparison, degrading to no-benchmark
// on source failure so an index outage never blocks evaluation.
func (s *Service) matchBenchmark(ctx context.Context, rec rental.Record, bundle *specstore.Bundle) rental.BenchmarkComparison {
	pref, _ := rec.String(listing.FieldPrefecture)
	muni, _ := rec.String(listing.FieldMunicipality)
	layout, _ := rec.String(listing.FieldLayoutType)
	struc, _ := rec.String(listing.FieldStructure)

	q := benchmark.Query{
		Prefecture:        pref,
		Municipality:      muni,
		LayoutType:        layout,
		BuildingStructure: struc,
	}
	if area, ok := rec.Number(listing.FieldAreaSqm); ok {
		q.AreaSqm = &area
	}
	if walk, ok := rec.Int(listing.FieldStationWalkMin); ok {
		q.StationWalkMin = &walk
	}
	if built, ok := rec.Int(listing.FieldBuiltYear); ok {
		age := s.evaluationYear() - built
		if age < 0 {
			age = 0
		}
		q.BuildingAgeYears = &age
	}

	bm, err := s.benchmarks.Match(ctx, q)
	if err != nil {
		s.logger.Warn("benchmark lookup failed, continuing without comparison",
			logging.String("prefecture", pref),
			logging.String("layout_type", layout),
			logging.Err(err))
		return rental.NoBenchmark()
	}
	if bundle.FeeInclusiveBenchmarks {
		bm.FeeInclusive = true
	}
	if s.metrics != nil {
		s.metrics.BenchmarkMatched(string(bm.MatchedLevel))
	}
	return bm
}

func (s *Service) deriveOptions(bundle *specstore.Bundle) listing.DeriveOptions {
	opts := listing.DefaultDeriveOptions()
	opts.EvaluationYear = s.cfg.EvaluationYear
	opts.MgmtFeeEstimateRatio = s.cfg.MgmtFeeEstimateRatio
	opts.MgmtFeeEstimateCapYen = s.cfg.MgmtFeeEstimateCapYen
	opts.ForeignerIMShiftMonths = bundle.Scoring.ForeignerIMShiftMonths
	return opts
}

func (s *Service) evaluationYear() int {
	if s.cfg.EvaluationYear > 0 {
		return s.cfg.EvaluationYear
	}
	return time.Now().Year()
}

func (s *Service) observe(outcome string, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveEvaluation(outcome, elapsed)
	}
}

// resolveRiskFlags fires every matching risk rule in declaration order,
// keeping the first occurrence of each flag id.
func resolveRiskFlags(spec *specstore.ScoringSpec, rec rental.Record) []RiskFlag {
	matched := spec.RiskRules.ResolveAll(rec)
	flags := make([]RiskFlag, 0, len(matched))
	seen := map[string]bool{}
	for _, r := range matched {
		id, _ := r.Output["risk_flag_id"].(string)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		severity, _ := r.Output["severity"].(string)
		flags = append(flags, RiskFlag{RiskFlagID: id, Severity: rental.Severity(severity)})
	}
	return flags
}

// renderNarrative selects the report template for the record and renders
// every string.  An unresolved token is a hard failure: a report with a raw
// {placeholder} must never ship.
func renderNarrative(report *specstore.ReportSpec, rec rental.Record) (Narrative, error) {
	tpl, ok := report.TemplateFor(rec)
	if !ok {
		return Narrative{}, errors.New(errors.CodeSpecBundleInvalid, "no report template selected")
	}
	values := templateValues(rec)

	summary, err := rules.Render(tpl.SummaryKo, values)
	if err != nil {
		return Narrative{}, errors.Wrapf(err, errors.CodeTemplateUnresolvedToken, "template %s summary", tpl.ID)
	}
	bullets, err := rules.RenderAll(tpl.EvidenceBulletsKo, values)
	if err != nil {
		return Narrative{}, errors.Wrapf(err, errors.CodeTemplateUnresolvedToken, "template %s evidence", tpl.ID)
	}
	negoKo, err := rules.RenderAll(tpl.NegotiationKo, values)
	if err != nil {
		return Narrative{}, errors.Wrapf(err, errors.CodeTemplateUnresolvedToken, "template %s negotiation ko", tpl.ID)
	}
	negoJa, err := rules.RenderAll(tpl.NegotiationJa, values)
	if err != nil {
		return Narrative{}, errors.Wrapf(err, errors.CodeTemplateUnresolvedToken, "template %s negotiation ja", tpl.ID)
	}
	queries, err := rules.RenderAll(tpl.AltQueriesJa, values)
	if err != nil {
		return Narrative{}, errors.Wrapf(err, errors.CodeTemplateUnresolvedToken, "template %s alt queries", tpl.ID)
	}

	return Narrative{
		SummaryKo:              summary,
		EvidenceBulletsKo:      bullets,
		NegotiationSuggestions: Suggestions{Ko: negoKo, Ja: negoJa},
		AltSearchQueriesJa:     queries,
	}, nil
}

// derivedOutputKeys is the derived section of the report, in output order.
var derivedOutputKeys = []string{
	listing.FieldMonthlyFixedCost,
	listing.FieldBuildingAgeYears,
	listing.FieldInitialMultiple,
	listing.FieldInitialMultipleOK,
	listing.FieldRentDeltaRatio,
	listing.FieldBenchmarkMonthlyCost,
	listing.FieldBenchmarkMonthlyCostRaw,
	listing.FieldBenchmarkConfidence,
	listing.FieldBenchmarkSampleCount,
	listing.FieldBenchmarkMatchedLevel,
	listing.FieldBenchmarkAdjustments,
	listing.FieldBenchmarkFeeEstimate,
	listing.FieldIMAssessment,
	listing.FieldIMAssessmentForeigner,
	listing.FieldIMMarketAvg,
	listing.FieldIMMarketDelta,
	listing.FieldIMMarketDeltaForeigner,
	listing.FieldTradeoffTag,
}

// derivedOutput copies the derived metrics into the report, rounding floats
// for stable JSON output.  Absent metrics stay absent.
func derivedOutput(rec rental.Record) rental.Record {
	out := make(rental.Record, len(derivedOutputKeys))
	for _, k := range derivedOutputKeys {
		v, present := rec[k]
		if !present {
			continue
		}
		if f, ok := v.(float64); ok {
			v = round6(f)
		}
		out[k] = v
	}
	return out
}

// cacheKey hashes the payload plus the bundle version, so a spec deploy
// naturally invalidates every cached report.
func cacheKey(payload map[string]interface{}, version string) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	h := sha256.New()
	h.Write(data)
	h.Write([]byte("|"))
	h.Write([]byte(version))
	return hex.EncodeToString(h.Sum(nil))
}
