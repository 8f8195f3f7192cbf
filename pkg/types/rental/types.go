// Package rental defines the shared primitive types of the listing evaluation
// domain: the flat evaluation record, benchmark comparison results, and the
// enumerations used across rule data, scoring, and reports.
package rental

// Record is a flat mapping from field name to value.  It merges a listing's
// raw inputs with all derived and benchmark fields into one namespace for
// rule evaluation.  Values are restricted to JSON primitives: float64 /
// int / int64, string, bool, or nil.
//
// A Record is immutable after derived-metrics enrichment; what-if scenarios
// operate on copies produced by Clone.
type Record map[string]interface{}

// Clone returns a shallow copy of the record.  Values are primitives, so a
// shallow copy is a full copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether the field is present, regardless of its value.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Number returns the field coerced to float64.  The second return is false
// when the field is absent, nil, or not numeric.
func (r Record) Number(key string) (float64, bool) {
	return AsNumber(r[key])
}

// Int returns the field coerced to int, truncating any fractional part.
func (r Record) Int(key string) (int, bool) {
	f, ok := AsNumber(r[key])
	if !ok {
		return 0, false
	}
	return int(f), true
}

// String returns the field as a string.
func (r Record) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// Bool returns the field as a bool.
func (r Record) Bool(key string) (bool, bool) {
	b, ok := r[key].(bool)
	return b, ok
}

// AsNumber coerces v to float64.  Supported inputs are the numeric types a
// Record may legally hold (JSON decoding yields float64; Go call sites may
// store int or int64).
func AsNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

// Confidence is the qualitative tier describing how well a benchmark's
// matching criteria align with the listing being evaluated.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceMid  Confidence = "mid"
	ConfidenceLow  Confidence = "low"
	ConfidenceNone Confidence = "none"
)

// IsValid reports whether c is one of the four defined tiers.
func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMid, ConfidenceLow, ConfidenceNone:
		return true
	}
	return false
}

// Usable reports whether a comparison with this confidence may feed cost
// scoring.  "none" must degrade to neutral scoring, never propagate nulls
// into a displayed score.
func (c Confidence) Usable() bool {
	return c.IsValid() && c != ConfidenceNone
}

// MatchLevel identifies which segmentation level a benchmark lookup matched.
type MatchLevel string

const (
	MatchMuniStructure MatchLevel = "muni_structure_level"
	MatchMuni          MatchLevel = "muni_level"
	MatchPref          MatchLevel = "pref_level"
	MatchLive          MatchLevel = "live_level"
	MatchNone          MatchLevel = "none"
)

// Severity grades a triggered risk flag.
type Severity string

const (
	SeverityHigh Severity = "high"
	SeverityMid  Severity = "mid"
	SeverityLow  Severity = "low"
)

// BenchmarkComparison is the result contract of the benchmark collaborator.
// RentYen nil or Confidence "none" must never crash downstream scoring.
type BenchmarkComparison struct {
	// RentYen is the comparison value after hedonic adjustments, nil when no
	// comparable segment matched.
	RentYen *int `json:"benchmark_rent_yen"`

	// RentYenRaw is the pre-adjustment segment median.
	RentYenRaw *int `json:"benchmark_rent_yen_raw"`

	// SampleCount is the number of source rows behind the matched segment.
	SampleCount int `json:"benchmark_n_sources"`

	Confidence   Confidence `json:"benchmark_confidence"`
	MatchedLevel MatchLevel `json:"benchmark_matched_level"`

	// FeeInclusive is true when the comparison value already includes
	// management fees (live matched listings carry their own fee data).
	// Rent-only sources leave it false so the derived-metrics calculator can
	// apply its conservative management-fee estimate.
	FeeInclusive bool `json:"benchmark_fee_inclusive"`

	// Adjustments records the hedonic adjustments applied, for transparency
	// in the report output.  Nil when no adjustment was applied.
	Adjustments map[string]interface{} `json:"benchmark_adjustments,omitempty"`
}

// NoBenchmark returns the degraded comparison used when no benchmark source
// produced a usable value.
func NoBenchmark() BenchmarkComparison {
	return BenchmarkComparison{
		Confidence:   ConfidenceNone,
		MatchedLevel: MatchNone,
	}
}
