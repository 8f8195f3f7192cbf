package benchmark

import (
	"math"
	"strings"

	"github.com/sumaiwise/sumaiwise/pkg/types/rental"
)

// Hedonic bucket keys.
const (
	ageBucket0to5   = "0_5"
	ageBucket6to10  = "6_10"
	ageBucket11to20 = "11_20"
	ageBucketGE21   = "ge21"

	walkBucketLE5    = "le5"
	walkBucket6to10  = "6_10"
	walkBucket11to15 = "11_15"
	walkBucketGE16   = "ge16"
)

// HedonicConfig holds the adjustment factors applied to a matched median so
// the benchmark reflects the queried listing's age, walk time, and area
// rather than the segment average.
type HedonicConfig struct {
	AgeFactors     map[string]float64
	WalkFactors    map[string]float64
	LayoutAvgArea  map[string]float64
	AreaElasticity float64
}

// DefaultHedonicConfig returns the stock adjustment factors.
func DefaultHedonicConfig() HedonicConfig {
	return HedonicConfig{
		AgeFactors: map[string]float64{
			ageBucket0to5:   1.05,
			ageBucket6to10:  1.0,
			ageBucket11to20: 0.92,
			ageBucketGE21:   0.82,
		},
		WalkFactors: map[string]float64{
			walkBucketLE5:    1.03,
			walkBucket6to10:  1.0,
			walkBucket11to15: 0.93,
			walkBucketGE16:   0.87,
		},
		LayoutAvgArea: map[string]float64{
			"1R":   20.0,
			"1K":   22.0,
			"1DK":  28.0,
			"1LDK": 38.0,
		},
		AreaElasticity: 0.6,
	}
}

// WithOverrides merges spec-supplied factors over the defaults.  Unknown
// bucket keys are ignored so a typo in data cannot disable a whole axis.
func (c HedonicConfig) WithOverrides(age, walk, area map[string]float64, elasticity *float64) HedonicConfig {
	merged := HedonicConfig{
		AgeFactors:     copyFactors(c.AgeFactors),
		WalkFactors:    copyFactors(c.WalkFactors),
		LayoutAvgArea:  copyFactors(c.LayoutAvgArea),
		AreaElasticity: c.AreaElasticity,
	}
	for k, v := range age {
		if _, known := merged.AgeFactors[k]; known {
			merged.AgeFactors[k] = v
		}
	}
	for k, v := range walk {
		if _, known := merged.WalkFactors[k]; known {
			merged.WalkFactors[k] = v
		}
	}
	for k, v := range area {
		if _, known := merged.LayoutAvgArea[k]; known {
			merged.LayoutAvgArea[k] = v
		}
	}
	if elasticity != nil {
		merged.AreaElasticity = *elasticity
	}
	return merged
}

func copyFactors(src map[string]float64) map[string]float64 {
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Query identifies the listing segment and the hedonic attributes of the
// listing being compared.  Optional attributes are pointers; nil means the
// corresponding adjustment axis is skipped.
type Query struct {
	Prefecture        string
	Municipality      string
	LayoutType        string
	BuildingStructure string
	AreaSqm           *float64
	BuildingAgeYears  *int
	StationWalkMin    *int
}

// Matcher resolves queries against an index.
type Matcher struct {
	index  *Index
	config HedonicConfig
}

// NewMatcher wraps an index with hedonic configuration.
func NewMatcher(index *Index, config HedonicConfig) *Matcher {
	return &Matcher{index: index, config: config}
}

// Match walks the segmentation levels from most to least specific:
//
//  1. prefecture+municipality+layout+structure — high confidence, but a
//     single-row group falls through to the broader municipality aggregate
//  2. prefecture+municipality+layout — high, mid when backed by one row
//  3. prefecture+layout — mid
//  4. no match — none
func (m *Matcher) Match(q Query) rental.BenchmarkComparison {
	if m == nil || m.index.Empty() {
		return rental.NoBenchmark()
	}

	muni := strings.TrimSpace(q.Municipality)
	struc := strings.TrimSpace(q.BuildingStructure)

	if muni != "" && struc != "" && struc != "other" && struc != "all" {
		if g, ok := m.index.ByPrefMuniLayoutStruc[keyPrefMuniLayoutStruc(q.Prefecture, muni, q.LayoutType, struc)]; ok && g.RowCount >= 2 {
			return m.adjusted(q, g, rental.ConfidenceHigh, rental.MatchMuniStructure)
		}
	}

	if muni != "" {
		if g, ok := m.index.ByPrefMuniLayout[keyPrefMuniLayout(q.Prefecture, muni, q.LayoutType)]; ok {
			conf := rental.ConfidenceHigh
			if g.RowCount < 2 {
				conf = rental.ConfidenceMid
			}
			return m.adjusted(q, g, conf, rental.MatchMuni)
		}
	}

	if g, ok := m.index.ByPrefLayout[keyPrefLayout(q.Prefecture, q.LayoutType)]; ok {
		return m.adjusted(q, g, rental.ConfidenceMid, rental.MatchPref)
	}

	return rental.NoBenchmark()
}

func (m *Matcher) adjusted(q Query, g Group, conf rental.Confidence, level rental.MatchLevel) rental.BenchmarkComparison {
	adjustments := map[string]interface{}{}
	multiplier := 1.0

	if q.BuildingAgeYears != nil {
		age := *q.BuildingAgeYears
		bucket := ageBucketFor(age)
		factor := m.config.AgeFactors[bucket]
		if factor == 0 {
			factor = 1.0
		}
		multiplier *= factor
		adjustments["building_age_years"] = age
		adjustments["building_age_bucket"] = bucket
		adjustments["building_age_factor"] = factor
	}

	if q.StationWalkMin != nil {
		walk := *q.StationWalkMin
		bucket := walkBucketFor(walk)
		factor := m.config.WalkFactors[bucket]
		if factor == 0 {
			factor = 1.0
		}
		multiplier *= factor
		adjustments["station_walk_min"] = walk
		adjustments["station_walk_bucket"] = bucket
		adjustments["station_walk_factor"] = factor
	}

	if q.AreaSqm != nil && *q.AreaSqm > 0 && m.config.AreaElasticity != 0 {
		if avgSqm := m.config.LayoutAvgArea[q.LayoutType]; avgSqm > 0 {
			factor := 1.0 + m.config.AreaElasticity*(*q.AreaSqm-avgSqm)/avgSqm
			multiplier *= factor
			adjustments["area_sqm"] = *q.AreaSqm
			adjustments["area_avg_sqm"] = avgSqm
			adjustments["area_elasticity"] = m.config.AreaElasticity
			adjustments["area_factor"] = factor
		}
	}

	raw := g.MedianRentYen
	adjustedYen := int(math.Round(float64(raw) * multiplier))
	if len(adjustments) > 0 {
		adjustments["multiplier_total"] = multiplier
		adjustments["benchmark_rent_yen_raw"] = raw
		adjustments["benchmark_rent_yen_adjusted"] = adjustedYen
	} else {
		adjustments = nil
	}

	return rental.BenchmarkComparison{
		RentYen:      &adjustedYen,
		RentYenRaw:   &raw,
		SampleCount:  g.RowCount,
		Confidence:   conf,
		MatchedLevel: level,
		FeeInclusive: m.index.FeeInclusive,
		Adjustments:  adjustments,
	}
}

func ageBucketFor(age int) string {
	switch {
	case age <= 5:
		return ageBucket0to5
	case age <= 10:
		return ageBucket6to10
	case age <= 20:
		return ageBucket11to20
	default:
		return ageBucketGE21
	}
}

func walkBucketFor(walk int) string {
	switch {
	case walk <= 5:
		return walkBucketLE5
	case walk <= 10:
		return walkBucket6to10
	case walk <= 15:
		return walkBucket11to15
	default:
		return walkBucketGE16
	}
}
