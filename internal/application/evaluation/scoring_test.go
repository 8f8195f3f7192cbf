package evaluation

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumaiwise/sumaiwise/internal/specstore"
	"github.com/sumaiwise/sumaiwise/pkg/types/rental"
)

func testBundle(t *testing.T) *specstore.Bundle {
	t.Helper()
	data, err := os.ReadFile("testdata/spec_bundle.json")
	require.NoError(t, err)
	b, err := specstore.Compile(data)
	require.NoError(t, err)
	return b
}

func fp(v float64) *float64 { return &v }

func TestBucketScore(t *testing.T) {
	p := specstore.FeatureParams{
		Buckets: []specstore.Bucket{
			{Max: fp(5), Score: 95},
			{Max: fp(10), Score: 85},
			{Max: fp(15), Score: 70},
			{Min: fp(16), Score: 55},
		},
	}
	assert.Equal(t, 95.0, bucketScore(3, p))
	assert.Equal(t, 95.0, bucketScore(5, p))
	assert.Equal(t, 85.0, bucketScore(6, p))
	assert.Equal(t, 70.0, bucketScore(15, p))
	assert.Equal(t, 55.0, bucketScore(40, p))

	// Value in a gap between buckets falls back to the default.
	gap := specstore.FeatureParams{
		Buckets:      []specstore.Bucket{{Max: fp(5), Score: 95}, {Min: fp(20), Score: 50}},
		DefaultScore: fp(60),
	}
	assert.Equal(t, 60.0, bucketScore(10, gap))
}

func TestLinearScore(t *testing.T) {
	lower := specstore.FeatureParams{
		MinX: fp(-0.2), MaxX: fp(0.2), MinScore: fp(40), MaxScore: fp(95),
		Clamp: true, Direction: "lower_is_better",
	}
	// Midpoint of the range scores the midpoint of the band.
	assert.InDelta(t, 67.5, linearScore(0, lower), 1e-9)
	// Lower value is better.
	assert.InDelta(t, 95, linearScore(-0.2, lower), 1e-9)
	assert.InDelta(t, 40, linearScore(0.2, lower), 1e-9)
	// Clamp holds outside the range.
	assert.InDelta(t, 95, linearScore(-0.5, lower), 1e-9)
	assert.InDelta(t, 40, linearScore(0.5, lower), 1e-9)

	higher := specstore.FeatureParams{
		MinX: fp(0), MaxX: fp(10), MinScore: fp(0), MaxScore: fp(100),
		Direction: "higher_is_better",
	}
	assert.InDelta(t, 70, linearScore(7, higher), 1e-9)
	// Without clamp the projection extends past the band.
	assert.InDelta(t, 120, linearScore(12, higher), 1e-9)

	degenerate := specstore.FeatureParams{
		MinX: fp(1), MaxX: fp(1), MinScore: fp(0), MaxScore: fp(100),
	}
	assert.Equal(t, neutralScore, linearScore(5, degenerate))
}

func TestGradeFor(t *testing.T) {
	bands := []specstore.GradeBand{
		{Grade: "A", MinScore: 85},
		{Grade: "B", MinScore: 70},
		{Grade: "C", MinScore: 55},
		{Grade: "D", MinScore: 0},
	}
	assert.Equal(t, "A", gradeFor(92, bands))
	assert.Equal(t, "A", gradeFor(85, bands))
	assert.Equal(t, "B", gradeFor(84.999, bands))
	assert.Equal(t, "C", gradeFor(55, bands))
	assert.Equal(t, "D", gradeFor(10, bands))
	assert.Equal(t, "D", gradeFor(50, nil))
}

func TestFeatureScoreBooleanAndLookup(t *testing.T) {
	boolFeat := specstore.Feature{
		InputKey: "bathroom_toilet_separate",
		Method:   specstore.MethodBoolean,
		Params:   specstore.FeatureParams{TrueScore: fp(85), FalseScore: fp(60)},
	}
	got := featureScore(boolFeat, rental.Record{"bathroom_toilet_separate": true}, 0)
	require.NotNil(t, got)
	assert.Equal(t, 85.0, *got)

	got = featureScore(boolFeat, rental.Record{"bathroom_toilet_separate": false}, 0)
	require.NotNil(t, got)
	assert.Equal(t, 60.0, *got)

	assert.Nil(t, featureScore(boolFeat, rental.Record{}, 0))

	lookupFeat := specstore.Feature{
		InputKey: "hub_station",
		Method:   specstore.MethodLookup,
		Params: specstore.FeatureParams{
			Table:        map[string]float64{"shinjuku": 90},
			DefaultScore: fp(65),
		},
	}
	got = featureScore(lookupFeat, rental.Record{"hub_station": "shinjuku"}, 0)
	require.NotNil(t, got)
	assert.Equal(t, 90.0, *got)

	got = featureScore(lookupFeat, rental.Record{"hub_station": "ueno"}, 0)
	require.NotNil(t, got)
	assert.Equal(t, 65.0, *got)
}

func TestFeatureScoreConfidenceOverride(t *testing.T) {
	feat := specstore.Feature{
		InputKey: "rent_delta_ratio",
		Method:   specstore.MethodLinear,
		Params: specstore.FeatureParams{
			MinX: fp(-0.2), MaxX: fp(0.2), MinScore: fp(40), MaxScore: fp(95),
			ConfidenceKey:              "benchmark_confidence",
			NeutralScoreIfConfidenceIn: []string{"none"},
			NeutralScore:               fp(70),
		},
	}

	// No trustworthy benchmark: neutral, even though the input is absent.
	got := featureScore(feat, rental.Record{"benchmark_confidence": "none"}, 0)
	require.NotNil(t, got)
	assert.Equal(t, 70.0, *got)

	// Trustworthy benchmark: score the actual ratio.
	got = featureScore(feat, rental.Record{"benchmark_confidence": "high", "rent_delta_ratio": -0.2}, 0)
	require.NotNil(t, got)
	assert.InDelta(t, 95, *got, 1e-9)
}

func TestFeatureScoreForeignerShift(t *testing.T) {
	feat := specstore.Feature{
		InputKey: "initial_multiple",
		Method:   specstore.MethodBucket,
		Params: specstore.FeatureParams{
			ApplyForeignerAdjustment: "im_shift_months",
			Buckets: []specstore.Bucket{
				{Max: fp(3), Score: 95},
				{Min: fp(3), Score: 50},
			},
		},
	}
	// 3.8 on its own lands in the low bucket; shifted by one month it
	// clears the 3.0 threshold.
	got := featureScore(feat, rental.Record{"initial_multiple": 3.8}, 1.0)
	require.NotNil(t, got)
	assert.Equal(t, 95.0, *got)

	got = featureScore(feat, rental.Record{"initial_multiple": 3.8}, 0)
	require.NotNil(t, got)
	assert.Equal(t, 50.0, *got)
}

func TestComponentScoreRenormalizesAbsentInputs(t *testing.T) {
	features := []specstore.Feature{
		{
			InputKey: "station_walk_min", Method: specstore.MethodBucket, Weight: 0.6,
			Params: specstore.FeatureParams{Buckets: []specstore.Bucket{{Max: fp(5), Score: 95}, {Min: fp(6), Score: 60}}},
		},
		{
			InputKey: "hub_station", Method: specstore.MethodLookup, Weight: 0.4,
			Params: specstore.FeatureParams{Table: map[string]float64{"shinjuku": 90}},
		},
	}

	// Both present: plain weighted average.
	both := componentScore(features, rental.Record{"station_walk_min": 4, "hub_station": "shinjuku"}, 0)
	assert.InDelta(t, 93, both, 1e-9)

	// Hub absent: the walk feature carries full weight instead of being
	// averaged against a phantom default.
	walkOnly := componentScore(features, rental.Record{"station_walk_min": 4}, 0)
	assert.InDelta(t, 95, walkOnly, 1e-9)

	// Nothing present: neutral.
	assert.Equal(t, neutralScore, componentScore(features, rental.Record{}, 0))
}

func TestScoreAllWeightsComponents(t *testing.T) {
	b := testBundle(t)
	rec := rental.Record{
		"station_walk_min":         4,
		"hub_station":              "shinjuku",
		"building_age_years":       11,
		"bathroom_toilet_separate": true,
		"benchmark_confidence":     "none",
		"initial_multiple":         3.396226,
	}
	scores, grades := scoreAll(b.Scoring, rec)

	assert.InDelta(t, 93, scores.LocationScore, 1e-9)
	assert.InDelta(t, 76, scores.ConditionScore, 1e-9)
	// Cost: neutral 70 for the ratio (confidence none), 95 for the shifted
	// initial multiple.
	assert.InDelta(t, 82.5, scores.CostScore, 1e-9)
	assert.InDelta(t, 0.35*93+0.25*76+0.4*82.5, scores.OverallScore, 1e-6)

	assert.Equal(t, "A", grades.LocationGrade)
	assert.Equal(t, "B", grades.ConditionGrade)
	assert.Equal(t, "B", grades.CostGrade)
	assert.Equal(t, "B", grades.OverallGrade)
}
