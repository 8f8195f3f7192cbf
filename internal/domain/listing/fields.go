// Package listing models a rental listing's input vocabulary, payload
// validation, and derived-metric enrichment.  It owns the published field
// namespace that rule expressions and templates may reference.
package listing

// Raw input field keys (the S1 vocabulary ships these as data; the constants
// below are the ones the derivation code reads directly).
const (
	FieldRentYen          = "rent_yen"
	FieldMgmtFeeYen       = "mgmt_fee_yen"
	FieldInitialCostTotal = "initial_cost_total_yen"
	FieldBuiltYear        = "building_built_year"
	FieldPrefecture       = "prefecture"
	FieldMunicipality     = "municipality"
	FieldLayoutType       = "layout_type"
	FieldStructure        = "building_structure"
	FieldAreaSqm          = "area_sqm"
	FieldStationWalkMin   = "station_walk_min"
	FieldHubStation       = "hub_station"
	FieldHubStationOther  = "hub_station_other_name"
)

// Derived field keys added by Derive.
const (
	FieldMonthlyFixedCost        = "monthly_fixed_cost_yen"
	FieldBuildingAgeYears        = "building_age_years"
	FieldInitialMultiple         = "initial_multiple"
	FieldInitialMultipleOK       = "initial_multiple_computable"
	FieldRentDeltaRatio          = "rent_delta_ratio"
	FieldBenchmarkMonthlyCost    = "benchmark_monthly_fixed_cost_yen"
	FieldBenchmarkMonthlyCostRaw = "benchmark_monthly_fixed_cost_yen_raw"
	FieldBenchmarkConfidence     = "benchmark_confidence"
	FieldBenchmarkSampleCount    = "benchmark_n_sources"
	FieldBenchmarkMatchedLevel   = "benchmark_matched_level"
	FieldBenchmarkAdjustments    = "benchmark_adjustments"
	FieldBenchmarkFeeEstimate    = "benchmark_mgmt_fee_estimate_yen"
	FieldIMAssessment            = "im_assessment"
	FieldIMAssessmentForeigner   = "im_assessment_foreigner"
	FieldIMMarketAvg             = "initial_multiple_market_avg"
	FieldIMMarketDelta           = "initial_multiple_market_delta"
	FieldIMMarketDeltaForeigner  = "initial_multiple_market_delta_foreigner"
)

// Score and grade field keys added by the report assembler after scoring.
const (
	FieldLocationScore  = "location_score"
	FieldConditionScore = "condition_score"
	FieldCostScore      = "cost_score"
	FieldOverallScore   = "overall_score"
	FieldLocationGrade  = "location_grade"
	FieldConditionGrade = "condition_grade"
	FieldCostGrade      = "cost_grade"
	FieldOverallGrade   = "overall_grade"
	FieldTradeoffTag    = "tradeoff_tag"
)

// DerivedFields returns every field name Derive and the report assembler may
// add to a record.  The spec loader unions this with the input vocabulary to
// form the closed set of names rule expressions and template tokens may
// reference.
func DerivedFields() []string {
	return []string{
		FieldMonthlyFixedCost,
		FieldBuildingAgeYears,
		FieldInitialMultiple,
		FieldInitialMultipleOK,
		FieldRentDeltaRatio,
		FieldBenchmarkMonthlyCost,
		FieldBenchmarkMonthlyCostRaw,
		FieldBenchmarkConfidence,
		FieldBenchmarkSampleCount,
		FieldBenchmarkMatchedLevel,
		FieldBenchmarkAdjustments,
		FieldBenchmarkFeeEstimate,
		FieldIMAssessment,
		FieldIMAssessmentForeigner,
		FieldIMMarketAvg,
		FieldIMMarketDelta,
		FieldIMMarketDeltaForeigner,
		FieldLocationScore,
		FieldConditionScore,
		FieldCostScore,
		FieldOverallScore,
		FieldLocationGrade,
		FieldConditionGrade,
		FieldCostGrade,
		FieldOverallGrade,
		FieldTradeoffTag,
	}
}
