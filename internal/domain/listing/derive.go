package listing

import (
	"math"
	"time"

	"github.com/sumaiwise/sumaiwise/pkg/types/rental"
)

// Initial-multiple market averages in months of fixed cost, by prefecture.
var defaultIMMarketAvg = map[string]float64{
	"tokyo":    5.0,
	"osaka":    5.0,
	"saitama":  4.5,
	"chiba":    4.5,
	"kanagawa": 4.5,
}

const defaultIMMarketAvgFallback = 4.5

// DeriveOptions tunes the derivation.  DefaultDeriveOptions returns the
// stock tuning; callers that build the struct by hand get the literal
// values they set.
type DeriveOptions struct {
	// EvaluationYear anchors building age.  0 means the current year.
	EvaluationYear int

	// MgmtFeeEstimateRatio and MgmtFeeEstimateCapYen approximate the
	// management fee missing from rent-only benchmark sources.  The
	// estimate is applied only when the listing itself declares a nonzero
	// management fee; a zero ratio disables it entirely, and a zero cap
	// leaves the estimate uncapped.
	MgmtFeeEstimateRatio  float64
	MgmtFeeEstimateCapYen int

	// ForeignerIMShiftMonths is subtracted from the initial multiple for
	// the foreigner-adjusted market view.
	ForeignerIMShiftMonths float64

	// Market averages for the initial multiple, keyed by prefecture.
	IMMarketAvgByPrefecture map[string]float64
	IMMarketAvgDefault      float64
}

// DefaultDeriveOptions returns the stock tuning.
func DefaultDeriveOptions() DeriveOptions {
	return DeriveOptions{
		MgmtFeeEstimateRatio:    0.05,
		MgmtFeeEstimateCapYen:   10000,
		ForeignerIMShiftMonths:  1.0,
		IMMarketAvgByPrefecture: defaultIMMarketAvg,
		IMMarketAvgDefault:      defaultIMMarketAvgFallback,
	}
}

func (o DeriveOptions) year() int {
	if o.EvaluationYear > 0 {
		return o.EvaluationYear
	}
	return time.Now().Year()
}

func (o DeriveOptions) marketAvg(prefecture string) float64 {
	table := o.IMMarketAvgByPrefecture
	if table == nil {
		table = defaultIMMarketAvg
	}
	if avg, ok := table[prefecture]; ok {
		return avg
	}
	if o.IMMarketAvgDefault > 0 {
		return o.IMMarketAvgDefault
	}
	return defaultIMMarketAvgFallback
}

// IMAssessmentLabel classifies an initial multiple against the prefecture
// market average, in months.
func IMAssessmentLabel(im, marketAvg float64) string {
	delta := im - marketAvg
	switch {
	case delta < -1.5:
		return "매우 낮음(시세보다 크게 저렴)"
	case delta < -0.5:
		return "낮음(시세 이하)"
	case delta < 0.5:
		return "평균(시세 수준)"
	case delta < 1.5:
		return "다소 높음(시세 초과)"
	default:
		return "높음(시세보다 크게 초과)"
	}
}

// MgmtFeeEstimate returns the estimated monthly management fee for a
// rent-only benchmark figure.  A nonpositive ratio disables the estimate;
// a nonpositive cap means no ceiling.
func (o DeriveOptions) MgmtFeeEstimate(benchmarkRentYen int) int {
	if o.MgmtFeeEstimateRatio <= 0 {
		return 0
	}
	est := int(math.Round(float64(benchmarkRentYen) * o.MgmtFeeEstimateRatio))
	if cap := o.MgmtFeeEstimateCapYen; cap > 0 && est > cap {
		est = cap
	}
	return est
}

// Derive enriches a validated payload with every computed field rule
// expressions and templates may reference.  The input record is not
// mutated; absent inputs yield absent outputs, never zero placeholders.
func Derive(payload rental.Record, bm rental.BenchmarkComparison, opts DeriveOptions) rental.Record {
	rec := payload.Clone()

	rent, hasRent := rec.Int(FieldRentYen)
	mgmt, hasMgmt := rec.Int(FieldMgmtFeeYen)
	monthly := 0
	if hasRent {
		monthly = rent
		if hasMgmt {
			monthly += mgmt
		}
		rec[FieldMonthlyFixedCost] = monthly
	}

	if built, ok := rec.Int(FieldBuiltYear); ok {
		age := opts.year() - built
		if age < 0 {
			age = 0
		}
		rec[FieldBuildingAgeYears] = age
	}

	initialCost, hasInitialCost := rec.Number(FieldInitialCostTotal)
	im := 0.0
	imComputable := hasInitialCost && monthly > 0
	rec[FieldInitialMultipleOK] = imComputable
	if imComputable {
		im = initialCost / float64(monthly)
		rec[FieldInitialMultiple] = im
	} else {
		rec[FieldInitialMultiple] = nil
	}

	deriveBenchmark(rec, bm, monthly, mgmt, opts)

	if imComputable {
		prefecture, _ := rec.String(FieldPrefecture)
		marketAvg := opts.marketAvg(prefecture)
		shift := opts.ForeignerIMShiftMonths
		imForeigner := im - shift
		if imForeigner < 0 {
			imForeigner = 0
		}
		rec[FieldIMMarketAvg] = marketAvg
		rec[FieldIMMarketDelta] = im - marketAvg
		rec[FieldIMMarketDeltaForeigner] = imForeigner - marketAvg
		rec[FieldIMAssessment] = IMAssessmentLabel(im, marketAvg)
		rec[FieldIMAssessmentForeigner] = IMAssessmentLabel(imForeigner, marketAvg)
	}

	return rec
}

func deriveBenchmark(rec rental.Record, bm rental.BenchmarkComparison, monthly, mgmtFee int, opts DeriveOptions) {
	rec[FieldBenchmarkConfidence] = string(bm.Confidence)
	rec[FieldBenchmarkSampleCount] = bm.SampleCount
	rec[FieldBenchmarkMatchedLevel] = string(bm.MatchedLevel)
	if len(bm.Adjustments) > 0 {
		rec[FieldBenchmarkAdjustments] = bm.Adjustments
	}
	if bm.RentYen == nil || !bm.Confidence.Usable() {
		return
	}

	adjusted := *bm.RentYen
	if bm.RentYenRaw != nil {
		rec[FieldBenchmarkMonthlyCostRaw] = *bm.RentYenRaw
	}
	// A rent-only benchmark understates the listing's all-in cost, but the
	// correction is owed only to listings that declare a nonzero management
	// fee; a zero-fee listing compares against the raw benchmark figure.
	if !bm.FeeInclusive && mgmtFee > 0 {
		if est := opts.MgmtFeeEstimate(adjusted); est > 0 {
			rec[FieldBenchmarkFeeEstimate] = est
			adjusted += est
		}
	}
	rec[FieldBenchmarkMonthlyCost] = adjusted

	// The delta is only meaningful when both sides exist; a record with no
	// usable benchmark simply has no rent_delta_ratio field.
	if monthly > 0 && adjusted > 0 {
		rec[FieldRentDeltaRatio] = (float64(monthly) - float64(adjusted)) / float64(adjusted)
	}
}
