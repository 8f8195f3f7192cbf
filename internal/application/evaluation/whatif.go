package evaluation

import (
	"math"
	"strings"

	"github.com/sumaiwise/sumaiwise/internal/domain/listing"
	"github.com/sumaiwise/sumaiwise/internal/domain/rules"
	"github.com/sumaiwise/sumaiwise/internal/specstore"
	"github.com/sumaiwise/sumaiwise/pkg/types/rental"
)

// Generic fallback scenario, used when no authored what-if rule is enabled
// for the listing so the report always offers at least one negotiation path.
const (
	genericWhatIfID      = "what_if_initial_cost_discount"
	genericWhatIfLabelKo = "초기비용 50,000엔 인하 협상"
	genericWhatIfLabelJa = "初期費用50,000円引き交渉"
	genericWhatIfDelta   = -50000
)

// runWhatIf simulates every enabled scenario against the original payload
// and re-scores the cost component.  Location and condition scores are
// unaffected by monetary changes and carry over.
func runWhatIf(
	spec *specstore.ScoringSpec,
	payload rental.Record,
	enriched rental.Record,
	base Scores,
) []WhatIfResult {
	var results []WhatIfResult
	for _, rule := range spec.WhatIfRules {
		if !rules.Truthy(rule.EnabledIf.Eval(enriched)) {
			continue
		}
		for _, action := range rule.Actions {
			if r, ok := simulateAction(spec, payload, enriched, base, rule.ID, action); ok {
				results = append(results, r)
			}
		}
	}
	if len(results) == 0 {
		generic := specstore.WhatIfAction{
			Type:      specstore.ActionDeltaYen,
			TargetKey: listing.FieldInitialCostTotal,
			Value:     genericWhatIfDelta,
			LabelKo:   genericWhatIfLabelKo,
			LabelJa:   genericWhatIfLabelJa,
		}
		if r, ok := simulateAction(spec, payload, enriched, base, genericWhatIfID, generic); ok {
			results = append(results, r)
		}
	}
	return results
}

func simulateAction(
	spec *specstore.ScoringSpec,
	payload rental.Record,
	enriched rental.Record,
	base Scores,
	ruleID string,
	action specstore.WhatIfAction,
) (WhatIfResult, bool) {
	adjusted := payload.Clone()
	oldTarget, _ := adjusted.Int(action.TargetKey)

	var newTarget int
	switch action.Type {
	case specstore.ActionDeltaYen:
		newTarget = oldTarget + int(action.Value)
	case specstore.ActionSetZero:
		newTarget = 0
	case specstore.ActionScale:
		newTarget = int(math.Round(float64(oldTarget) * action.Value))
	default:
		return WhatIfResult{}, false
	}
	if newTarget < 0 {
		newTarget = 0
	}
	adjusted[action.TargetKey] = newTarget

	// A change to a fee breakdown flows into the initial cost total.
	if action.TargetKey != listing.FieldInitialCostTotal && strings.HasSuffix(action.TargetKey, "_yen") {
		if total, ok := adjusted.Int(listing.FieldInitialCostTotal); ok {
			total += newTarget - oldTarget
			if total < 0 {
				total = 0
			}
			adjusted[listing.FieldInitialCostTotal] = total
		}
	}

	// Re-derive only the cost inputs the scenario can move.
	sim := enriched.Clone()
	for k, v := range adjusted {
		sim[k] = v
	}
	rent, _ := adjusted.Int(listing.FieldRentYen)
	mgmt, _ := adjusted.Int(listing.FieldMgmtFeeYen)
	monthly := rent + mgmt
	sim[listing.FieldMonthlyFixedCost] = monthly

	totalCost, hasTotal := adjusted.Number(listing.FieldInitialCostTotal)
	var newIM *float64
	if hasTotal && monthly > 0 {
		im := round6(totalCost / float64(monthly))
		newIM = &im
		sim[listing.FieldInitialMultiple] = im
		sim[listing.FieldInitialMultipleOK] = true
		if avg, ok := enriched.Number(listing.FieldIMMarketAvg); ok {
			shifted := im - spec.ForeignerIMShiftMonths
			if shifted < 0 {
				shifted = 0
			}
			sim[listing.FieldIMMarketDelta] = im - avg
			sim[listing.FieldIMMarketDeltaForeigner] = shifted - avg
		}
	} else {
		sim[listing.FieldInitialMultiple] = nil
		sim[listing.FieldInitialMultipleOK] = false
	}

	if bench, ok := enriched.Number(listing.FieldBenchmarkMonthlyCost); ok && bench > 0 {
		sim[listing.FieldRentDeltaRatio] = (float64(monthly) - bench) / bench
	} else {
		delete(sim, listing.FieldRentDeltaRatio)
	}

	var costFeatures []specstore.Feature
	for _, f := range spec.Features {
		if f.Component == specstore.ComponentCost {
			costFeatures = append(costFeatures, f)
		}
	}
	costScore := componentScore(costFeatures, sim, spec.ForeignerIMShiftMonths)
	overall := round6(spec.Weights.Location*base.LocationScore +
		spec.Weights.Condition*base.ConditionScore +
		spec.Weights.Cost*costScore)

	newTotal, _ := adjusted.Int(listing.FieldInitialCostTotal)
	return WhatIfResult{
		ID:                  ruleID,
		LabelKo:             action.LabelKo,
		LabelJa:             action.LabelJa,
		InitialCostTotalYen: newTotal,
		InitialMultiple:     newIM,
		CostScore:           costScore,
		OverallScore:        overall,
		CostGrade:           gradeFor(costScore, spec.GradeBands[specstore.ComponentCost]),
		OverallGrade:        gradeFor(overall, spec.GradeBands[specstore.ComponentOverall]),
	}, true
}
