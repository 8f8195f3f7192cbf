package evaluation

import (
	"github.com/sumaiwise/sumaiwise/internal/domain/rules"
	"github.com/sumaiwise/sumaiwise/internal/specstore"
	"github.com/sumaiwise/sumaiwise/pkg/types/rental"
)

// neutralScore is the midpoint used when a feature or component cannot be
// scored from the available inputs.
const neutralScore = 70.0

// featureScore computes one feature's 0-100 score, or nil when the feature's
// input is absent so the component can renormalize around it.
func featureScore(f specstore.Feature, rec rental.Record, foreignerShift float64) *float64 {
	p := f.Params

	// Confidence override: a benchmark-backed feature scores neutral when
	// the comparison it reads is not trustworthy.
	if p.ConfidenceKey != "" {
		if conf, ok := rec.String(p.ConfidenceKey); ok {
			for _, c := range p.NeutralScoreIfConfidenceIn {
				if conf == c {
					return ptr(paramOr(p.NeutralScore, neutralScore))
				}
			}
		}
	}

	raw, present := rec[f.InputKey]
	if !present || raw == nil {
		return nil
	}

	switch f.Method {
	case specstore.MethodBoolean:
		if rules.Truthy(raw) {
			return ptr(*p.TrueScore)
		}
		return ptr(*p.FalseScore)

	case specstore.MethodLookup:
		if s, ok := raw.(string); ok {
			if score, hit := p.Table[s]; hit {
				return ptr(score)
			}
		}
		return ptr(paramOr(p.DefaultScore, neutralScore))

	case specstore.MethodBucket:
		v, ok := rental.AsNumber(raw)
		if !ok {
			return ptr(paramOr(p.DefaultScore, neutralScore))
		}
		if p.ApplyForeignerAdjustment == "im_shift_months" {
			v -= foreignerShift
			if v < 0 {
				v = 0
			}
		}
		return ptr(bucketScore(v, p))

	case specstore.MethodLinear:
		v, ok := rental.AsNumber(raw)
		if !ok {
			return ptr(paramOr(p.DefaultScore, neutralScore))
		}
		return ptr(linearScore(v, p))
	}
	return nil
}

func bucketScore(v float64, p specstore.FeatureParams) float64 {
	for _, b := range p.Buckets {
		if b.Max != nil && v <= *b.Max {
			return b.Score
		}
		if b.Min != nil && v >= *b.Min {
			return b.Score
		}
	}
	return paramOr(p.DefaultScore, neutralScore)
}

func linearScore(v float64, p specstore.FeatureParams) float64 {
	minX, maxX := *p.MinX, *p.MaxX
	minScore, maxScore := *p.MinScore, *p.MaxScore
	if maxX == minX {
		return paramOr(p.DefaultScore, neutralScore)
	}

	var t float64
	if p.Direction == "lower_is_better" {
		t = (maxX - v) / (maxX - minX)
	} else {
		t = (v - minX) / (maxX - minX)
	}
	score := minScore + t*(maxScore-minScore)
	if p.Clamp {
		if score < minScore {
			score = minScore
		}
		if score > maxScore {
			score = maxScore
		}
	}
	return score
}

// componentScore is the weighted average across a component's features.
// Features whose input is absent drop out and the remaining weights are
// rescaled, so one missing optional input cannot drag the component toward
// an arbitrary default.
func componentScore(features []specstore.Feature, rec rental.Record, foreignerShift float64) float64 {
	var allWeight, availWeight, total float64
	for _, f := range features {
		allWeight += f.Weight
		fs := featureScore(f, rec, foreignerShift)
		if fs == nil {
			continue
		}
		total += f.Weight * *fs
		availWeight += f.Weight
	}
	if availWeight <= 0 {
		return neutralScore
	}
	scale := 1.0
	if allWeight > 0 {
		scale = allWeight / availWeight
	}
	return round6(total * scale)
}

// gradeFor picks the highest grade whose threshold the score clears.
func gradeFor(score float64, bands []specstore.GradeBand) string {
	grade := "D"
	best := -1.0
	for _, b := range bands {
		if score >= b.MinScore && b.MinScore >= best {
			grade = b.Grade
			best = b.MinScore
		}
	}
	return grade
}

// scoreAll computes the three component scores and the weighted overall.
func scoreAll(spec *specstore.ScoringSpec, rec rental.Record) (Scores, Grades) {
	byComponent := map[string][]specstore.Feature{}
	for _, f := range spec.Features {
		byComponent[f.Component] = append(byComponent[f.Component], f)
	}
	shift := spec.ForeignerIMShiftMonths

	s := Scores{
		LocationScore:  componentScore(byComponent[specstore.ComponentLocation], rec, shift),
		ConditionScore: componentScore(byComponent[specstore.ComponentCondition], rec, shift),
		CostScore:      componentScore(byComponent[specstore.ComponentCost], rec, shift),
	}
	s.OverallScore = round6(spec.Weights.Location*s.LocationScore +
		spec.Weights.Condition*s.ConditionScore +
		spec.Weights.Cost*s.CostScore)

	g := Grades{
		LocationGrade:  gradeFor(s.LocationScore, spec.GradeBands[specstore.ComponentLocation]),
		ConditionGrade: gradeFor(s.ConditionScore, spec.GradeBands[specstore.ComponentCondition]),
		CostGrade:      gradeFor(s.CostScore, spec.GradeBands[specstore.ComponentCost]),
		OverallGrade:   gradeFor(s.OverallScore, spec.GradeBands[specstore.ComponentOverall]),
	}
	return s, g
}

func ptr(v float64) *float64 { return &v }

func paramOr(p *float64, fallback float64) float64 {
	if p != nil {
		return *p
	}
	return fallback
}
