package specstore

import (
	"encoding/json"

	"github.com/sumaiwise/sumaiwise/internal/domain/rules"
	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

// Score components.
const (
	ComponentLocation  = "location"
	ComponentCondition = "condition"
	ComponentCost      = "cost"
	ComponentOverall   = "overall"
)

// Feature scoring methods.
const (
	MethodBoolean = "boolean"
	MethodLookup  = "lookup"
	MethodBucket  = "bucket"
	MethodLinear  = "linear"
)

// ScoringSpec is the compiled S2 section.
type ScoringSpec struct {
	Weights                Weights
	Features               []Feature
	GradeBands             map[string][]GradeBand
	ForeignerIMShiftMonths float64
	RiskRules              *rules.Set
	TradeoffRules          *rules.Set
	WhatIfRules            []WhatIfRule
}

// Weights blends the three component scores into the overall score.
type Weights struct {
	Location  float64 `json:"location"`
	Condition float64 `json:"condition"`
	Cost      float64 `json:"cost"`
}

// Feature scores one input field and contributes to one component.
type Feature struct {
	ID        string        `json:"id"`
	Component string        `json:"component"`
	InputKey  string        `json:"input_key"`
	Method    string        `json:"method"`
	Weight    float64       `json:"weight"`
	Params    FeatureParams `json:"params"`
}

// FeatureParams carries the method-specific tuning.  Only the fields for the
// feature's method are consulted.
type FeatureParams struct {
	TrueScore  *float64 `json:"true_score"`
	FalseScore *float64 `json:"false_score"`

	Table map[string]float64 `json:"table"`

	Buckets []Bucket `json:"buckets"`

	MinX      *float64 `json:"min_x"`
	MaxX      *float64 `json:"max_x"`
	MinScore  *float64 `json:"min_score"`
	MaxScore  *float64 `json:"max_score"`
	Clamp     bool     `json:"clamp"`
	Direction string   `json:"direction"`

	DefaultScore *float64 `json:"default_score"`

	// Confidence override: when the named field holds one of the listed
	// values the feature returns the neutral score instead of scoring a
	// number nobody should trust.
	ConfidenceKey              string   `json:"confidence_key"`
	NeutralScoreIfConfidenceIn []string `json:"neutral_score_if_confidence_in"`
	NeutralScore               *float64 `json:"neutral_score"`

	// "im_shift_months" subtracts the configured foreigner shift from the
	// value before bucketing.
	ApplyForeignerAdjustment string `json:"apply_foreigner_adjustment"`
}

// Bucket maps a half-open value range to a score.  A bucket declares either
// an upper bound (value <= max) or a lower bound (value >= min); the first
// matching bucket in declaration order wins.
type Bucket struct {
	Max   *float64 `json:"max"`
	Min   *float64 `json:"min"`
	Score float64  `json:"score"`
}

// GradeBand maps a minimum score to a letter grade.
type GradeBand struct {
	Grade    string  `json:"grade"`
	MinScore float64 `json:"min_score"`
}

// WhatIfRule describes one negotiation scenario: when enabled, each action
// is simulated against the payload and the cost impact re-scored.
type WhatIfRule struct {
	ID        string
	EnabledIf rules.Expr
	Actions   []WhatIfAction
}

// What-if action types.
const (
	ActionDeltaYen = "delta_yen"
	ActionSetZero  = "set_zero"
	ActionScale    = "scale"
)

// WhatIfAction is one simulated change to a payload field.
type WhatIfAction struct {
	Type      string  `json:"type"`
	TargetKey string  `json:"target_key"`
	Value     float64 `json:"value"`
	LabelKo   string  `json:"label_ko"`
	LabelJa   string  `json:"label_ja"`
}

type rawS2 struct {
	Weights             Weights                `json:"weights"`
	Features            []Feature              `json:"features"`
	GradeThresholds     map[string][]GradeBand `json:"grade_thresholds"`
	ForeignerAdjustment struct {
		ForeignIMShiftMonths float64 `json:"foreign_im_shift_months"`
	} `json:"foreigner_adjustment"`
	RiskFlagRules []rawRule       `json:"risk_flag_rules"`
	TradeoffRules []rawRule       `json:"tradeoff_rules"`
	WhatIfRules   []rawWhatIfRule `json:"what_if_rules"`
}

type rawRule struct {
	ID       string                 `json:"id"`
	Priority int                    `json:"priority"`
	When     interface{}            `json:"when"`
	Outputs  map[string]interface{} `json:"outputs"`
}

type rawWhatIfRule struct {
	ID        string         `json:"id"`
	EnabledIf interface{}    `json:"enabled_if"`
	Actions   []WhatIfAction `json:"actions"`
}

func compileS2(data json.RawMessage, allowed map[string]bool) (*ScoringSpec, error) {
	var s2 rawS2
	if err := json.Unmarshal(data, &s2); err != nil {
		return nil, errors.Wrap(err, errors.CodeSpecBundleInvalid, "parse S2 section")
	}

	if s2.Weights.Location+s2.Weights.Condition+s2.Weights.Cost <= 0 {
		return nil, errors.New(errors.CodeSpecBundleInvalid, "S2 weights must sum to a positive value")
	}
	if len(s2.Features) == 0 {
		return nil, errors.New(errors.CodeSpecBundleInvalid, "S2 declares no features")
	}
	for i := range s2.Features {
		f := &s2.Features[i]
		f.ID = ruleID("feature", i, f.ID)
		if err := validateFeature(f, allowed); err != nil {
			return nil, err
		}
	}
	for _, component := range []string{ComponentLocation, ComponentCondition, ComponentCost, ComponentOverall} {
		bands := s2.GradeThresholds[component]
		if len(bands) == 0 {
			return nil, errors.Newf(errors.CodeSpecBundleInvalid, "S2 grade_thresholds missing %s", component)
		}
		for _, b := range bands {
			if b.Grade == "" {
				return nil, errors.Newf(errors.CodeSpecBundleInvalid, "S2 grade band for %s has empty grade", component)
			}
		}
	}

	riskSet, err := compileRuleSet("risk_flag_rules", s2.RiskFlagRules, rules.MultiSelect, allowed)
	if err != nil {
		return nil, err
	}
	tradeoffSet, err := compileRuleSet("tradeoff_rules", s2.TradeoffRules, rules.SingleSelect, allowed)
	if err != nil {
		return nil, err
	}

	whatIf := make([]WhatIfRule, 0, len(s2.WhatIfRules))
	for i, wi := range s2.WhatIfRules {
		id := ruleID("what_if", i, wi.ID)
		if wi.EnabledIf == nil {
			return nil, errors.Newf(errors.CodeRuleCondition, "what-if rule %s has no enabled_if condition", id)
		}
		cond, err := rules.ParseExpr(wi.EnabledIf)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeRuleCondition, "what-if rule %s", id)
		}
		if err := checkVars(cond, allowed, "what-if rule "+id); err != nil {
			return nil, err
		}
		if len(wi.Actions) == 0 {
			return nil, errors.Newf(errors.CodeSpecBundleInvalid, "what-if rule %s has no actions", id)
		}
		for _, a := range wi.Actions {
			switch a.Type {
			case ActionDeltaYen, ActionSetZero, ActionScale:
			default:
				return nil, errors.Newf(errors.CodeSpecBundleInvalid, "what-if rule %s has unknown action type %q", id, a.Type)
			}
			if !allowed[a.TargetKey] {
				return nil, errors.Newf(errors.CodeSpecBundleInvalid, "what-if rule %s targets unknown field %q", id, a.TargetKey)
			}
		}
		whatIf = append(whatIf, WhatIfRule{ID: id, EnabledIf: cond, Actions: wi.Actions})
	}

	return &ScoringSpec{
		Weights:                s2.Weights,
		Features:               s2.Features,
		GradeBands:             s2.GradeThresholds,
		ForeignerIMShiftMonths: s2.ForeignerAdjustment.ForeignIMShiftMonths,
		RiskRules:              riskSet,
		TradeoffRules:          tradeoffSet,
		WhatIfRules:            whatIf,
	}, nil
}

func validateFeature(f *Feature, allowed map[string]bool) error {
	switch f.Component {
	case ComponentLocation, ComponentCondition, ComponentCost:
	default:
		return errors.Newf(errors.CodeSpecBundleInvalid, "feature %s has unknown component %q", f.ID, f.Component)
	}
	if f.Weight <= 0 {
		return errors.Newf(errors.CodeSpecBundleInvalid, "feature %s has non-positive weight", f.ID)
	}
	if !allowed[f.InputKey] {
		return errors.Newf(errors.CodeSpecBundleInvalid, "feature %s reads unknown field %q", f.ID, f.InputKey)
	}
	if f.Params.ConfidenceKey != "" && !allowed[f.Params.ConfidenceKey] {
		return errors.Newf(errors.CodeSpecBundleInvalid, "feature %s reads unknown confidence field %q", f.ID, f.Params.ConfidenceKey)
	}
	switch f.Method {
	case MethodBoolean:
		if f.Params.TrueScore == nil || f.Params.FalseScore == nil {
			return errors.Newf(errors.CodeSpecBundleInvalid, "boolean feature %s needs true_score and false_score", f.ID)
		}
	case MethodLookup:
		if len(f.Params.Table) == 0 {
			return errors.Newf(errors.CodeSpecBundleInvalid, "lookup feature %s has an empty table", f.ID)
		}
	case MethodBucket:
		if len(f.Params.Buckets) == 0 {
			return errors.Newf(errors.CodeSpecBundleInvalid, "bucket feature %s declares no buckets", f.ID)
		}
		for _, b := range f.Params.Buckets {
			if b.Max == nil && b.Min == nil {
				return errors.Newf(errors.CodeSpecBundleInvalid, "bucket feature %s has a bucket with neither min nor max", f.ID)
			}
		}
	case MethodLinear:
		p := f.Params
		if p.MinX == nil || p.MaxX == nil || p.MinScore == nil || p.MaxScore == nil {
			return errors.Newf(errors.CodeSpecBundleInvalid, "linear feature %s needs min_x, max_x, min_score, max_score", f.ID)
		}
	default:
		return errors.Newf(errors.CodeSpecBundleInvalid, "feature %s has unknown method %q", f.ID, f.Method)
	}
	return nil
}

func compileRuleSet(name string, raw []rawRule, mode rules.SelectMode, allowed map[string]bool) (*rules.Set, error) {
	compiled := make([]rules.Rule, 0, len(raw))
	for i, r := range raw {
		id := ruleID(name, i, r.ID)
		if r.When == nil {
			return nil, errors.Newf(errors.CodeRuleCondition, "%s rule %s has no condition", name, id)
		}
		cond, err := rules.ParseExpr(r.When)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeRuleCondition, "%s rule %s", name, id)
		}
		if err := checkVars(cond, allowed, name+" rule "+id); err != nil {
			return nil, err
		}
		compiled = append(compiled, rules.Rule{
			ID:        id,
			Priority:  r.Priority,
			Condition: cond,
			Output:    r.Outputs,
		})
	}
	return rules.NewSet(name, mode, compiled)
}
