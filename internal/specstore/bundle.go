// Package specstore loads, validates, and hot-reloads the versioned spec
// bundle that drives evaluation: the input vocabulary (S1), the scoring spec
// (S2), the report templates (C1), and the benchmark tuning (D1).  All rule
// expressions and templates are compiled and checked at load time so that
// evaluation itself never encounters an authoring error.
package specstore

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sumaiwise/sumaiwise/internal/domain/benchmark"
	"github.com/sumaiwise/sumaiwise/internal/domain/listing"
	"github.com/sumaiwise/sumaiwise/internal/domain/rules"
	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

// Bundle is a fully compiled, immutable spec bundle.  A Bundle is never
// mutated after Compile returns; the Store swaps whole bundles atomically.
type Bundle struct {
	Version     string
	GeneratedAt string

	Vocabulary *listing.Vocabulary
	Validator  *listing.Validator
	Scoring    *ScoringSpec
	Report     *ReportSpec
	Hedonic    benchmark.HedonicConfig

	// FeeInclusiveBenchmarks marks whether D1 declares its collected rents
	// as management-fee inclusive.
	FeeInclusiveBenchmarks bool
}

// Raw wire shapes.  These mirror the bundle JSON exactly; Compile converts
// them into the typed domain artifacts above.

type rawBundle struct {
	Version     string          `json:"version"`
	GeneratedAt string          `json:"generated_at"`
	S1          json.RawMessage `json:"S1"`
	S2          json.RawMessage `json:"S2"`
	C1          json.RawMessage `json:"C1"`
	D1          json.RawMessage `json:"D1"`
}

type rawS1 struct {
	Fields            []rawField `json:"fields"`
	MVPRequiredFields []string   `json:"mvp_required_fields"`
}

type rawField struct {
	Key         string         `json:"key"`
	Type        string         `json:"type"`
	Unit        string         `json:"unit"`
	LabelKo     string         `json:"label_ko"`
	Constraints rawConstraints `json:"constraints"`
}

type rawConstraints struct {
	Min        *float64 `json:"min"`
	Max        *float64 `json:"max"`
	EnumValues []string `json:"enum_values"`
}

type rawD1 struct {
	FeeInclusive bool `json:"fee_inclusive"`
	Segmentation struct {
		BucketRules struct {
			HedonicAdjustments rawHedonic `json:"hedonic_adjustments"`
		} `json:"bucket_rules"`
	} `json:"segmentation"`
}

type rawHedonic struct {
	BuildingAgeBucketMultipliers map[string]float64 `json:"building_age_bucket_multipliers"`
	StationWalkBucketMultipliers map[string]float64 `json:"station_walk_bucket_multipliers"`
	LayoutAvgAreaSqm             map[string]float64 `json:"layout_avg_area_sqm"`
	AreaElasticity               *float64           `json:"area_elasticity"`
}

// Compile parses a bundle document and compiles every section.  A bundle
// that compiles is guaranteed total: every rule set resolves for every
// record and every template renders from the published field namespace.
func Compile(data []byte) (*Bundle, error) {
	var raw rawBundle
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.CodeSpecBundleInvalid, "parse bundle document")
	}
	for name, section := range map[string]json.RawMessage{"S1": raw.S1, "S2": raw.S2, "C1": raw.C1, "D1": raw.D1} {
		if len(section) == 0 {
			return nil, errors.Newf(errors.CodeSpecBundleInvalid, "bundle missing section %s", name)
		}
	}

	vocab, validator, err := compileS1(raw.S1)
	if err != nil {
		return nil, err
	}
	allowed := vocab.AllowedNames()

	scoring, err := compileS2(raw.S2, allowed)
	if err != nil {
		return nil, err
	}
	report, err := compileC1(raw.C1, allowed)
	if err != nil {
		return nil, err
	}

	var d1 rawD1
	if err := json.Unmarshal(raw.D1, &d1); err != nil {
		return nil, errors.Wrap(err, errors.CodeSpecBundleInvalid, "parse D1 section")
	}
	hedonic := benchmark.DefaultHedonicConfig().WithOverrides(
		d1.Segmentation.BucketRules.HedonicAdjustments.BuildingAgeBucketMultipliers,
		d1.Segmentation.BucketRules.HedonicAdjustments.StationWalkBucketMultipliers,
		d1.Segmentation.BucketRules.HedonicAdjustments.LayoutAvgAreaSqm,
		d1.Segmentation.BucketRules.HedonicAdjustments.AreaElasticity,
	)

	return &Bundle{
		Version:                raw.Version,
		GeneratedAt:            raw.GeneratedAt,
		Vocabulary:             vocab,
		Validator:              validator,
		Scoring:                scoring,
		Report:                 report,
		Hedonic:                hedonic,
		FeeInclusiveBenchmarks: d1.FeeInclusive,
	}, nil
}

func compileS1(data json.RawMessage) (*listing.Vocabulary, *listing.Validator, error) {
	var s1 rawS1
	if err := json.Unmarshal(data, &s1); err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeSpecBundleInvalid, "parse S1 section")
	}
	required := make(map[string]bool, len(s1.MVPRequiredFields))
	for _, k := range s1.MVPRequiredFields {
		required[k] = true
	}

	defs := make([]listing.FieldDef, 0, len(s1.Fields))
	for _, f := range s1.Fields {
		def := listing.FieldDef{
			Key:      f.Key,
			Unit:     f.Unit,
			Label:    f.LabelKo,
			Required: required[f.Key],
			Min:      f.Constraints.Min,
			Max:      f.Constraints.Max,
		}
		switch f.Type {
		case "enum":
			// Enums are strings with a closed value set.
			def.Type = listing.TypeString
			def.Enum = f.Constraints.EnumValues
		default:
			def.Type = f.Type
			def.Enum = f.Constraints.EnumValues
		}
		defs = append(defs, def)
		delete(required, f.Key)
	}
	if len(required) > 0 {
		missing := make([]string, 0, len(required))
		for k := range required {
			missing = append(missing, k)
		}
		sort.Strings(missing)
		return nil, nil, errors.Newf(errors.CodeSpecBundleInvalid, "mvp_required_fields not declared in fields: %v", missing)
	}

	vocab, err := listing.NewVocabulary(defs)
	if err != nil {
		return nil, nil, err
	}
	validator, err := listing.NewValidator(vocab)
	if err != nil {
		return nil, nil, err
	}
	return vocab, validator, nil
}

// checkVars verifies that every variable an expression reads is a published
// field name.  A typo in a rule surfaces here, at load time, instead of
// silently evaluating to null on every request.
func checkVars(expr rules.Expr, allowed map[string]bool, where string) error {
	for _, v := range rules.CollectVars(expr) {
		if !allowed[v] {
			return errors.Newf(errors.CodeRuleCondition, "%s references unknown field %q", where, v)
		}
	}
	return nil
}

func ruleID(prefix string, idx int, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return fmt.Sprintf("%s_%d", prefix, idx)
}
