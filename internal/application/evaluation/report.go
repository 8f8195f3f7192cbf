// Package evaluation orchestrates a full listing evaluation: validation,
// benchmark matching, metric derivation, scoring, risk and trade-off rules,
// what-if scenarios, and report template rendering.
package evaluation

import (
	"fmt"
	"math"
	"strings"

	"github.com/sumaiwise/sumaiwise/pkg/types/rental"
)

// Report is the full evaluation result returned to clients.
type Report struct {
	ReportID    string        `json:"report_id"`
	SpecVersion string        `json:"spec_version"`
	Derived     rental.Record `json:"derived"`
	Scoring     Scores        `json:"scoring"`
	Grades      Grades        `json:"grades"`
	Report      Narrative     `json:"report"`
}

// Scores are the component and overall scores on a 0-100 scale.
type Scores struct {
	LocationScore  float64 `json:"location_score"`
	ConditionScore float64 `json:"condition_score"`
	CostScore      float64 `json:"cost_score"`
	OverallScore   float64 `json:"overall_score"`
}

// Grades are the letter grades for each component and overall.
type Grades struct {
	LocationGrade  string `json:"location_grade"`
	ConditionGrade string `json:"condition_grade"`
	CostGrade      string `json:"cost_grade"`
	OverallGrade   string `json:"overall_grade"`
}

// Narrative is the rendered, human-readable part of the report.
type Narrative struct {
	SummaryKo              string        `json:"summary_ko"`
	EvidenceBulletsKo      []string      `json:"evidence_bullets_ko"`
	RiskFlags              []RiskFlag    `json:"risk_flags"`
	NegotiationSuggestions Suggestions   `json:"negotiation_suggestions"`
	AltSearchQueriesJa     []string      `json:"alternative_search_queries_ja"`
	WhatIfResults          []WhatIfResult `json:"what_if_results"`
}

// Suggestions carries negotiation lines per language.
type Suggestions struct {
	Ko []string `json:"ko"`
	Ja []string `json:"ja"`
}

// RiskFlag is one matched risk rule.
type RiskFlag struct {
	RiskFlagID string          `json:"risk_flag_id"`
	Severity   rental.Severity `json:"severity"`
}

// WhatIfResult is the re-scored outcome of one simulated negotiation.
type WhatIfResult struct {
	ID                  string   `json:"id"`
	LabelKo             string   `json:"label_ko"`
	LabelJa             string   `json:"label_ja"`
	InitialCostTotalYen int      `json:"initial_cost_total_yen"`
	InitialMultiple     *float64 `json:"initial_multiple"`
	CostScore           float64  `json:"cost_score"`
	OverallScore        float64  `json:"overall_score"`
	CostGrade           string   `json:"cost_grade"`
	OverallGrade        string   `json:"overall_grade"`
}

func round6(x float64) float64 {
	return math.Round(x*1e6) / 1e6
}

// formatValue renders a record value for template substitution.  Ratios get
// four decimals and scores two, both with trailing zeros stripped, which
// reads naturally in the Korean and Japanese copy.
func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		return t
	case int:
		return fmt.Sprintf("%d", t)
	case int64:
		return fmt.Sprintf("%d", t)
	case float64:
		var s string
		if math.Abs(t) < 2 {
			s = fmt.Sprintf("%.4f", t)
		} else {
			s = fmt.Sprintf("%.2f", t)
		}
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
		if s == "" || s == "-" {
			s = "0"
		}
		return s
	default:
		return fmt.Sprintf("%v", t)
	}
}

// templateValues flattens a record into the pre-formatted string map the
// template renderer consumes.  Nested values (maps, slices) are not
// addressable from templates and are skipped.
func templateValues(rec rental.Record) map[string]string {
	out := make(map[string]string, len(rec))
	for k, v := range rec {
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			continue
		}
		out[k] = formatValue(v)
	}
	return out
}
