package specstore

import (
	"encoding/json"

	"github.com/sumaiwise/sumaiwise/internal/domain/rules"
	"github.com/sumaiwise/sumaiwise/pkg/errors"
	"github.com/sumaiwise/sumaiwise/pkg/types/rental"
)

// OutputTemplateID is the rule output key that carries the selected
// template's identifier.
const OutputTemplateID = "template_id"

// ReportTemplate is the renderable content of one C1 rule.  Every string may
// carry {field} tokens drawn from the published field namespace.
type ReportTemplate struct {
	ID                string   `json:"id"`
	SummaryKo         string   `json:"summary_ko"`
	EvidenceBulletsKo []string `json:"evidence_bullets_ko"`
	NegotiationKo     []string `json:"negotiation_suggestions_ko"`
	NegotiationJa     []string `json:"negotiation_suggestions_ja"`
	AltQueriesJa      []string `json:"alternative_search_queries_ja"`
}

// ReportSpec is the compiled C1 section: a single-select rule set choosing
// exactly one template per evaluation.
type ReportSpec struct {
	Rules     *rules.Set
	Templates map[string]ReportTemplate
}

// TemplateFor returns the template selected for a record.  Selection is
// total by construction, so the second return is false only if the bundle
// was built by hand without Compile.
func (r *ReportSpec) TemplateFor(rec rental.Record) (ReportTemplate, bool) {
	selected := r.Rules.ResolveOne(rec)
	id, _ := selected.Output[OutputTemplateID].(string)
	tpl, ok := r.Templates[id]
	return tpl, ok
}

type rawC1 struct {
	Rules []rawTemplateRule `json:"rules"`
}

type rawTemplateRule struct {
	ID                string      `json:"id"`
	Priority          int         `json:"priority"`
	When              interface{} `json:"when"`
	SummaryKo         string      `json:"summary_ko"`
	EvidenceBulletsKo []string    `json:"evidence_bullets_ko"`
	NegotiationKo     []string    `json:"negotiation_suggestions_ko"`
	NegotiationJa     []string    `json:"negotiation_suggestions_ja"`
	AltQueriesJa      []string    `json:"alternative_search_queries_ja"`
}

func compileC1(data json.RawMessage, allowed map[string]bool) (*ReportSpec, error) {
	var c1 rawC1
	if err := json.Unmarshal(data, &c1); err != nil {
		return nil, errors.Wrap(err, errors.CodeSpecBundleInvalid, "parse C1 section")
	}
	if len(c1.Rules) == 0 {
		return nil, errors.New(errors.CodeSpecBundleInvalid, "C1 declares no template rules")
	}

	compiled := make([]rules.Rule, 0, len(c1.Rules))
	templates := make(map[string]ReportTemplate, len(c1.Rules))
	for i, r := range c1.Rules {
		id := ruleID("template", i, r.ID)
		if _, dup := templates[id]; dup {
			return nil, errors.Newf(errors.CodeSpecBundleInvalid, "duplicate template id %q", id)
		}
		if r.When == nil {
			return nil, errors.Newf(errors.CodeRuleCondition, "template rule %s has no condition", id)
		}
		cond, err := rules.ParseExpr(r.When)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeRuleCondition, "template rule %s", id)
		}
		if err := checkVars(cond, allowed, "template rule "+id); err != nil {
			return nil, err
		}

		tpl := ReportTemplate{
			ID:                id,
			SummaryKo:         r.SummaryKo,
			EvidenceBulletsKo: r.EvidenceBulletsKo,
			NegotiationKo:     r.NegotiationKo,
			NegotiationJa:     r.NegotiationJa,
			AltQueriesJa:      r.AltQueriesJa,
		}
		if err := validateTemplateTokens(tpl, allowed); err != nil {
			return nil, err
		}

		templates[id] = tpl
		compiled = append(compiled, rules.Rule{
			ID:        id,
			Priority:  r.Priority,
			Condition: cond,
			Output:    map[string]interface{}{OutputTemplateID: id},
		})
	}

	set, err := rules.NewSet("report_templates", rules.SingleSelect, compiled)
	if err != nil {
		return nil, err
	}
	return &ReportSpec{Rules: set, Templates: templates}, nil
}

func validateTemplateTokens(tpl ReportTemplate, allowed map[string]bool) error {
	check := func(text string) error {
		if err := rules.ValidateTokens(text, allowed); err != nil {
			return errors.Wrapf(err, errors.CodeTemplateInvalid, "template %s", tpl.ID)
		}
		return nil
	}
	if err := check(tpl.SummaryKo); err != nil {
		return err
	}
	for _, group := range [][]string{tpl.EvidenceBulletsKo, tpl.NegotiationKo, tpl.NegotiationJa, tpl.AltQueriesJa} {
		for _, text := range group {
			if err := check(text); err != nil {
				return err
			}
		}
	}
	return nil
}
