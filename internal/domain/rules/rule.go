package rules

import (
	"github.com/sumaiwise/sumaiwise/pkg/errors"
	"github.com/sumaiwise/sumaiwise/pkg/types/rental"
)

// Rule is one entry in a rule set: a parsed condition, a priority, and an
// opaque output payload interpreted by the caller (risk flag metadata,
// trade-off tags, template selection).
type Rule struct {
	ID        string
	Priority  int
	Condition Expr

	// Output carries the rule's payload as decoded JSON.  The resolver never
	// inspects it.
	Output map[string]interface{}
}

// Unconditional reports whether the rule's condition is the literal true,
// i.e. the rule matches every record.  Single-select rule sets use exactly
// one such rule as their fallback.
func (r Rule) Unconditional() bool {
	lit, ok := r.Condition.(literalExpr)
	if !ok {
		return false
	}
	b, ok := lit.value.(bool)
	return ok && b
}

// Matches evaluates the rule's condition against the record.
func (r Rule) Matches(rec rental.Record) bool {
	return Truthy(r.Condition.Eval(rec))
}

// SelectMode controls how a rule set resolves.
type SelectMode int

const (
	// MultiSelect fires every matching rule, in declaration order.  Used for
	// risk flags: a listing can carry any number of simultaneous flags.
	MultiSelect SelectMode = iota

	// SingleSelect fires the one matching rule with the highest priority,
	// ties broken by declaration order.  The set must contain exactly one
	// unconditional fallback so resolution is total.
	SingleSelect
)

// Set is an immutable, validated collection of rules sharing a selection
// mode.  Sets are built once at spec-bundle load time and are read-only for
// the process lifetime.
type Set struct {
	name  string
	mode  SelectMode
	rules []Rule
}

// NewSet validates and constructs a rule set.
//
// For SingleSelect sets the validation enforces the totality contract:
// exactly one unconditional fallback rule must be declared, and its priority
// must be strictly the lowest in the set so it can never shadow a real rule.
// Violations fail fast with CodeMissingFallback.
func NewSet(name string, mode SelectMode, rules []Rule) (*Set, error) {
	if mode == SingleSelect {
		fallbacks := 0
		fallbackPriority := 0
		minConditional := 0
		haveConditional := false
		for _, r := range rules {
			if r.Unconditional() {
				fallbacks++
				fallbackPriority = r.Priority
				continue
			}
			if !haveConditional || r.Priority < minConditional {
				minConditional = r.Priority
				haveConditional = true
			}
		}
		if fallbacks != 1 {
			return nil, errors.Newf(errors.CodeMissingFallback,
				"single-select rule set %q must declare exactly one unconditional fallback, found %d", name, fallbacks)
		}
		if haveConditional && fallbackPriority >= minConditional {
			return nil, errors.Newf(errors.CodeMissingFallback,
				"single-select rule set %q fallback priority %d must be below every conditional rule", name, fallbackPriority)
		}
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return &Set{name: name, mode: mode, rules: out}, nil
}

// Name returns the set's identifier, used in error messages and logs.
func (s *Set) Name() string { return s.name }

// Mode returns the set's selection mode.
func (s *Set) Mode() SelectMode { return s.mode }

// Len returns the number of rules in the set.
func (s *Set) Len() int { return len(s.rules) }

// Rules returns a copy of the declared rules.
func (s *Set) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// ResolveAll returns every rule whose condition holds for the record, in
// declaration order.  Valid for any mode; resolution is read-only.
func (s *Set) ResolveAll(rec rental.Record) []Rule {
	var out []Rule
	for _, r := range s.rules {
		if r.Matches(rec) {
			out = append(out, r)
		}
	}
	return out
}

// ResolveOne returns the single winning rule for the record: the matching
// rule with the highest priority, ties broken by declaration order.  For a
// validated SingleSelect set the result is total — the unconditional
// fallback guarantees some rule always matches.
func (s *Set) ResolveOne(rec rental.Record) Rule {
	var best Rule
	bestSet := false
	for _, r := range s.rules {
		if !r.Matches(rec) {
			continue
		}
		if !bestSet || r.Priority > best.Priority {
			best = r
			bestSet = true
		}
	}
	return best
}
