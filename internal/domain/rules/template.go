package rules

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

// tokenPattern matches {placeholder} tokens in narrative text.  Token names
// are restricted to the same character set as record field names.
var tokenPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Tokens returns the placeholder names appearing in text, deduplicated, in
// first-appearance order.
func Tokens(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range tokenPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// ValidateTokens checks that every placeholder in text appears in the
// allow-list.  An unknown token is an authoring error detected at bundle load
// time, so bad narrative data never reaches a live evaluation.
func ValidateTokens(text string, allowed map[string]bool) error {
	var unknown []string
	for _, tok := range Tokens(text) {
		if !allowed[tok] {
			unknown = append(unknown, tok)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return errors.New(errors.CodeTemplateInvalid, "template references unknown tokens").
			WithDetail(strings.Join(unknown, ", "))
	}
	return nil
}

// Render substitutes every {name} token in text with values[name].
//
// Values are pre-formatted strings: stringification (currency grouping,
// ratio precision, locale) is the caller's concern, not the renderer's.
// A token with no entry in values fails with CodeTemplateUnresolvedToken —
// a hard, loud failure signalling a spec/record mismatch a human must fix,
// never silently blanked or left as the raw {token} string.
func Render(text string, values map[string]string) (string, error) {
	var missing []string
	out := tokenPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[1 : len(match)-1]
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return v
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", errors.New(errors.CodeTemplateUnresolvedToken, "unresolved template tokens").
			WithDetail(strings.Join(missing, ", "))
	}
	return out, nil
}

// RenderAll renders each text in order, failing on the first unresolved
// token.
func RenderAll(texts []string, values map[string]string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		r, err := Render(t, values)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
