// Package rules implements the data-driven rule engine at the heart of the
// evaluation service: a small typed expression language parsed once from
// JSON-encoded logic trees, priority-ordered rule sets with single- and
// multi-select resolution, and narrative templates with strict placeholder
// validation.
//
// Rule data is authored as JSON (see internal/specstore); this package turns
// it into strongly-typed in-memory trees at load time so that a typo in a
// spec file is caught at startup, not at the random moment a real input
// happens to trigger it.  Evaluation itself is pure and never fails.
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sumaiwise/sumaiwise/pkg/errors"
	"github.com/sumaiwise/sumaiwise/pkg/types/rental"
)

// Expr is a parsed expression node.  Eval interprets the node against a
// record and is total: a well-formed expression never raises, missing fields
// resolve to nil, and nil propagates through arithmetic as nil.
type Expr interface {
	// Eval returns the value of the expression for the given record.
	// Evaluation is pure: it never mutates the record and yields identical
	// results for identical inputs.
	Eval(rec rental.Record) interface{}

	// appendVars accumulates the field names referenced by the expression.
	appendVars(dst []string) []string
}

// CollectVars returns every field name referenced by the expression, in
// first-appearance order.  The spec loader uses this to enforce the closed
// field vocabulary.
func CollectVars(e Expr) []string {
	var out []string
	seen := map[string]bool{}
	for _, v := range e.appendVars(nil) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Truthy maps an expression value to its boolean interpretation: nil is
// false, numbers are true unless zero, strings are true unless empty, and
// lists are true unless empty.
func Truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	}
	if f, ok := rental.AsNumber(v); ok {
		return f != 0
	}
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// Node types
// ─────────────────────────────────────────────────────────────────────────────

type literalExpr struct {
	value interface{}
}

func (e literalExpr) Eval(rental.Record) interface{}   { return e.value }
func (e literalExpr) appendVars(dst []string) []string { return dst }

type listExpr struct {
	elems []Expr
}

func (e listExpr) Eval(rec rental.Record) interface{} {
	out := make([]interface{}, len(e.elems))
	for i, el := range e.elems {
		out[i] = el.Eval(rec)
	}
	return out
}

func (e listExpr) appendVars(dst []string) []string {
	for _, el := range e.elems {
		dst = el.appendVars(dst)
	}
	return dst
}

type varExpr struct {
	key        string
	def        interface{}
	hasDefault bool
}

func (e varExpr) Eval(rec rental.Record) interface{} {
	if v, ok := rec[e.key]; ok {
		return v
	}
	if e.hasDefault {
		return e.def
	}
	return nil
}

func (e varExpr) appendVars(dst []string) []string { return append(dst, e.key) }

type definedExpr struct {
	key string
}

func (e definedExpr) Eval(rec rental.Record) interface{} {
	v, ok := rec[e.key]
	return ok && v != nil
}

func (e definedExpr) appendVars(dst []string) []string { return append(dst, e.key) }

type boolExpr struct {
	conjunctive bool // true for and/all, false for or/any
	args        []Expr
}

// Eval preserves JSONLogic value semantics with strict left-to-right
// short-circuiting: "and" returns the first falsy child value (or the last
// truthy one), "or" returns the first truthy child value (or the last falsy
// one).  Rule authors rely on the evaluation order for guard patterns, so
// children must never be reordered.
func (e boolExpr) Eval(rec rental.Record) interface{} {
	var last interface{} = e.conjunctive
	for _, a := range e.args {
		last = a.Eval(rec)
		if Truthy(last) != e.conjunctive {
			return last
		}
	}
	return last
}

func (e boolExpr) appendVars(dst []string) []string {
	for _, a := range e.args {
		dst = a.appendVars(dst)
	}
	return dst
}

type notExpr struct {
	arg Expr
}

func (e notExpr) Eval(rec rental.Record) interface{} { return !Truthy(e.arg.Eval(rec)) }
func (e notExpr) appendVars(dst []string) []string   { return e.arg.appendVars(dst) }

type compareExpr struct {
	op          string
	left, right Expr
}

func (e compareExpr) Eval(rec rental.Record) interface{} {
	l := e.left.Eval(rec)
	r := e.right.Eval(rec)

	switch e.op {
	case "==":
		return looseEqual(l, r)
	case "!=":
		return !looseEqual(l, r)
	}

	// Ordering comparisons treat nil and type mismatches as non-comparable:
	// the result is false, never a panic.
	lf, lok := rental.AsNumber(l)
	rf, rok := rental.AsNumber(r)
	if lok && rok {
		switch e.op {
		case ">":
			return lf > rf
		case ">=":
			return lf >= rf
		case "<":
			return lf < rf
		case "<=":
			return lf <= rf
		}
	}
	ls, lsok := l.(string)
	rs, rsok := r.(string)
	if lsok && rsok {
		switch e.op {
		case ">":
			return ls > rs
		case ">=":
			return ls >= rs
		case "<":
			return ls < rs
		case "<=":
			return ls <= rs
		}
	}
	return false
}

func (e compareExpr) appendVars(dst []string) []string {
	return e.right.appendVars(e.left.appendVars(dst))
}

type arithExpr struct {
	op          string
	left, right Expr
}

// Eval propagates nil: arithmetic with a nil or non-numeric operand yields
// nil, and division by zero yields nil rather than an error.
func (e arithExpr) Eval(rec rental.Record) interface{} {
	lf, lok := rental.AsNumber(e.left.Eval(rec))
	rf, rok := rental.AsNumber(e.right.Eval(rec))
	if !lok || !rok {
		return nil
	}
	switch e.op {
	case "+":
		return lf + rf
	case "-":
		return lf - rf
	case "*":
		return lf * rf
	case "/":
		if rf == 0 {
			return nil
		}
		return lf / rf
	}
	return nil
}

func (e arithExpr) appendVars(dst []string) []string {
	return e.right.appendVars(e.left.appendVars(dst))
}

type inExpr struct {
	needle, haystack Expr
}

func (e inExpr) Eval(rec rental.Record) interface{} {
	needle := e.needle.Eval(rec)
	haystack := e.haystack.Eval(rec)
	switch h := haystack.(type) {
	case nil:
		return false
	case []interface{}:
		for _, el := range h {
			if looseEqual(needle, el) {
				return true
			}
		}
		return false
	case string:
		return strings.Contains(h, valueString(needle))
	}
	return false
}

func (e inExpr) appendVars(dst []string) []string {
	return e.haystack.appendVars(e.needle.appendVars(dst))
}

// looseEqual compares two record values: numerics compare by value across
// int/float representations, strings and bools compare directly, nil equals
// only nil, and mixed types are never equal.
func looseEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := rental.AsNumber(a); aok {
		bf, bok := rental.AsNumber(b)
		return bok && af == bf
	}
	if as, ok := a.(string); ok {
		bs, bok := b.(string)
		return bok && as == bs
	}
	if ab, ok := a.(bool); ok {
		bb, bok := b.(bool)
		return bok && ab == bb
	}
	return false
}

// valueString renders a value for substring matching in "in".
func valueString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	}
	if f, ok := rental.AsNumber(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// ─────────────────────────────────────────────────────────────────────────────
// Parsing
// ─────────────────────────────────────────────────────────────────────────────

// ParseExpr converts raw JSON-decoded rule data into a typed expression tree.
// Malformed expressions (unknown operator, wrong arity, non-string variable
// key) fail here — at rule-load time — with a CodeRuleCondition error; they
// never surface during evaluation.
func ParseExpr(raw interface{}) (Expr, error) {
	switch t := raw.(type) {
	case nil:
		return literalExpr{value: nil}, nil
	case bool, string, float64, int, int64:
		return literalExpr{value: t}, nil
	case []interface{}:
		elems := make([]Expr, len(t))
		for i, el := range t {
			parsed, err := ParseExpr(el)
			if err != nil {
				return nil, err
			}
			elems[i] = parsed
		}
		return listExpr{elems: elems}, nil
	case map[string]interface{}:
		if len(t) != 1 {
			return nil, errors.Newf(errors.CodeRuleCondition,
				"expression object must have exactly 1 key, got %d", len(t))
		}
		for op, args := range t {
			return parseOp(op, args)
		}
	}
	return nil, errors.Newf(errors.CodeRuleCondition, "unsupported expression type %T", raw)
}

func parseOp(op string, rawArgs interface{}) (Expr, error) {
	switch op {
	case "var":
		return parseVar(rawArgs)
	case "defined":
		key, err := singleStringArg(op, rawArgs)
		if err != nil {
			return nil, err
		}
		return definedExpr{key: key}, nil
	case "and", "all", "or", "any":
		args, err := argList(op, rawArgs, 1, -1)
		if err != nil {
			return nil, err
		}
		return boolExpr{conjunctive: op == "and" || op == "all", args: args}, nil
	case "not":
		args, err := argList(op, rawArgs, 1, 1)
		if err != nil {
			return nil, err
		}
		return notExpr{arg: args[0]}, nil
	case "in":
		args, err := argList(op, rawArgs, 2, 2)
		if err != nil {
			return nil, err
		}
		return inExpr{needle: args[0], haystack: args[1]}, nil
	case "==", "!=", ">", ">=", "<", "<=":
		args, err := argList(op, rawArgs, 2, 2)
		if err != nil {
			return nil, err
		}
		return compareExpr{op: op, left: args[0], right: args[1]}, nil
	case "+", "-", "*", "/":
		args, err := argList(op, rawArgs, 2, 2)
		if err != nil {
			return nil, err
		}
		return arithExpr{op: op, left: args[0], right: args[1]}, nil
	}
	return nil, errors.Newf(errors.CodeRuleCondition, "unsupported operator %q", op)
}

func parseVar(rawArgs interface{}) (Expr, error) {
	switch a := rawArgs.(type) {
	case string:
		return varExpr{key: a}, nil
	case []interface{}:
		if len(a) == 0 || len(a) > 2 {
			return nil, errors.Newf(errors.CodeRuleCondition,
				"\"var\" expects [key] or [key, default], got %d args", len(a))
		}
		key, ok := a[0].(string)
		if !ok {
			return nil, errors.Newf(errors.CodeRuleCondition,
				"\"var\" key must be a string, got %T", a[0])
		}
		if len(a) == 2 {
			return varExpr{key: key, def: a[1], hasDefault: true}, nil
		}
		return varExpr{key: key}, nil
	}
	return nil, errors.Newf(errors.CodeRuleCondition, "unsupported \"var\" argument %T", rawArgs)
}

func singleStringArg(op string, rawArgs interface{}) (string, error) {
	switch a := rawArgs.(type) {
	case string:
		return a, nil
	case []interface{}:
		if len(a) == 1 {
			if s, ok := a[0].(string); ok {
				return s, nil
			}
		}
	}
	return "", errors.Newf(errors.CodeRuleCondition, "%q expects a single field name", op)
}

// argList normalizes operator arguments to a parsed slice, enforcing arity.
// max < 0 means unbounded.
func argList(op string, rawArgs interface{}, min, max int) ([]Expr, error) {
	var raw []interface{}
	if l, ok := rawArgs.([]interface{}); ok {
		raw = l
	} else {
		raw = []interface{}{rawArgs}
	}
	if len(raw) < min || (max >= 0 && len(raw) > max) {
		if min == max {
			return nil, errors.Newf(errors.CodeRuleCondition, "%q expects %d args, got %d", op, min, len(raw))
		}
		return nil, errors.Newf(errors.CodeRuleCondition, "%q expects at least %d args, got %d", op, min, len(raw))
	}
	out := make([]Expr, len(raw))
	for i, r := range raw {
		parsed, err := ParseExpr(r)
		if err != nil {
			return nil, err
		}
		out[i] = parsed
	}
	return out, nil
}
