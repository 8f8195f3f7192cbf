package rules

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumaiwise/sumaiwise/pkg/errors"
	"github.com/sumaiwise/sumaiwise/pkg/types/rental"
)

// mustParse decodes a JSON expression literal and parses it, failing the test
// on any error.  Using JSON keeps tests in the same shape as real rule data.
func mustParse(t *testing.T, src string) Expr {
	t.Helper()
	var raw interface{}
	require.NoError(t, json.Unmarshal([]byte(src), &raw))
	e, err := ParseExpr(raw)
	require.NoError(t, err)
	return e
}

func TestLiteralExpressions(t *testing.T) {
	rec := rental.Record{}
	assert.Equal(t, true, mustParse(t, `true`).Eval(rec))
	assert.Equal(t, float64(42), mustParse(t, `42`).Eval(rec))
	assert.Equal(t, "1LDK", mustParse(t, `"1LDK"`).Eval(rec))
	assert.Nil(t, mustParse(t, `null`).Eval(rec))
}

func TestVarLookup(t *testing.T) {
	rec := rental.Record{"rent_yen": 98000, "layout_type": "1LDK"}
	assert.Equal(t, 98000, mustParse(t, `{"var":"rent_yen"}`).Eval(rec))
	assert.Equal(t, "1LDK", mustParse(t, `{"var":["layout_type"]}`).Eval(rec))
}

func TestVarMissingResolvesToNull(t *testing.T) {
	e := mustParse(t, `{"var":"missing_field"}`)
	assert.Nil(t, e.Eval(rental.Record{}))
	assert.Nil(t, e.Eval(rental.Record{"other": 1}))
}

func TestVarDefault(t *testing.T) {
	e := mustParse(t, `{"var":["station_walk_min", 10]}`)
	assert.Equal(t, float64(10), e.Eval(rental.Record{}))
	assert.Equal(t, 7, e.Eval(rental.Record{"station_walk_min": 7}))
}

func TestDefined(t *testing.T) {
	e := mustParse(t, `{"defined":"rent_delta_ratio"}`)
	assert.Equal(t, false, e.Eval(rental.Record{}))
	assert.Equal(t, false, e.Eval(rental.Record{"rent_delta_ratio": nil}))
	assert.Equal(t, true, e.Eval(rental.Record{"rent_delta_ratio": 0.11}))
}

func TestComparisons(t *testing.T) {
	rec := rental.Record{"rent_delta_ratio": 0.1158, "layout_type": "1LDK"}
	tests := []struct {
		expr string
		want interface{}
	}{
		{`{">=":[{"var":"rent_delta_ratio"}, 0.10]}`, true},
		{`{">":[{"var":"rent_delta_ratio"}, 0.20]}`, false},
		{`{"<":[{"var":"rent_delta_ratio"}, 0.20]}`, true},
		{`{"<=":[{"var":"rent_delta_ratio"}, 0.1158]}`, true},
		{`{"==":[{"var":"layout_type"}, "1LDK"]}`, true},
		{`{"!=":[{"var":"layout_type"}, "1R"]}`, true},
		{`{"==":[{"var":"layout_type"}, 3]}`, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mustParse(t, tt.expr).Eval(rec), tt.expr)
	}
}

func TestComparisonAgainstNullIsFalse(t *testing.T) {
	rec := rental.Record{"x": nil}
	for _, src := range []string{
		`{">":[{"var":"x"}, 0]}`,
		`{">=":[{"var":"x"}, 0]}`,
		`{"<":[{"var":"x"}, 0]}`,
		`{"<=":[{"var":"missing"}, 0]}`,
	} {
		assert.Equal(t, false, mustParse(t, src).Eval(rec), src)
	}
	// Equality against null is well-defined: null == null only.
	assert.Equal(t, true, mustParse(t, `{"==":[{"var":"x"}, null]}`).Eval(rec))
	assert.Equal(t, false, mustParse(t, `{"==":[{"var":"x"}, 0]}`).Eval(rec))
}

func TestArithmetic(t *testing.T) {
	rec := rental.Record{"rent_yen": 98000, "mgmt_fee_yen": 8000}
	assert.Equal(t, float64(106000), mustParse(t, `{"+":[{"var":"rent_yen"},{"var":"mgmt_fee_yen"}]}`).Eval(rec))
	assert.Equal(t, float64(90000), mustParse(t, `{"-":[{"var":"rent_yen"},{"var":"mgmt_fee_yen"}]}`).Eval(rec))
	assert.Equal(t, float64(12.25), mustParse(t, `{"/":[{"var":"rent_yen"},{"var":"mgmt_fee_yen"}]}`).Eval(rental.Record{"rent_yen": 98, "mgmt_fee_yen": 8}))
}

func TestArithmeticNullPropagation(t *testing.T) {
	rec := rental.Record{"a": 5}
	assert.Nil(t, mustParse(t, `{"+":[{"var":"a"},{"var":"missing"}]}`).Eval(rec))
	assert.Nil(t, mustParse(t, `{"*":[{"var":"missing"}, 2]}`).Eval(rec))
}

func TestDivisionByZeroIsNull(t *testing.T) {
	rec := rental.Record{"total": 360000, "monthly": 0}
	assert.Nil(t, mustParse(t, `{"/":[{"var":"total"},{"var":"monthly"}]}`).Eval(rec))
}

func TestIn(t *testing.T) {
	rec := rental.Record{"benchmark_confidence": "none", "summary": "station walk 12 min"}
	assert.Equal(t, true, mustParse(t, `{"in":[{"var":"benchmark_confidence"}, ["low","none"]]}`).Eval(rec))
	assert.Equal(t, false, mustParse(t, `{"in":[{"var":"benchmark_confidence"}, ["high","mid"]]}`).Eval(rec))
	assert.Equal(t, true, mustParse(t, `{"in":["walk", {"var":"summary"}]}`).Eval(rec))
	assert.Equal(t, false, mustParse(t, `{"in":["x", {"var":"missing"}]}`).Eval(rec))
}

// probeExpr counts its evaluations so tests can observe short-circuiting.
type probeExpr struct {
	calls *int
	value interface{}
}

func (p probeExpr) Eval(rental.Record) interface{}   { *p.calls++; return p.value }
func (p probeExpr) appendVars(dst []string) []string { return dst }

func TestAndShortCircuitsLeftToRight(t *testing.T) {
	calls := 0
	e := boolExpr{conjunctive: true, args: []Expr{
		literalExpr{value: false},
		probeExpr{calls: &calls, value: true},
	}}
	assert.Equal(t, false, e.Eval(rental.Record{}))
	assert.Zero(t, calls, "second child of a false-led \"and\" must never be evaluated")
}

func TestOrShortCircuitsLeftToRight(t *testing.T) {
	calls := 0
	e := boolExpr{conjunctive: false, args: []Expr{
		literalExpr{value: true},
		probeExpr{calls: &calls, value: false},
	}}
	assert.Equal(t, true, e.Eval(rental.Record{}))
	assert.Zero(t, calls, "second child of a true-led \"or\" must never be evaluated")
}

func TestAndGuardPattern(t *testing.T) {
	// Rule authors guard fields that are only meaningful after a prior check;
	// the guard must evaluate first.
	e := mustParse(t, `{"and":[{"defined":"other_initial_fees_yen"},{">":[{"var":"other_initial_fees_yen"}, 50000]}]}`)
	assert.Equal(t, false, Truthy(e.Eval(rental.Record{})))
	assert.Equal(t, true, Truthy(e.Eval(rental.Record{"other_initial_fees_yen": 80000})))
	assert.Equal(t, false, Truthy(e.Eval(rental.Record{"other_initial_fees_yen": 30000})))
}

func TestAndOrValueSemantics(t *testing.T) {
	rec := rental.Record{"a": 1, "b": 0}
	// "and" yields the first falsy value, else the last value.
	assert.Equal(t, 0, mustParse(t, `{"and":[{"var":"a"},{"var":"b"}]}`).Eval(rec))
	assert.Equal(t, 1, mustParse(t, `{"and":[true,{"var":"a"}]}`).Eval(rec))
	// "or" yields the first truthy value, else the last value.
	assert.Equal(t, 1, mustParse(t, `{"or":[{"var":"b"},{"var":"a"}]}`).Eval(rec))
	assert.Equal(t, 0, mustParse(t, `{"or":[false,{"var":"b"}]}`).Eval(rec))
}

func TestNot(t *testing.T) {
	rec := rental.Record{"flag": true}
	assert.Equal(t, false, mustParse(t, `{"not":[{"var":"flag"}]}`).Eval(rec))
	assert.Equal(t, true, mustParse(t, `{"not":[{"var":"missing"}]}`).Eval(rec))
}

func TestEvaluationIsPure(t *testing.T) {
	rec := rental.Record{"rent_delta_ratio": 0.1158, "benchmark_confidence": "high"}
	e := mustParse(t, `{"and":[{">=":[{"var":"rent_delta_ratio"}, 0.10]},{"!=":[{"var":"benchmark_confidence"}, "none"]}]}`)
	first := e.Eval(rec)
	second := e.Eval(rec)
	assert.Equal(t, first, second)
	assert.Equal(t, rental.Record{"rent_delta_ratio": 0.1158, "benchmark_confidence": "high"}, rec,
		"evaluation must not mutate the record")
}

func TestParseRejectsMalformedExpressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown operator", `{"between":[1,2,3]}`},
		{"wrong arity in", `{"in":[1]}`},
		{"wrong arity compare", `{">":[1,2,3]}`},
		{"wrong arity not", `{"not":[1,2]}`},
		{"multi-key object", `{"and":[true], ">":[1,2]}`},
		{"non-string var key", `{"var":[42]}`},
		{"bad defined", `{"defined":[1,2]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw interface{}
			require.NoError(t, json.Unmarshal([]byte(tt.src), &raw))
			_, err := ParseExpr(raw)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeRuleCondition), err.Error())
		})
	}
}

func TestCollectVars(t *testing.T) {
	e := mustParse(t, `{"and":[{">=":[{"var":"rent_delta_ratio"}, 0.10]},{"in":[{"var":"benchmark_confidence"}, ["high","mid"]]},{"defined":"rent_delta_ratio"}]}`)
	assert.Equal(t, []string{"rent_delta_ratio", "benchmark_confidence"}, CollectVars(e))
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(false))
	assert.False(t, Truthy(0))
	assert.False(t, Truthy(float64(0)))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy([]interface{}{}))
	assert.True(t, Truthy(true))
	assert.True(t, Truthy(0.5))
	assert.True(t, Truthy("x"))
	assert.True(t, Truthy([]interface{}{1}))
}
