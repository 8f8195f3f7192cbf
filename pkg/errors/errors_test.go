package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(CodeRuleCondition, "unknown operator")
	require.NotNil(t, err)
	assert.Equal(t, CodeRuleCondition, err.Code)
	assert.Equal(t, `[RULE_001] unknown operator`, err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestErrorWithDetail(t *testing.T) {
	err := New(CodeTemplateUnresolvedToken, "unresolved token").WithDetail("token={rent_delta_ratio}")
	assert.Equal(t, `[TPL_001] unresolved token: token={rent_delta_ratio}`, err.Error())
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("read failed")
	err := Wrap(cause, CodeSpecBundleInvalid, "failed to load spec bundle")
	require.NotNil(t, err)
	assert.Equal(t, CodeSpecBundleInvalid, err.Code)
	assert.True(t, errors.Is(err, cause))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "should not happen"))
}

func TestWrapPreservesCodeForUnknown(t *testing.T) {
	inner := New(CodeMissingFallback, "tradeoff rule set has no fallback")
	outer := Wrap(inner, CodeUnknown, "spec load failed")
	assert.Equal(t, CodeMissingFallback, outer.Code)
}

func TestIsCode(t *testing.T) {
	inner := New(CodeInputUnknownField, "unknown input key")
	wrapped := fmt.Errorf("handler: %w", inner)
	assert.True(t, IsCode(wrapped, CodeInputUnknownField))
	assert.False(t, IsCode(wrapped, CodeInternal))
	assert.False(t, IsCode(nil, CodeInternal))
}

func TestIsAuthoring(t *testing.T) {
	assert.True(t, IsAuthoring(New(CodeRuleCondition, "bad expr")))
	assert.True(t, IsAuthoring(New(CodeMissingFallback, "no fallback")))
	assert.True(t, IsAuthoring(New(CodeTemplateUnresolvedToken, "bad token")))
	assert.False(t, IsAuthoring(New(CodeInputInvalid, "bad input")))
	assert.False(t, IsAuthoring(nil))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(InvalidParam("rent_yen must be an integer")))
	assert.True(t, IsValidation(New(CodeInputMissingField, "missing rent_yen")))
	assert.False(t, IsValidation(New(CodeInternal, "boom")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, CodeUnknown, GetCode(fmt.Errorf("plain")))
	assert.Equal(t, CodeNotFound, GetCode(NotFound("no such bundle")))
}

func TestHTTPStatusForCode(t *testing.T) {
	assert.Equal(t, 400, HTTPStatusForCode(CodeInputInvalid))
	assert.Equal(t, 500, HTTPStatusForCode(CodeTemplateUnresolvedToken))
	assert.Equal(t, 500, HTTPStatusForCode(ErrorCode("NOPE_999")))
	assert.True(t, IsClientError(CodeInputUnknownField))
	assert.True(t, IsServerError(CodeMissingFallback))
}
