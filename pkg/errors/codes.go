package errors

import "net/http"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	CodeInternal           ErrorCode = "COMMON_001"
	CodeBadRequest         ErrorCode = "COMMON_002"
	CodeNotFound           ErrorCode = "COMMON_003"
	CodeTimeout            ErrorCode = "COMMON_004"
	CodeSerialization      ErrorCode = "COMMON_005"
	CodeCacheError         ErrorCode = "COMMON_006"
	CodeExternalService    ErrorCode = "COMMON_007"
	CodeServiceUnavailable ErrorCode = "COMMON_008"

	CodeUnknown ErrorCode = "UNKNOWN"
	CodeOK      ErrorCode = "OK"
)

// Rule engine error codes.  These are authoring errors: they indicate a bad
// spec deployment and are detected at bundle load time, never during a live
// evaluation.
const (
	// CodeRuleCondition marks a malformed rule expression: unknown operator,
	// wrong arity, or a reference to a field outside the published vocabulary.
	CodeRuleCondition ErrorCode = "RULE_001"

	// CodeMissingFallback marks a single-select rule set without the required
	// unconditional fallback rule.
	CodeMissingFallback ErrorCode = "RULE_002"
)

// Template error codes.
const (
	// CodeTemplateUnresolvedToken marks a {placeholder} with no resolvable
	// value.  Raised loudly at render time; never silently blanked.
	CodeTemplateUnresolvedToken ErrorCode = "TPL_001"

	// CodeTemplateInvalid marks a template whose tokens fall outside the
	// allow-list, detected at bundle load time.
	CodeTemplateInvalid ErrorCode = "TPL_002"
)

// Spec bundle error codes.
const (
	CodeSpecBundleNotFound ErrorCode = "SPEC_001"
	CodeSpecBundleInvalid  ErrorCode = "SPEC_002"
)

// Input validation error codes.
const (
	CodeInputInvalid      ErrorCode = "INPUT_001"
	CodeInputUnknownField ErrorCode = "INPUT_002"
	CodeInputMissingField ErrorCode = "INPUT_003"
)

// Benchmark error codes.  Benchmark failures are expected conditions that the
// evaluation pipeline absorbs (confidence degrades to "none"); these codes
// only surface from the index loader at startup.
const (
	CodeBenchmarkIndexUnavailable ErrorCode = "BM_001"
	CodeBenchmarkDataInvalid      ErrorCode = "BM_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	CodeInternal:           http.StatusInternalServerError,
	CodeBadRequest:         http.StatusBadRequest,
	CodeNotFound:           http.StatusNotFound,
	CodeTimeout:            http.StatusGatewayTimeout,
	CodeSerialization:      http.StatusInternalServerError,
	CodeCacheError:         http.StatusInternalServerError,
	CodeExternalService:    http.StatusBadGateway,
	CodeServiceUnavailable: http.StatusServiceUnavailable,

	CodeRuleCondition:   http.StatusInternalServerError,
	CodeMissingFallback: http.StatusInternalServerError,

	CodeTemplateUnresolvedToken: http.StatusInternalServerError,
	CodeTemplateInvalid:         http.StatusInternalServerError,

	CodeSpecBundleNotFound: http.StatusServiceUnavailable,
	CodeSpecBundleInvalid:  http.StatusInternalServerError,

	CodeInputInvalid:      http.StatusBadRequest,
	CodeInputUnknownField: http.StatusBadRequest,
	CodeInputMissingField: http.StatusBadRequest,

	CodeBenchmarkIndexUnavailable: http.StatusServiceUnavailable,
	CodeBenchmarkDataInvalid:      http.StatusInternalServerError,
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}
