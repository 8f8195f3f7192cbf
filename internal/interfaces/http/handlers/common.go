// Package handlers contains the gin HTTP handlers for the evaluation API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes the error envelope with an explicit status and code.
func writeError(c *gin.Context, status int, code errors.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:    code.String(),
		Message: message,
	})
}

// writeAppError maps an application error onto HTTP via its error code.  The
// code is always surfaced so clients can tell an input problem from a spec
// deployment problem, but 5xx messages are masked: authoring errors carry
// spec internals that do not belong on the wire.
func writeAppError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	message := err.Error()
	switch {
	case status == http.StatusServiceUnavailable:
		message = "service temporarily unavailable"
	case status >= http.StatusInternalServerError:
		message = "internal server error"
	}
	writeError(c, status, code, message)
}
