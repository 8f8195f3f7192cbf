// Package middleware provides the gin middleware stack for the HTTP API:
// request identification, request logging, metrics, CORS, and rate limiting.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID is the header carrying the request correlation ID.
const HeaderRequestID = "X-Request-ID"

const contextKeyRequestID = "request_id"

// RequestID attaches a correlation ID to every request.  An inbound
// X-Request-ID header is honored so that IDs survive proxy hops; otherwise a
// fresh UUID is generated.  The ID is echoed back on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextKeyRequestID, id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID returns the correlation ID for the current request, or "" if
// the RequestID middleware is not installed.
func GetRequestID(c *gin.Context) string {
	return c.GetString(contextKeyRequestID)
}
