package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPMetrics records per-request observations.  Satisfied by the prometheus
// application metrics; defined here so the middleware does not depend on a
// concrete metrics backend.
type HTTPMetrics interface {
	ObserveHTTPRequest(method, route string, status int, elapsed time.Duration)
}

// Metrics records one observation per request, labeled by the matched route
// pattern rather than the raw path so that path parameters do not explode
// label cardinality.
func Metrics(m HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
