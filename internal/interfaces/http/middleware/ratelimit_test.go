package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketAllowsBurst(t *testing.T) {
	l := NewTokenBucketLimiter(1, 3, 0)

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("client")
		assert.True(t, allowed, "request %d should be within burst", i)
	}
	allowed, info := l.Allow("client")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, 3, info.Limit)
}

func TestTokenBucketKeysAreIndependent(t *testing.T) {
	l := NewTokenBucketLimiter(1, 1, 0)

	allowed, _ := l.Allow("a")
	require.True(t, allowed)
	allowed, _ = l.Allow("a")
	require.False(t, allowed)

	allowed, _ = l.Allow("b")
	assert.True(t, allowed)
}

func TestTokenBucketRefills(t *testing.T) {
	// High rate so the refill happens within the test without sleeping long.
	l := NewTokenBucketLimiter(1000, 1, 0)

	allowed, _ := l.Allow("client")
	require.True(t, allowed)
	allowed, _ = l.Allow("client")
	require.False(t, allowed)

	time.Sleep(5 * time.Millisecond)
	allowed, _ = l.Allow("client")
	assert.True(t, allowed)
}

func rateLimitRouter(limiter RateLimiter, cfg RateLimitConfig) *gin.Engine {
	r := gin.New()
	r.Use(RateLimit(limiter, cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimitRejectsWithEnvelope(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	r := rateLimitRouter(NewTokenBucketLimiter(1, 1, 0), cfg)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestRateLimitSkipsConfiguredPaths(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	r := rateLimitRouter(NewTokenBucketLimiter(1, 1, 0), cfg)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitCustomKeyFunc(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.KeyFunc = func(c *gin.Context) string { return c.GetHeader("X-API-Key") }
	r := rateLimitRouter(NewTokenBucketLimiter(1, 1, 0), cfg)

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("alpha"))
	assert.Equal(t, http.StatusTooManyRequests, send("alpha"))
	assert.Equal(t, http.StatusOK, send("beta"))
}
