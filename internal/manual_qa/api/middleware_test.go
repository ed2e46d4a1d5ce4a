package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"manualqa/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(limiter ratelimiter.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", RateLimit(limiter), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	r := newLimitedRouter(ratelimiter.NewTokenBucket(0, 3))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d, want 200", i, w.Code)
		}
	}
}

func TestRateLimitRejectsBeyondBurst(t *testing.T) {
	r := newLimitedRouter(ratelimiter.NewTokenBucket(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first request: status %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status %d, want 429", w.Code)
	}
}

type allowAll struct{}

func (allowAll) Allow() bool { return true }

func TestRateLimitPassesThrough(t *testing.T) {
	r := newLimitedRouter(allowAll{})
	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
	}
}
