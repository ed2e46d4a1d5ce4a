package api

import (
	"net/http"

	"manualqa/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

// RateLimit rejects requests with 429 once the limiter runs out of tokens.
func RateLimit(limiter ratelimiter.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
			})
			return
		}
		c.Next()
	}
}
