package ratelimiter

import (
	"sync"
	"time"
)

// RateLimiter is the interface for rate limiting. Allow reports whether the
// next request may proceed.
type RateLimiter interface {
	Allow() bool
}

// TokenBucket is a token-bucket RateLimiter. The bucket refills at a fixed
// rate and permits bursts up to its capacity. Answer generation is the
// expensive path in this service, so query endpoints sit behind one of these.
type TokenBucket struct {
	mu       sync.Mutex
	rate     float64 // tokens added per second
	capacity float64
	tokens   float64
	lastFill time.Time
}

// NewTokenBucket creates a full bucket that refills at rate tokens per second
// and holds at most capacity tokens.
func NewTokenBucket(rate float64, capacity int) *TokenBucket {
	return &TokenBucket{
		rate:     rate,
		capacity: float64(capacity),
		tokens:   float64(capacity),
		lastFill: time.Now(),
	}
}

// Allow refills the bucket for the elapsed time and consumes one token if
// available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(tb.lastFill); elapsed > 0 {
		tb.tokens += elapsed.Seconds() * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastFill = now
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

var _ RateLimiter = (*TokenBucket)(nil)
