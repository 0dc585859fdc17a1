package synapse

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimiter paces attempts with a token bucket.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows r attempts per second with bursts of up to burst.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(r, burst)}
}

// Wait blocks until an attempt may proceed. It fails when ctx ends first or
// the wait would outlast the ctx deadline.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := rl.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

// Allow reports whether an attempt may proceed now without waiting.
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// Tokens returns the currently available tokens.
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.Tokens()
}
