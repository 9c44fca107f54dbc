package limiter

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// RateLimiter
// Paces outgoing requests to the origin during precache.
// Responsibilities:
// - Block the caller until the next request may be issued
// - Give up as soon as the caller's context is done
type RateLimiter interface {
	Wait(ctx context.Context) error
	Limit() float64
}

// TokenBucketLimiter is a RateLimiter safe for concurrent use.
type TokenBucketLimiter struct {
	limiter *rate.Limiter
}

// NewTokenBucketLimiter allows perSecond requests per second with the given burst.
// A non-positive perSecond means no pacing at all.
func NewTokenBucketLimiter(perSecond float64, burst int) *TokenBucketLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &TokenBucketLimiter{
		limiter: rate.NewLimiter(limit, burst),
	}
}

func Unlimited() *TokenBucketLimiter {
	return NewTokenBucketLimiter(0, 1)
}

func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Limit returns the configured requests per second, +Inf when unpaced.
func (l *TokenBucketLimiter) Limit() float64 {
	if l.limiter.Limit() == rate.Inf {
		return math.Inf(1)
	}
	return float64(l.limiter.Limit())
}
