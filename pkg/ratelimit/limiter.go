package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a request may proceed right now
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
}

// TokenBucket is a token bucket shared by every pool worker
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket allows requestsPerSecond sustained with bursts up to burst
func NewTokenBucket(requestsPerSecond float64, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// NewPerInterval allows one request every interval
func NewPerInterval(interval time.Duration, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{limiter: rate.NewLimiter(rate.Every(interval), burst)}
}

func (tb *TokenBucket) Allow() bool {
	return tb.limiter.Allow()
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool { return true }

func (Unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}

// New returns a token bucket for a positive rate and Unlimited otherwise
func New(requestsPerSecond float64, burst int) Limiter {
	if requestsPerSecond <= 0 {
		return Unlimited{}
	}
	return NewTokenBucket(requestsPerSecond, burst)
}
