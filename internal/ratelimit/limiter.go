package ratelimit

import "context"

// RateLimiter throttles outbound provider calls per named key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}
