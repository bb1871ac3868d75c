// Package ratelimit provides sliding-window drip limiting for the faucet,
// keyed by recipient address.
package ratelimit

import (
	"context"
	"time"
)

// Result reports a rate limit decision.
type Result struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// Store checks and counts drips per key over a sliding window.
type Store interface {
	// Allow records one drip for key if under limit within window, and
	// reports the decision.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
	// Reset clears the counter for a key.
	Reset(ctx context.Context, key string) error
}
