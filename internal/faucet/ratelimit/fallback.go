package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"devbank/pkg/platform/circuit"
)

// FallbackStore fronts a primary limiter (Redis) with an in-memory fallback.
// Primary failures trip a circuit breaker; while it is open the fallback
// keeps drips bounded instead of failing every airdrop on a store outage.
type FallbackStore struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

// NewFallback wraps primary with an in-memory fallback limiter.
func NewFallback(primary Store, logger *slog.Logger) *FallbackStore {
	return &FallbackStore{
		primary:  primary,
		fallback: NewInMemory(),
		breaker:  circuit.New("faucet-ratelimit", circuit.WithFailureThreshold(3), circuit.WithSuccessThreshold(2)),
		logger:   logger,
	}
}

// Allow consults the primary limiter unless the circuit is open.
func (s *FallbackStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if s.breaker.IsOpen() {
		result, err := s.fallback.Allow(ctx, key, limit, window)
		// Probe the primary so the circuit can close again.
		if _, probeErr := s.primary.Allow(ctx, key, limit, window); probeErr == nil {
			if _, change := s.breaker.RecordSuccess(); change.Closed {
				s.logger.Info("rate limit store recovered", "breaker", s.breaker.Name())
			}
		}
		return result, err
	}

	result, err := s.primary.Allow(ctx, key, limit, window)
	if err != nil {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.Warn("rate limit store failing, switching to in-memory fallback",
				"breaker", s.breaker.Name(),
				"error", err,
			)
		}
		return s.fallback.Allow(ctx, key, limit, window)
	}
	s.breaker.RecordSuccess()
	return result, nil
}

// Reset clears the key in both limiters.
func (s *FallbackStore) Reset(ctx context.Context, key string) error {
	if err := s.fallback.Reset(ctx, key); err != nil {
		return err
	}
	if s.breaker.IsOpen() {
		return nil
	}
	return s.primary.Reset(ctx, key)
}
