package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails until healed.
type flakyStore struct {
	inner   Store
	healthy bool
	calls   int
}

func (s *flakyStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	s.calls++
	if !s.healthy {
		return nil, errors.New("connection refused")
	}
	return s.inner.Allow(ctx, key, limit, window)
}

func (s *flakyStore) Reset(ctx context.Context, key string) error {
	if !s.healthy {
		return errors.New("connection refused")
	}
	return s.inner.Reset(ctx, key)
}

func TestFallbackStore(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	t.Run("healthy primary is used", func(t *testing.T) {
		primary := &flakyStore{inner: NewInMemory(), healthy: true}
		fs := NewFallback(primary, logger)

		result, err := fs.Allow(ctx, "addr", 5, time.Hour)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 1, primary.calls)
	})

	t.Run("primary failures still limit via fallback", func(t *testing.T) {
		primary := &flakyStore{inner: NewInMemory()}
		fs := NewFallback(primary, logger)

		// Limit of 2: the fallback must enforce it while the primary is down.
		for i := 0; i < 2; i++ {
			result, err := fs.Allow(ctx, "addr", 2, time.Hour)
			require.NoError(t, err)
			assert.True(t, result.Allowed)
		}
		result, err := fs.Allow(ctx, "addr", 2, time.Hour)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
	})

	t.Run("circuit opens and later recovers", func(t *testing.T) {
		primary := &flakyStore{inner: NewInMemory()}
		fs := NewFallback(primary, logger)

		for i := 0; i < 3; i++ {
			_, err := fs.Allow(ctx, "addr", 100, time.Hour)
			require.NoError(t, err)
		}
		require.True(t, fs.breaker.IsOpen())

		// While open, the primary is only probed, not trusted.
		primary.healthy = true
		_, err := fs.Allow(ctx, "addr", 100, time.Hour)
		require.NoError(t, err)
		_, err = fs.Allow(ctx, "addr", 100, time.Hour)
		require.NoError(t, err)
		assert.False(t, fs.breaker.IsOpen())
	})
}
