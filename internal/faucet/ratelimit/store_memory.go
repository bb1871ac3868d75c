package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore implements Store with a per-key sliding window of drip
// timestamps. Single-node only; use RedisStore when multiple faucet
// instances share limits.
type InMemoryStore struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
}

// slidingWindow tracks drip timestamps. The sliding window prevents the
// boundary burst a fixed window would allow.
type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

// NewInMemory creates a new in-memory rate limit store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		windows: make(map[string]*slidingWindow),
	}
}

// Allow implements Store.
func (s *InMemoryStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	sw := s.windows[key]
	if sw == nil {
		sw = &slidingWindow{window: window}
		s.windows[key] = sw
	}
	sw.cleanup(now)

	if len(sw.timestamps) >= limit {
		return &Result{
			Allowed:   false,
			Remaining: 0,
			Limit:     limit,
			ResetAt:   sw.timestamps[0].Add(window),
		}, nil
	}

	sw.timestamps = append(sw.timestamps, now)
	return &Result{
		Allowed:   true,
		Remaining: limit - len(sw.timestamps),
		Limit:     limit,
		ResetAt:   sw.timestamps[0].Add(window),
	}, nil
}

// Reset implements Store.
func (s *InMemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

func (sw *slidingWindow) cleanup(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}
