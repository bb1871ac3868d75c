package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis sorted set per key, scored by drip
// time. Limits hold across faucet instances sharing the Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a Redis-backed rate limit store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "faucet:drips:"}
}

// Allow implements Store.
func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := time.Now()
	cutoff := now.Add(-window)
	redisKey := s.prefix + key

	// Drop expired entries, then count what remains.
	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", formatScore(cutoff))
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("check drip window: %w", err)
	}

	count := int(countCmd.Val())
	resetAt := now.Add(window)
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		resetAt = time.UnixMilli(int64(oldest[0].Score)).Add(window)
	}

	if count >= limit {
		return &Result{Allowed: false, Remaining: 0, Limit: limit, ResetAt: resetAt}, nil
	}

	// Record this drip. Members carry a nonce so drips in the same
	// millisecond don't collapse into one entry.
	record := s.client.TxPipeline()
	record.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()),
	})
	record.Expire(ctx, redisKey, window)
	if _, err := record.Exec(ctx); err != nil {
		return nil, fmt.Errorf("record drip: %w", err)
	}

	return &Result{
		Allowed:   true,
		Remaining: limit - count - 1,
		Limit:     limit,
		ResetAt:   resetAt,
	}, nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("reset drip window: %w", err)
	}
	return nil
}

func formatScore(t time.Time) string {
	return fmt.Sprintf("%d", t.UnixMilli())
}
