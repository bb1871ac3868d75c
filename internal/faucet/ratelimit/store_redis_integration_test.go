//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"devbank/internal/faucet/ratelimit"
	"devbank/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *ratelimit.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = ratelimit.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestAllowUpToLimit() {
	ctx := context.Background()

	for range 3 {
		res, err := s.store.Allow(ctx, "addr-1", 3, time.Minute)
		s.Require().NoError(err)
		s.True(res.Allowed)
	}

	res, err := s.store.Allow(ctx, "addr-1", 3, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Equal(0, res.Remaining)
}

func (s *RedisStoreSuite) TestKeysAreIndependent() {
	ctx := context.Background()

	res, err := s.store.Allow(ctx, "addr-1", 1, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)

	res, err = s.store.Allow(ctx, "addr-2", 1, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RedisStoreSuite) TestWindowSlides() {
	ctx := context.Background()

	res, err := s.store.Allow(ctx, "addr-slide", 1, 100*time.Millisecond)
	s.Require().NoError(err)
	s.True(res.Allowed)

	res, err = s.store.Allow(ctx, "addr-slide", 1, 100*time.Millisecond)
	s.Require().NoError(err)
	s.False(res.Allowed)

	time.Sleep(150 * time.Millisecond)

	res, err = s.store.Allow(ctx, "addr-slide", 1, 100*time.Millisecond)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RedisStoreSuite) TestReset() {
	ctx := context.Background()

	res, err := s.store.Allow(ctx, "addr-reset", 1, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)

	s.Require().NoError(s.store.Reset(ctx, "addr-reset"))

	res, err = s.store.Allow(ctx, "addr-reset", 1, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}
