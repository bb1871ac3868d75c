package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DEVBANK_ADDR", ":9090")
	t.Setenv("DEVBANK_KAFKA_BROKERS", " broker-1:9092, broker-2:9092 ,broker-1:9092,")
	t.Setenv("DEVBANK_FAUCET_DRIP_WINDOW", "30m")
	t.Setenv("DEVBANK_FAUCET_MAX_DRIP", "5000000000")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Minute, cfg.Faucet.DripWindow)
	assert.Equal(t, uint64(5_000_000_000), cfg.Faucet.MaxDrip)
}

func TestFromEnv_BadValuesFallBack(t *testing.T) {
	t.Setenv("DEVBANK_REDIS_POOL_SIZE", "not-a-number")
	t.Setenv("DEVBANK_FAUCET_DRIP_WINDOW", "soon")

	cfg := FromEnv()

	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, time.Duration(0), cfg.Faucet.DripWindow)
}
