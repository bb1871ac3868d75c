// Package config loads runtime configuration from the environment so main
// stays lean. Every knob has a development default; production overrides via
// DEVBANK_* variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "devbank/pkg/platform/strings"
)

// Config is the full runtime configuration.
type Config struct {
	Addr          string
	JWTSigningKey string

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Faucet   FaucetConfig
	Chain    ChainConfig
}

// PostgresConfig configures the ledger database. An empty DSN selects the
// in-memory store.
type PostgresConfig struct {
	DSN string
}

// RedisConfig configures the rate limit backend. An empty URL selects the
// in-memory limiter.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures event publishing. No brokers means events are
// discarded.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FaucetConfig bounds airdrops.
type FaucetConfig struct {
	MaxDrip    uint64
	DripLimit  int
	DripWindow time.Duration
}

// ChainConfig paces the slot clock.
type ChainConfig struct {
	SlotInterval time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:          envString("DEVBANK_ADDR", ":8080"),
		JWTSigningKey: envString("DEVBANK_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Postgres: PostgresConfig{
			DSN: os.Getenv("DEVBANK_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("DEVBANK_REDIS_URL"),
			PoolSize:     envInt("DEVBANK_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("DEVBANK_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("DEVBANK_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("DEVBANK_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("DEVBANK_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: envList("DEVBANK_KAFKA_BROKERS"),
			Topic:   os.Getenv("DEVBANK_KAFKA_TOPIC"),
		},
		Faucet: FaucetConfig{
			MaxDrip:    envUint("DEVBANK_FAUCET_MAX_DRIP", 0),
			DripLimit:  envInt("DEVBANK_FAUCET_DRIP_LIMIT", 0),
			DripWindow: envDuration("DEVBANK_FAUCET_DRIP_WINDOW", 0),
		},
		Chain: ChainConfig{
			SlotInterval: envDuration("DEVBANK_SLOT_INTERVAL", 0),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envUint(key string, fallback uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return platformstrings.DedupeAndTrim(strings.Split(v, ","))
}
