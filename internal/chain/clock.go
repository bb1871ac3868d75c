// Package chain provides the devnet pacing device: a monotonic slot counter
// and a ring of recent blockhashes. It is not a chain — no blocks are
// produced — but it gives the faucet and staking math the two chain facts
// they depend on: a current slot and a fresh block reference.
package chain

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"devbank/pkg/domain"
)

// DefaultSlotInterval matches the devnet target slot time.
const DefaultSlotInterval = 400 * time.Millisecond

// DefaultRecentHashes is how many blockhashes stay valid. A blockhash older
// than the ring is stale.
const DefaultRecentHashes = 150

// Ref is a blockhash together with the slot it was produced at.
type Ref struct {
	Blockhash domain.Blockhash
	Slot      uint64
}

// Clock advances slots and derives a blockhash per slot by hashing the
// previous hash with the slot number. Safe for concurrent use.
type Clock struct {
	mu       sync.RWMutex
	slot     uint64
	recent   []Ref // newest last, capped at capacity
	capacity int
	interval time.Duration
}

// Option configures a Clock.
type Option func(*Clock)

// WithInterval sets the slot duration used by Run.
func WithInterval(interval time.Duration) Option {
	return func(c *Clock) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithCapacity sets how many recent blockhashes remain valid.
func WithCapacity(capacity int) Option {
	return func(c *Clock) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// New creates a clock at slot 0 with a random genesis blockhash.
func New(opts ...Option) *Clock {
	c := &Clock{
		capacity: DefaultRecentHashes,
		interval: DefaultSlotInterval,
	}
	for _, opt := range opts {
		opt(c)
	}

	var genesis domain.Blockhash
	if _, err := rand.Read(genesis[:]); err != nil {
		panic(fmt.Sprintf("read genesis blockhash bytes: %v", err))
	}
	c.recent = append(c.recent, Ref{Blockhash: genesis, Slot: 0})
	return c
}

// Run advances the clock on its slot interval until ctx is cancelled.
func (c *Clock) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Advance(1)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Advance moves the clock forward n slots, deriving a blockhash for each.
// Exported so tests can drive slot time without waiting on the ticker.
func (c *Clock) Advance(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for range n {
		c.slot++
		prev := c.recent[len(c.recent)-1].Blockhash
		c.recent = append(c.recent, Ref{Blockhash: deriveHash(prev, c.slot), Slot: c.slot})
		if len(c.recent) > c.capacity {
			c.recent = c.recent[len(c.recent)-c.capacity:]
		}
	}
}

// CurrentSlot returns the current slot number.
func (c *Clock) CurrentSlot() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slot
}

// Latest returns the most recent blockhash and its slot.
func (c *Clock) Latest() Ref {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recent[len(c.recent)-1]
}

// IsRecent reports whether the blockhash is still within the valid window.
func (c *Clock) IsRecent(hash domain.Blockhash) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.recent) - 1; i >= 0; i-- {
		if c.recent[i].Blockhash == hash {
			return true
		}
	}
	return false
}

func deriveHash(prev domain.Blockhash, slot uint64) domain.Blockhash {
	var buf [domain.BlockhashLen + 8]byte
	copy(buf[:], prev[:])
	binary.LittleEndian.PutUint64(buf[domain.BlockhashLen:], slot)
	return blake2b.Sum256(buf[:])
}
