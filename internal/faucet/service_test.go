package faucet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devbank/internal/bank/models"
	"devbank/internal/bank/store"
	"devbank/internal/chain"
	"devbank/internal/faucet/ratelimit"
	"devbank/pkg/domain"
	dErrors "devbank/pkg/domain-errors"
	"devbank/pkg/requestcontext"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Emit(_ context.Context, event models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) all() []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Event, len(p.events))
	copy(out, p.events)
	return out
}

type fixture struct {
	svc    *Service
	ledger *store.InMemoryStore
	clock  *chain.Clock
	events *recordingPublisher
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	ledger := store.NewInMemory()
	clock := chain.New()
	events := &recordingPublisher{}
	svc, err := New(cfg, ledger, clock, ratelimit.NewInMemory(), WithEvents(events))
	require.NoError(t, err)
	return &fixture{svc: svc, ledger: ledger, clock: clock, events: events}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	return requestcontext.WithTime(context.Background(), time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
}

func balanceOf(t *testing.T, ledger *store.InMemoryStore, address domain.Address) domain.Lamports {
	t.Helper()
	var balance domain.Lamports
	err := ledger.View(context.Background(), func(tx store.Tx) error {
		account, err := tx.Account(address)
		if err != nil {
			return err
		}
		balance = account.Balance
		return nil
	})
	require.NoError(t, err)
	return balance
}

func TestRequestAirdrop(t *testing.T) {
	t.Run("creates the account and credits it", func(t *testing.T) {
		fx := newFixture(t, Config{})
		ctx := testContext(t)
		address := domain.NewAddress()

		drip, err := fx.svc.RequestAirdrop(ctx, address, domain.LamportsPerToken)
		require.NoError(t, err)

		assert.Equal(t, address, drip.Address)
		assert.Equal(t, domain.Lamports(domain.LamportsPerToken), drip.Lamports)
		assert.NotEqual(t, domain.Signature{}, drip.Signature)
		assert.Equal(t, fx.clock.Latest().Blockhash, drip.Blockhash)
		assert.Equal(t, domain.Lamports(domain.LamportsPerToken), balanceOf(t, fx.ledger, address))
	})

	t.Run("accumulates onto an existing account", func(t *testing.T) {
		fx := newFixture(t, Config{})
		ctx := testContext(t)
		address := domain.NewAddress()

		_, err := fx.svc.RequestAirdrop(ctx, address, 100)
		require.NoError(t, err)
		_, err = fx.svc.RequestAirdrop(ctx, address, 250)
		require.NoError(t, err)

		assert.Equal(t, domain.Lamports(350), balanceOf(t, fx.ledger, address))
	})

	t.Run("distinct signatures per drip", func(t *testing.T) {
		fx := newFixture(t, Config{})
		ctx := testContext(t)
		address := domain.NewAddress()

		first, err := fx.svc.RequestAirdrop(ctx, address, 1)
		require.NoError(t, err)
		second, err := fx.svc.RequestAirdrop(ctx, address, 1)
		require.NoError(t, err)

		assert.NotEqual(t, first.Signature, second.Signature)
	})

	t.Run("rejects a zero drip", func(t *testing.T) {
		fx := newFixture(t, Config{})

		_, err := fx.svc.RequestAirdrop(testContext(t), domain.NewAddress(), 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	t.Run("rejects a drip above the cap", func(t *testing.T) {
		fx := newFixture(t, Config{MaxDrip: 500})

		_, err := fx.svc.RequestAirdrop(testContext(t), domain.NewAddress(), 501)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAmountTooLarge))
	})

	t.Run("rate limits per address", func(t *testing.T) {
		fx := newFixture(t, Config{DripLimit: 2, DripWindow: time.Hour})
		ctx := testContext(t)
		address := domain.NewAddress()

		for i := 0; i < 2; i++ {
			_, err := fx.svc.RequestAirdrop(ctx, address, 10)
			require.NoError(t, err)
		}
		_, err := fx.svc.RequestAirdrop(ctx, address, 10)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))

		// Other addresses are unaffected.
		_, err = fx.svc.RequestAirdrop(ctx, domain.NewAddress(), 10)
		assert.NoError(t, err)
	})

	t.Run("emits an airdrop event", func(t *testing.T) {
		fx := newFixture(t, Config{})
		address := domain.NewAddress()

		drip, err := fx.svc.RequestAirdrop(testContext(t), address, 42)
		require.NoError(t, err)

		events := fx.events.all()
		require.Len(t, events, 1)
		assert.Equal(t, models.EventAirdrop, events[0].Type)
		assert.Equal(t, address.String(), events[0].Address)
		assert.Equal(t, drip.Signature.String(), events[0].Fields["signature"])
	})

	t.Run("records against the advancing slot", func(t *testing.T) {
		fx := newFixture(t, Config{})
		ctx := testContext(t)

		fx.clock.Advance(10)
		drip, err := fx.svc.RequestAirdrop(ctx, domain.NewAddress(), 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), drip.Slot)
	})

	t.Run("does not touch the bank ledger", func(t *testing.T) {
		fx := newFixture(t, Config{})

		_, err := fx.svc.RequestAirdrop(testContext(t), domain.NewAddress(), 1000)
		require.NoError(t, err)

		err = fx.ledger.View(context.Background(), func(tx store.Tx) error {
			_, err := tx.Bank()
			return err
		})
		assert.Error(t, err)
	})
}

func TestRecentDrips(t *testing.T) {
	fx := newFixture(t, Config{DripLimit: recentDripCap * 2})
	ctx := testContext(t)
	address := domain.NewAddress()

	for i := 0; i < recentDripCap+5; i++ {
		_, err := fx.svc.RequestAirdrop(ctx, address, domain.Lamports(i+1))
		require.NoError(t, err)
	}

	recent := fx.svc.RecentDrips()
	require.Len(t, recent, recentDripCap)
	assert.Equal(t, domain.Lamports(recentDripCap+5), recent[0].Lamports)
}
