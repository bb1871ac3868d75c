package client_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bankhandler "devbank/internal/bank/handler"
	"devbank/internal/bank/models"
	bankservice "devbank/internal/bank/service"
	"devbank/internal/bank/store"
	"devbank/internal/chain"
	"devbank/internal/faucet"
	faucethandler "devbank/internal/faucet/handler"
	"devbank/internal/faucet/ratelimit"
	jwttoken "devbank/internal/jwt_token"
	"devbank/internal/platform/metrics"
	httptransport "devbank/internal/transport/http"
	"devbank/pkg/client"
	"devbank/pkg/domain"
	dErrors "devbank/pkg/domain-errors"
)

type serverFixture struct {
	url      string
	clock    *chain.Clock
	jwt      *jwttoken.JWTService
	operator domain.Address
}

func startServer(t *testing.T) *serverFixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	ledger := store.NewInMemory()
	clock := chain.New()

	bankSvc, err := bankservice.New(ledger, clock, bankservice.WithLogger(logger))
	require.NoError(t, err)
	faucetSvc, err := faucet.New(faucet.Config{}, ledger, clock, ratelimit.NewInMemory(), faucet.WithLogger(logger))
	require.NoError(t, err)

	jwtSvc := jwttoken.NewJWTService("client-test-key", "devbank", "devbank-admin")
	handler := httptransport.NewRouter(httptransport.Deps{
		Logger:            logger,
		Metrics:           metrics.NewWith(prometheus.NewRegistry()),
		Bank:              bankhandler.New(bankSvc, logger),
		Faucet:            faucethandler.New(faucetSvc, clock, logger),
		OperatorValidator: jwttoken.NewJWTServiceAdapter(jwtSvc),
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &serverFixture{
		url:      srv.URL,
		clock:    clock,
		jwt:      jwtSvc,
		operator: domain.NewAddress(),
	}
}

func (f *serverFixture) operatorClient(t *testing.T) *client.Client {
	t.Helper()
	token, err := f.jwt.GenerateOperatorToken(f.operator, time.Hour)
	require.NoError(t, err)
	return client.New(f.url, client.WithOperatorToken(token))
}

// TestAirdropFlow walks the devnet bootstrap path: fetch the latest
// blockhash, airdrop to a fresh keypair, and verify the credit actually
// landed.
func TestAirdropFlow(t *testing.T) {
	f := startServer(t)
	c := client.New(f.url)
	ctx := context.Background()

	f.clock.Advance(5)
	ref, err := c.LatestBlockhash(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), ref.Slot)
	assert.True(t, f.clock.IsRecent(ref.Blockhash))

	user := domain.NewAddress()
	drop, err := c.RequestAirdrop(ctx, user, 2*domain.LamportsPerToken)
	require.NoError(t, err)
	assert.NotEqual(t, domain.Signature{}, drop.Signature)
	assert.Equal(t, ref.Blockhash, drop.Blockhash)

	account, err := c.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, uint64(2*domain.LamportsPerToken), account.Balance)

	// The faucet mints lamports; the bank ledger is untouched by drips.
	admin := f.operatorClient(t)
	_, err = admin.InitializeBank(ctx, f.operator)
	require.NoError(t, err)
	bank, err := c.GetBank(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bank.TotalUsers)
	assert.Equal(t, uint64(models.InitialBankBalance), bank.Balance)
}

func TestAirdropFlow_ErrorSurface(t *testing.T) {
	f := startServer(t)
	c := client.New(f.url)
	ctx := context.Background()

	t.Run("unknown account", func(t *testing.T) {
		_, err := c.Balance(ctx, domain.NewAddress())
		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		assert.Equal(t, dErrors.CodeNotFound, apiErr.Code)
	})

	t.Run("oversized drip", func(t *testing.T) {
		_, err := c.RequestAirdrop(ctx, domain.NewAddress(), faucet.DefaultMaxDrip+1)
		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, dErrors.CodeAmountTooLarge, apiErr.Code)
	})

	t.Run("admin endpoint without a token", func(t *testing.T) {
		_, err := c.InitializeBank(ctx, f.operator)
		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})
}

func TestBankingFlow(t *testing.T) {
	f := startServer(t)
	c := client.New(f.url)
	ctx := context.Background()

	admin := f.operatorClient(t)
	_, err := admin.InitializeBank(ctx, f.operator)
	require.NoError(t, err)

	user := domain.NewAddress()
	_, err = c.RequestAirdrop(ctx, user, 2*domain.LamportsPerToken)
	require.NoError(t, err)

	peer := domain.NewAddress()
	_, err = c.CreateAccount(ctx, peer)
	require.NoError(t, err)

	account, err := c.Deposit(ctx, user, domain.LamportsPerToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(3*domain.LamportsPerToken), account.Balance)

	account, err = c.Stake(ctx, user, domain.LamportsPerToken/2)
	require.NoError(t, err)
	assert.Equal(t, uint64(domain.LamportsPerToken/2), account.StakedBalance)

	account, err = c.Borrow(ctx, user, domain.LamportsPerToken/10)
	require.NoError(t, err)
	assert.Equal(t, uint64(domain.LamportsPerToken/10), account.LentBalance)
	require.NotNil(t, account.LoanTime)

	account, err = c.Repay(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, account.LentBalance)

	require.NoError(t, c.Transfer(ctx, user, peer, 1000))
	peerAccount, err := c.Balance(ctx, peer)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), peerAccount.Balance)
}
