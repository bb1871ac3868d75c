package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bankhandler "devbank/internal/bank/handler"
	bankservice "devbank/internal/bank/service"
	"devbank/internal/bank/store"
	"devbank/internal/chain"
	"devbank/internal/faucet"
	faucethandler "devbank/internal/faucet/handler"
	"devbank/internal/faucet/ratelimit"
	jwttoken "devbank/internal/jwt_token"
	"devbank/internal/platform/metrics"
	"devbank/pkg/domain"
)

type apiFixture struct {
	handler  http.Handler
	jwt      *jwttoken.JWTService
	operator domain.Address
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	ledger := store.NewInMemory()
	clock := chain.New()

	bankSvc, err := bankservice.New(ledger, clock, bankservice.WithLogger(logger))
	require.NoError(t, err)
	faucetSvc, err := faucet.New(faucet.Config{}, ledger, clock, ratelimit.NewInMemory(), faucet.WithLogger(logger))
	require.NoError(t, err)

	jwtSvc := jwttoken.NewJWTService("router-test-key", "devbank", "devbank-admin")
	handler := NewRouter(Deps{
		Logger:            logger,
		Metrics:           metrics.NewWith(prometheus.NewRegistry()),
		Bank:              bankhandler.New(bankSvc, logger),
		Faucet:            faucethandler.New(faucetSvc, clock, logger),
		OperatorValidator: jwttoken.NewJWTServiceAdapter(jwtSvc),
		Health: map[string]HealthChecker{
			"store": func(context.Context) error { return nil },
		},
	})

	return &apiFixture{handler: handler, jwt: jwtSvc, operator: domain.NewAddress()}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) operatorToken(t *testing.T) string {
	t.Helper()
	token, err := f.jwt.GenerateOperatorToken(f.operator, time.Hour)
	require.NoError(t, err)
	return token
}

func TestRouterHealthz(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouterMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterAdminGate(t *testing.T) {
	f := newAPIFixture(t)
	body := map[string]any{"admin": f.operator.String()}

	t.Run("rejects without a token", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/bank", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a forged token", func(t *testing.T) {
		other := jwttoken.NewJWTService("some-other-key", "devbank", "devbank-admin")
		token, err := other.GenerateOperatorToken(f.operator, time.Hour)
		require.NoError(t, err)

		w := f.do(t, http.MethodPost, "/v1/bank", token, body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("accepts the operator token", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/bank", f.operatorToken(t), body)
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})
}

func TestRouterEndToEndFlow(t *testing.T) {
	f := newAPIFixture(t)
	token := f.operatorToken(t)

	w := f.do(t, http.MethodPost, "/v1/bank", token, map[string]any{"admin": f.operator.String()})
	require.Equal(t, http.StatusCreated, w.Code)

	// Faucet funds a fresh keypair without any account setup.
	user := domain.NewAddress()
	w = f.do(t, http.MethodPost, "/v1/airdrop", "", map[string]any{
		"address":  user.String(),
		"lamports": domain.LamportsPerToken,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, fmt.Sprintf("/v1/accounts/%s/balance", user), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var account struct {
		Balance uint64 `json:"balance"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&account))
	assert.Equal(t, uint64(domain.LamportsPerToken), account.Balance)

	// Operator-gated routes stay gated inside /v1.
	w = f.do(t, http.MethodPost, "/v1/bank/fund", "", map[string]any{"lamports": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
