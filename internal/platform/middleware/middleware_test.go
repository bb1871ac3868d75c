package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "devbank/pkg/domain-errors"
	"devbank/pkg/requestcontext"
)

func TestRequestID(t *testing.T) {
	t.Run("generates an ID", func(t *testing.T) {
		var got string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = requestcontext.RequestID(r.Context())
		}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, got)
		assert.Equal(t, got, w.Header().Get("X-Request-ID"))
	})

	t.Run("honors a caller-supplied ID", func(t *testing.T) {
		var got string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = requestcontext.RequestID(r.Context())
		}))
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", "external-id")
		h.ServeHTTP(httptest.NewRecorder(), r)

		assert.Equal(t, "external-id", got)
	})
}

func TestClientMetadata(t *testing.T) {
	var ip, ua string
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
	}))

	t.Run("x-forwarded-for wins", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Forwarded-For", "10.0.0.1, 192.168.1.1")
		r.Header.Set("User-Agent", "devbank-cli/1.0")
		h.ServeHTTP(httptest.NewRecorder(), r)

		assert.Equal(t, "10.0.0.1", ip)
		assert.Equal(t, "devbank-cli/1.0", ua)
	})

	t.Run("remote addr fallback", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "127.0.0.1:54321"
		h.ServeHTTP(httptest.NewRecorder(), r)

		assert.Equal(t, "127.0.0.1", ip)
	})

	t.Run("browser agents are normalized", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		h.ServeHTTP(httptest.NewRecorder(), r)

		assert.Contains(t, ua, "Chrome")
	})
}

func TestRequestTime(t *testing.T) {
	var got time.Time
	h := RequestTime(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestcontext.Now(r.Context())
	}))
	before := time.Now()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, got.Before(before))
	assert.False(t, got.After(time.Now()))
}

type staticValidator struct {
	claims *OperatorClaims
	err    error
}

func (v staticValidator) ValidateToken(string) (*OperatorClaims, error) {
	return v.claims, v.err
}

func TestRequireOperator(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("valid token sets the operator", func(t *testing.T) {
		var got string
		h := RequireOperator(staticValidator{claims: &OperatorClaims{Operator: "op-addr"}}, logger)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = requestcontext.Operator(r.Context())
			}))
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.Header.Set("Authorization", "Bearer some-token")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "op-addr", got)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		h := RequireOperator(staticValidator{}, logger)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not run")
			}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		h := RequireOperator(staticValidator{err: dErrors.New(dErrors.CodeUnauthorized, "invalid token")}, logger)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not run")
			}))
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.Header.Set("Authorization", "Bearer bad")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
