// Package httptransport assembles the API surface: public ledger and faucet
// routes, operator-gated admin routes, and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	bankhandler "devbank/internal/bank/handler"
	faucethandler "devbank/internal/faucet/handler"
	"devbank/internal/platform/metrics"
	"devbank/internal/platform/middleware"
	"devbank/pkg/platform/httputil"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker func(ctx context.Context) error

// Deps carries everything the router mounts.
type Deps struct {
	Logger            *slog.Logger
	Metrics           *metrics.Metrics
	Bank              *bankhandler.Handler
	Faucet            *faucethandler.Handler
	OperatorValidator middleware.OperatorValidator

	// Health checks by dependency name; nil checkers are skipped.
	Health map[string]HealthChecker
}

// NewRouter wires middleware and routes into the servable handler.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.RequestTime)
	r.Use(middleware.RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		deps.Faucet.Register(r)
		deps.Bank.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOperator(deps.OperatorValidator, deps.Logger))
			deps.Bank.RegisterAdmin(r)
		})
	})

	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				deps[name] = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		body := map[string]any{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(deps) > 0 {
			body["dependencies"] = deps
		}
		httputil.WriteJSON(w, status, body)
	}
}
