// Package metrics holds the HTTP-level Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds request-level Prometheus collectors.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// New creates and registers HTTP metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates HTTP metrics on a caller-supplied registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devbank_http_requests_total",
			Help: "HTTP requests by method, route, and status.",
		}, []string{"method", "route", "status"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devbank_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Middleware records request counts and latencies. Routes are labeled by chi
// pattern, not raw path, to keep cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		m.Duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
