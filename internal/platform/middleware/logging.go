package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"devbank/pkg/requestcontext"
)

// RequestLogger logs one line per request with status, duration, and client
// metadata.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			ctx := r.Context()
			logger.InfoContext(ctx, "request handled",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestcontext.RequestID(ctx),
				"client_ip", requestcontext.ClientIP(ctx),
				"user_agent", requestcontext.UserAgent(ctx),
			)
		})
	}
}
