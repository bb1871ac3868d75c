package middleware

import (
	"net/http"
	"time"

	"devbank/pkg/requestcontext"
)

// RequestTime captures the current time at the start of the request so every
// operation within it shares one "now". Loan interest and event timestamps
// stay consistent across a single request.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
