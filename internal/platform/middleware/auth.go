package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"devbank/pkg/requestcontext"
)

// OperatorValidator defines the interface for validating operator tokens.
type OperatorValidator interface {
	ValidateToken(tokenString string) (*OperatorClaims, error)
}

// OperatorClaims represents the claims we expect from the token validator.
type OperatorClaims struct {
	Operator string
	JTI      string
}

// RequireOperator gates admin endpoints behind a Bearer operator token. The
// validated operator address lands in the request context.
func RequireOperator(validator OperatorValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized admin access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized admin access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithOperator(ctx, claims.Operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
