// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware but consumed by services. By keeping this package free
// of net/http dependencies, services can import only what they need without pulling
// in HTTP-related code.
//
// Usage in services (read values):
//
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	operatorKey    struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyOperator    = operatorKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyUserAgent   = userAgentKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Operator retrieves the authenticated operator address (base58) from the
// context. Empty when the request did not pass operator auth.
func Operator(ctx context.Context) string {
	if op, ok := ctx.Value(ContextKeyOperator).(string); ok {
		return op
	}
	return ""
}

// WithOperator injects an authenticated operator address into the context.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, ContextKeyOperator, operator)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	return ctx
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Workers that need consistent time within a batch operation
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
