package middleware

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"devbank/pkg/requestcontext"
)

// ClientMetadata extracts the client IP and a normalized User-Agent from the
// request and adds them to the context. Apply early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIPFromRequest(r)
		ua := normalizeUserAgent(r.Header.Get("User-Agent"))

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, ua)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// normalizeUserAgent reduces a raw User-Agent to "browser/version (os)" so
// logs stay readable. Non-browser agents (CLIs, SDKs) pass through as-is.
func normalizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	var b strings.Builder
	b.WriteString(name)
	if version != "" {
		b.WriteString("/")
		b.WriteString(version)
	}
	if os := ua.OS(); os != "" {
		b.WriteString(" (")
		b.WriteString(os)
		b.WriteString(")")
	}
	return b.String()
}

// clientIPFromRequest extracts the real client IP, handling proxies and load
// balancers.
func clientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs; the first is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" for IPv4 and "[::1]:port" for IPv6.
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
