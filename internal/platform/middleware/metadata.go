package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKeyClientIP struct{}

// UnknownClient is the rate-limit key used when no forwarded-for header is
// present. All such callers share one bucket; treating header-less traffic as
// a single suspicious client is intentional.
const UnknownClient = "unknown"

// ClientMetadata extracts the client IP from X-Forwarded-For and stores it in
// the context for the rate limiter. Apply early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), contextKeyClientIP{}, ClientIPFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientIP retrieves the client IP from the context.
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(contextKeyClientIP{}).(string); ok {
		return ip
	}
	return UnknownClient
}

// WithClientIP injects a client IP into a context. Useful for tests that skip
// the HTTP middleware chain.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyClientIP{}, ip)
}

// ClientIPFromRequest takes the first entry of X-Forwarded-For, which is the
// original client when the relay sits behind the platform's proxy. No
// RemoteAddr fallback: direct connections without the header collapse into
// the shared UnknownClient bucket.
func ClientIPFromRequest(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return UnknownClient
	}
	if idx := strings.Index(xff, ","); idx != -1 {
		xff = xff[:idx]
	}
	ip := strings.TrimSpace(xff)
	if ip == "" {
		return UnknownClient
	}
	return ip
}
