package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"govgateway/internal/auth"
)

// ContextKey is the type used for request context keys
type ContextKey string

// Context keys for storing authentication data
const (
	ClaimsKey ContextKey = "claims"
	UserIDKey ContextKey = "userID"
)

// publicPathPrefixes lists path prefixes that skip authentication.
var publicPathPrefixes = []string{
	"/auth/login",
	"/auth/register",
	"/auth/password-reset",
	"/health",
}

// IsPublicPath reports whether the path is reachable without a token.
func IsPublicPath(path string) bool {
	for _, prefix := range publicPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// GetClaims retrieves the verified claims from the request context
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok
}

// GetUserID retrieves the authenticated user ID from the request context
func GetUserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok
}

// ClientIP extracts the caller's address, preferring proxy headers over
// the socket peer. The first entry of X-Forwarded-For is the client.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitKey derives the limiter key for a request: authenticated
// requests count per user, anonymous ones per client address.
func RateLimitKey(r *http.Request) string {
	if userID, ok := GetUserID(r.Context()); ok && userID != "" {
		return "user:" + userID
	}
	return "ip:" + ClientIP(r)
}
