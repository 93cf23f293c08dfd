package middleware

import (
	"net/http"

	"govgateway/internal/ratelimit"
	"govgateway/internal/utils"
)

// RateLimitMiddleware enforces the fixed-window limit per user or
// client address. It runs after authentication so authenticated
// traffic is counted per user rather than per address.
func RateLimitMiddleware(limiter ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(RateLimitKey(r)) {
				utils.RespondWithError(w, http.StatusTooManyRequests, "rate_limit_error", "Rate limit exceeded, try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
