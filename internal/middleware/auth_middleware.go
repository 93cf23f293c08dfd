package middleware

import (
	"context"
	"net/http"

	"govgateway/internal/auth"
	"govgateway/internal/utils"
)

// AuthMiddleware validates bearer tokens on non-public paths and embeds
// the verified identity into the request context. Downstream handlers
// also receive the user id in the X-User-Id header.
func AuthMiddleware(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := parseBearer(r)
			if tokenString == "" {
				utils.RespondWithError(w, http.StatusUnauthorized, "auth_error", "Missing authentication token")
				return
			}

			claims, err := verifier.Verify(tokenString)
			if err != nil {
				utils.RespondWithError(w, http.StatusUnauthorized, "auth_error", "Invalid or expired token")
				return
			}

			userID := claims.UserID.String()
			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			ctx = context.WithValue(ctx, UserIDKey, userID)
			r = r.WithContext(ctx)
			r.Header.Set("X-User-Id", userID)

			next.ServeHTTP(w, r)
		})
	}
}
