package middleware

import (
	"net/http"
	"strings"

	"govgateway/internal/auth"
	"govgateway/internal/csrf"
	"govgateway/internal/utils"
)

// CSRFHeader carries the token on state-changing requests.
const CSRFHeader = "X-CSRF-Token"

// AnonymousSession is the session id used when no identity can be
// resolved. All unauthenticated callers share one CSRF namespace.
const AnonymousSession = "anonymous"

// stateChanging reports whether the method needs CSRF protection.
func stateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// CSRFMiddleware validates the CSRF token on state-changing requests.
// It runs before authentication, so the session id is resolved from the
// bearer token on a best-effort basis; requests without a resolvable
// identity verify against the anonymous session.
func CSRFMiddleware(codec *csrf.Codec, verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !stateChanging(r.Method) || IsPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get(CSRFHeader)
			if token == "" {
				utils.RespondWithError(w, http.StatusForbidden, "csrf_error", "Missing CSRF token")
				return
			}

			if !codec.Verify(token, resolveSession(r, verifier)) {
				utils.RespondWithError(w, http.StatusForbidden, "csrf_error", "Invalid or expired CSRF token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// resolveSession derives the CSRF session id for a request. A valid
// bearer token binds the session to the user; anything else falls back
// to the shared anonymous session.
func resolveSession(r *http.Request, verifier *auth.Verifier) string {
	if userID, ok := GetUserID(r.Context()); ok && userID != "" {
		return userID
	}
	if verifier != nil {
		if bearer := parseBearer(r); bearer != "" {
			if claims, err := verifier.Verify(bearer); err == nil {
				return claims.UserID.String()
			}
		}
	}
	return AnonymousSession
}

// parseBearer extracts the bearer token from the Authorization header.
func parseBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
