package httpapi

import (
	"net/http"

	"govgateway/internal/csrf"
	"govgateway/internal/middleware"
	"govgateway/internal/utils"
)

// CSRFTokenHandler mints a CSRF token bound to the caller's session.
// The endpoint requires authentication, so the session is the verified
// user id.
func (d *Dependencies) CSRFTokenHandler(w http.ResponseWriter, r *http.Request) {
	session := middleware.AnonymousSession
	if userID, ok := middleware.GetUserID(r.Context()); ok && userID != "" {
		session = userID
	}

	utils.RespondWithData(w, http.StatusOK, map[string]any{
		"csrf_token": d.CSRF.Mint(session),
		"expires_in": int64(csrf.TokenTTL.Seconds()),
	})
}
