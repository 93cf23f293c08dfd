package httpapi

import (
	"context"
	"net/http"
	"time"

	"govgateway/internal/utils"
)

// HealthHandler reports gateway liveness plus the state of optional
// backing services. The endpoint is public and always answers 200 as
// long as the process serves traffic; degraded collaborators show up
// in the payload.
func (d *Dependencies) HealthHandler(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status": "ok",
	}

	if d.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := d.DB.Health(ctx); err != nil {
			payload["database"] = "unavailable"
			d.logger.Warn("Database health check failed", "error", err)
		} else {
			payload["database"] = "ok"
		}
	}

	utils.RespondWithData(w, http.StatusOK, payload)
}
