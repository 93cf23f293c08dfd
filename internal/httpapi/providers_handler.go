package httpapi

import (
	"net/http"

	"govgateway/internal/utils"
)

// ProvidersHandler returns the static catalog of supported providers
// and their models.
func (d *Dependencies) ProvidersHandler(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithData(w, http.StatusOK, map[string]any{
		"providers": d.Adapters.Catalog(),
	})
}

// BreakerHealthHandler reports the current circuit state and failure
// count per provider:model key.
func (d *Dependencies) BreakerHealthHandler(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithData(w, http.StatusOK, map[string]any{
		"breakers": d.Breakers.Snapshot(),
	})
}
