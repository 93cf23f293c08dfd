package utils

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the envelope returned by every gateway endpoint.
// Errors carry a stable machine-readable kind plus a human-readable message.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "Failed to encode response: "+err.Error(), http.StatusInternalServerError)
		return err
	}
	return nil
}

// RespondWithData sends a success envelope wrapping the given data
func RespondWithData(w http.ResponseWriter, code int, data any) error {
	return RespondWithJSON(w, code, APIResponse{Success: true, Data: data})
}

// RespondWithError sends an error envelope with a stable error kind
func RespondWithError(w http.ResponseWriter, code int, kind, message string) {
	_ = RespondWithJSON(w, code, APIResponse{Success: false, Error: kind, Message: message})
}
