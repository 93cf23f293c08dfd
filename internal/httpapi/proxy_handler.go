package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"govgateway/internal/logging"
	"govgateway/internal/middleware"
	"govgateway/internal/providers"
	"govgateway/internal/proxy"
	"govgateway/internal/utils"
)

// ProxyResponse is the success payload returned by the proxy endpoint.
type ProxyResponse struct {
	ID        string             `json:"id"`
	Provider  string             `json:"provider"`
	Model     string             `json:"model"`
	Choices   []providers.Choice `json:"choices"`
	Usage     providers.Usage    `json:"usage"`
	CostUSD   float64            `json:"cost"`
	LatencyMs int64              `json:"latency_ms"`
}

// ProxyHandler forwards a canonical chat request to the resilient proxy
// and maps its typed errors onto stable status codes.
func (d *Dependencies) ProxyHandler(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	requestID := uuid.NewString()

	var req providers.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "validation_error", "Malformed request body")
		return
	}
	if req.Provider == "" || req.Model == "" || len(req.Messages) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "validation_error", "provider, model and messages are required")
		return
	}

	userID := requestUserID(r)
	teamID := requestTeamID(r)

	inv, err := d.Proxy.Invoke(r.Context(), req, userID, teamID)
	if err != nil {
		code, kind := classifyProxyError(err)
		d.archiveRecord(requestID, req, userID, teamID, nil, started, "error", err.Error())
		utils.RespondWithError(w, code, kind, err.Error())
		return
	}

	d.archiveRecord(requestID, req, userID, teamID, inv, started, "success", "")

	utils.RespondWithData(w, http.StatusOK, ProxyResponse{
		ID:        inv.Response.ID,
		Provider:  inv.Response.Provider,
		Model:     inv.Response.Model,
		Choices:   inv.Response.Choices,
		Usage:     inv.Response.Usage,
		CostUSD:   inv.CostUSD,
		LatencyMs: inv.LatencyMs,
	})
}

// classifyProxyError maps proxy errors onto status codes and stable
// error kinds for the response envelope.
func classifyProxyError(err error) (int, string) {
	var unsupported *proxy.UnsupportedProviderError
	if errors.As(err, &unsupported) {
		return http.StatusBadRequest, "unsupported_provider"
	}

	var violation *proxy.PolicyViolationError
	if errors.As(err, &violation) {
		return http.StatusBadRequest, "policy_violation"
	}

	var open *proxy.CircuitOpenError
	if errors.As(err, &open) {
		return http.StatusServiceUnavailable, "circuit_open"
	}

	var failure *proxy.ProviderFailureError
	if errors.As(err, &failure) {
		if failure.Timeout {
			return http.StatusGatewayTimeout, "provider_error"
		}
		return http.StatusBadGateway, "provider_error"
	}

	return http.StatusInternalServerError, "internal_error"
}

// requestUserID extracts the authenticated user id, if any.
func requestUserID(r *http.Request) *uuid.UUID {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		return nil
	}
	id := claims.UserID
	return &id
}

// requestTeamID parses the optional X-Team-Id header.
func requestTeamID(r *http.Request) *uuid.UUID {
	raw := r.Header.Get("X-Team-Id")
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// archiveRecord enqueues the request outcome for long-term archiving.
func (d *Dependencies) archiveRecord(requestID string, req providers.ChatRequest,
	userID, teamID *uuid.UUID, inv *proxy.Invocation, started time.Time, status, errMsg string) {
	rec := &logging.LogRecord{
		Timestamp: started,
		RequestID: requestID,
		Provider:  req.Provider,
		Model:     req.Model,
		GatewayMs: time.Since(started).Milliseconds(),
		Status:    status,
		Error:     errMsg,
	}
	if userID != nil {
		rec.UserID = userID.String()
	}
	if teamID != nil {
		rec.TeamID = teamID.String()
	}
	if inv != nil {
		rec.TokensIn = inv.Response.Usage.PromptTokens
		rec.TokensOut = inv.Response.Usage.CompletionTokens
		rec.ProviderMs = inv.LatencyMs
		rec.CostUSD = inv.CostUSD
	}
	if err := d.Archive.Enqueue(rec); err != nil {
		d.logger.Warn("Failed to enqueue archive record", "request_id", requestID, "error", err)
	}
}
