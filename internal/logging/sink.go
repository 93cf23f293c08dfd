package logging

import "time"

// LogRecord is the archive entry written for each proxied request.
type LogRecord struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	UserID    string    `json:"user_id,omitempty"`
	TeamID    string    `json:"team_id,omitempty"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	TokensIn  int       `json:"tokens_in"`
	TokensOut int       `json:"tokens_out"`
	// ProviderMs is time spent in the upstream call, GatewayMs the full
	// gateway handling time including middleware.
	ProviderMs int64   `json:"provider_ms"`
	GatewayMs  int64   `json:"gateway_ms"`
	CostUSD    float64 `json:"cost_usd"`
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
}

// Sink receives archive records from the request path. Enqueue must be
// cheap and non-blocking; persistence happens in the background.
type Sink interface {
	Enqueue(rec *LogRecord) error
	Shutdown(timeout time.Duration) error
}

// NoopSink discards records. Used when archiving is disabled.
type NoopSink struct{}

func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (s *NoopSink) Enqueue(rec *LogRecord) error {
	return nil
}

func (s *NoopSink) Shutdown(timeout time.Duration) error {
	return nil
}
