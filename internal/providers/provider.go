package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Message is one turn in a canonical chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the gateway's provider-agnostic request. Adapters
// translate it to each upstream's native wire format.
type ChatRequest struct {
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

// Usage holds token counts reported by an upstream.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is one completion alternative in a canonical response.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// ChatResponse is the canonical response produced by an adapter.
type ChatResponse struct {
	ID       string   `json:"id"`
	Provider string   `json:"provider"`
	Model    string   `json:"model"`
	Choices  []Choice `json:"choices"`
	Usage    Usage    `json:"usage"`
}

// AdapterError preserves the upstream status and response text so callers
// can diagnose provider failures. A zero StatusCode means the request
// never produced an HTTP response (network failure, timeout).
type AdapterError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *AdapterError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: upstream status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Adapter is implemented by each concrete LLM provider. Adapters are
// stateless and safe for concurrent use.
type Adapter interface {
	// Name returns the provider name used for dispatch ("openai", ...)
	Name() string

	// Models returns the models served by this provider, for the catalog
	Models() []string

	// Call translates the canonical request, invokes the upstream, and
	// translates the response back
	Call(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ProviderInfo is one catalog entry.
type ProviderInfo struct {
	Name   string   `json:"name"`
	Models []string `json:"models"`
	Status string   `json:"status"`
}

// Registry resolves provider names to adapters. The set is closed at
// construction time; adding a provider means adding one adapter.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

// NewRegistry creates a registry over the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, exists := r.adapters[a.Name()]; exists {
			continue
		}
		r.adapters[a.Name()] = a
		r.order = append(r.order, a.Name())
	}
	return r
}

// Lookup returns the adapter registered under name.
func (r *Registry) Lookup(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Catalog lists the registered providers in registration order.
func (r *Registry) Catalog() []ProviderInfo {
	infos := make([]ProviderInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, ProviderInfo{
			Name:   name,
			Models: r.adapters[name].Models(),
			Status: "active",
		})
	}
	return infos
}

// newHTTPClient builds the shared transport used by all adapters.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
