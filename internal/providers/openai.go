package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const openAIDefaultBaseURL = "https://api.openai.com/v1"

var openAIModels = []string{"gpt-4", "gpt-4-turbo", "gpt-3.5-turbo"}

// OpenAIAdapter implements the Adapter interface for OpenAI
type OpenAIAdapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAIAdapter creates a new OpenAI adapter instance
func NewOpenAIAdapter(apiKey, baseURL string, timeout time.Duration) *OpenAIAdapter {
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	return &OpenAIAdapter{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  newHTTPClient(timeout),
	}
}

// Name returns the provider name
func (p *OpenAIAdapter) Name() string {
	return "openai"
}

// Models returns the models served by this provider
func (p *OpenAIAdapter) Models() []string {
	return openAIModels
}

// Call sends a chat completion request to OpenAI
func (p *OpenAIAdapter) Call(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	// Build OpenAI request
	payload := map[string]interface{}{
		"model":    req.Model,
		"messages": req.Messages,
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		payload["max_tokens"] = *req.MaxTokens
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &AdapterError{Provider: "openai", Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AdapterError{Provider: "openai", Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &AdapterError{Provider: "openai", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	// OpenAI responses are already in the canonical shape
	var parsed struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Choices []struct {
			Message      Message `json:"message"`
			FinishReason string  `json:"finish_reason"`
		} `json:"choices"`
		Usage Usage `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &AdapterError{Provider: "openai", StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	out := &ChatResponse{
		ID:       parsed.ID,
		Provider: "openai",
		Model:    req.Model,
		Usage:    parsed.Usage,
	}
	for _, c := range parsed.Choices {
		out.Choices = append(out.Choices, Choice{Message: c.Message, FinishReason: c.FinishReason})
	}
	return out, nil
}
