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

var azureModels = []string{"gpt-4", "gpt-4-turbo", "gpt-35-turbo"}

// AzureAdapter implements the Adapter interface for Azure OpenAI.
// Azure speaks the OpenAI wire format but routes per-deployment and
// authenticates with an api-key header instead of a bearer token.
type AzureAdapter struct {
	apiKey     string
	endpoint   string
	apiVersion string
	client     *http.Client
}

// NewAzureAdapter creates a new Azure OpenAI adapter instance. The
// endpoint is the resource URL, e.g. https://myresource.openai.azure.com.
func NewAzureAdapter(apiKey, endpoint, apiVersion string, timeout time.Duration) *AzureAdapter {
	return &AzureAdapter{
		apiKey:     apiKey,
		endpoint:   endpoint,
		apiVersion: apiVersion,
		client:     newHTTPClient(timeout),
	}
}

// Name returns the provider name
func (p *AzureAdapter) Name() string {
	return "azure"
}

// Models returns the models served by this provider
func (p *AzureAdapter) Models() []string {
	return azureModels
}

// Call sends a chat completion request to an Azure OpenAI deployment.
// The model name doubles as the deployment name.
func (p *AzureAdapter) Call(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload := map[string]interface{}{
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

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		p.endpoint, req.Model, p.apiVersion)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &AdapterError{Provider: "azure", Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AdapterError{Provider: "azure", Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &AdapterError{Provider: "azure", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var parsed struct {
		ID      string `json:"id"`
		Choices []struct {
			Message      Message `json:"message"`
			FinishReason string  `json:"finish_reason"`
		} `json:"choices"`
		Usage Usage `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &AdapterError{Provider: "azure", StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	out := &ChatResponse{
		ID:       parsed.ID,
		Provider: "azure",
		Model:    req.Model,
		Usage:    parsed.Usage,
	}
	for _, c := range parsed.Choices {
		out.Choices = append(out.Choices, Choice{Message: c.Message, FinishReason: c.FinishReason})
	}
	return out, nil
}
