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

const googleDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

var googleModels = []string{"gemini-pro", "gemini-1.5-pro", "gemini-1.5-flash"}

// GoogleAdapter implements the Adapter interface for the Gemini API
type GoogleAdapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGoogleAdapter creates a new Gemini adapter instance
func NewGoogleAdapter(apiKey, baseURL string, timeout time.Duration) *GoogleAdapter {
	if baseURL == "" {
		baseURL = googleDefaultBaseURL
	}
	return &GoogleAdapter{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  newHTTPClient(timeout),
	}
}

// Name returns the provider name
func (p *GoogleAdapter) Name() string {
	return "google"
}

// Models returns the models served by this provider
func (p *GoogleAdapter) Models() []string {
	return googleModels
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// Call sends a generateContent request to the Gemini API
func (p *GoogleAdapter) Call(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	// Gemini separates the system prompt and renames the assistant role
	var system *geminiContent
	contents := make([]geminiContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
		case "assistant":
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}

	payload := map[string]interface{}{
		"contents": contents,
	}
	if system != nil {
		payload["systemInstruction"] = system
	}
	genConfig := map[string]interface{}{}
	if req.Temperature != nil {
		genConfig["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		genConfig["maxOutputTokens"] = *req.MaxTokens
	}
	if len(genConfig) > 0 {
		payload["generationConfig"] = genConfig
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, req.Model, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &AdapterError{Provider: "google", Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AdapterError{Provider: "google", Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &AdapterError{Provider: "google", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var parsed struct {
		Candidates []struct {
			Content      geminiContent `json:"content"`
			FinishReason string        `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &AdapterError{Provider: "google", StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	out := &ChatResponse{
		Provider: "google",
		Model:    req.Model,
		Usage: Usage{
			PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
			CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
		},
	}
	for _, c := range parsed.Candidates {
		var text string
		for _, part := range c.Content.Parts {
			text += part.Text
		}
		out.Choices = append(out.Choices, Choice{
			Message:      Message{Role: "assistant", Content: text},
			FinishReason: c.FinishReason,
		})
	}
	return out, nil
}
