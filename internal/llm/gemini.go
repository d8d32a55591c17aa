package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GeminiClient is a direct HTTP client for the Google Gemini API.
type GeminiClient struct {
	apiKey string
	model  string
	client *http.Client
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// Complete sends a non-streaming generateContent request.
func (g *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	body := g.buildRequestBody(req)
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	model := req.Model
	if model == "" {
		model = g.model
	}
	endpoint := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		model, url.QueryEscape(g.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Message: err.Error(), Wrapped: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Message: "failed to read response: " + err.Error(), Wrapped: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromBody("gemini", resp.StatusCode, respBody)
	}

	var result geminiAPIResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return g.responseToCompletion(&result, model, time.Since(start)), nil
}

// Name returns the provider name.
func (g *GeminiClient) Name() string {
	return "gemini"
}

// Model returns the configured model identifier.
func (g *GeminiClient) Model() string {
	return g.model
}

func (g *GeminiClient) buildRequestBody(req CompletionRequest) map[string]interface{} {
	var prompt strings.Builder
	if req.System != "" {
		prompt.WriteString("System: ")
		prompt.WriteString(req.System)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString(req.Prompt)

	contents := []map[string]interface{}{
		{
			"role": "user",
			"parts": []map[string]string{
				{"text": prompt.String()},
			},
		},
	}

	generationConfig := map[string]interface{}{}
	if req.MaxTokens > 0 {
		generationConfig["maxOutputTokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		generationConfig["temperature"] = *req.Temperature
	}

	body := map[string]interface{}{
		"contents": contents,
	}
	if len(generationConfig) > 0 {
		body["generationConfig"] = generationConfig
	}

	return body
}

func (g *GeminiClient) responseToCompletion(resp *geminiAPIResponse, model string, duration time.Duration) *CompletionResponse {
	var content strings.Builder
	var stopReason string

	if len(resp.Candidates) > 0 {
		candidate := resp.Candidates[0]
		for _, part := range candidate.Content.Parts {
			content.WriteString(part.Text)
		}
		stopReason = candidate.FinishReason
	}

	return &CompletionResponse{
		Content:    content.String(),
		StopReason: stopReason,
		Usage: Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		},
		Model:    model,
		Duration: duration,
	}
}

// API response structures

type geminiAPIResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
		Role string `json:"role"`
	} `json:"content"`
	FinishReason string `json:"finishReason"`
}
