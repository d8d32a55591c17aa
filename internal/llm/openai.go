package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const openaiEndpoint = "https://api.openai.com/v1/chat/completions"

// OpenAIClient is a direct HTTP client for the OpenAI chat completions API.
type OpenAIClient struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewOpenAIClient creates a new OpenAI API client.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: openaiEndpoint,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

// Complete sends a non-streaming chat completion request.
func (o *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	body := o.buildRequestBody(req)
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Message: err.Error(), Wrapped: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Message: "failed to read response: " + err.Error(), Wrapped: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromBody("openai", resp.StatusCode, respBody)
	}

	var result openaiAPIResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return o.responseToCompletion(&result, time.Since(start)), nil
}

// Name returns the provider name.
func (o *OpenAIClient) Name() string {
	return "openai"
}

// Model returns the configured model identifier.
func (o *OpenAIClient) Model() string {
	return o.model
}

func (o *OpenAIClient) buildRequestBody(req CompletionRequest) map[string]interface{} {
	model := req.Model
	if model == "" {
		model = o.model
	}

	var messages []map[string]string
	if req.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})

	body := map[string]interface{}{
		"model":    model,
		"messages": messages,
	}

	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}

	return body
}

func (o *OpenAIClient) responseToCompletion(resp *openaiAPIResponse, duration time.Duration) *CompletionResponse {
	var content, stopReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		stopReason = resp.Choices[0].FinishReason
	}

	model := resp.Model
	if model == "" {
		model = o.model
	}

	return &CompletionResponse{
		Content:    content,
		StopReason: stopReason,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		Model:    model,
		Duration: duration,
	}
}

// errorFromBody builds a ProviderError from a non-200 response, pulling the
// message and status string out of the provider's JSON error envelope when
// one is present. The raw body is kept verbatim for downstream scanning.
func errorFromBody(provider string, statusCode int, body []byte) *ProviderError {
	perr := &ProviderError{
		Provider: provider,
		Code:     statusCode,
		Message:  strings.TrimSpace(string(body)),
		RawBody:  string(body),
	}

	var envelope struct {
		Error struct {
			Message string          `json:"message"`
			Type    string          `json:"type"`
			Status  string          `json:"status"`
			Code    json.RawMessage `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			perr.Message = envelope.Error.Message
		}
		switch {
		case envelope.Error.Status != "":
			perr.Status = envelope.Error.Status
		case envelope.Error.Type != "":
			perr.Status = envelope.Error.Type
		}
	}

	return perr
}

// API response structures

type openaiAPIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}
