// Package llm defines the AI-provider client interface and the direct HTTP
// clients for the providers LeadGrid classifies with (OpenAI, Gemini).
//
// Clients stay deliberately thin: one prompt in, raw text out. All retry,
// fallback, extraction, and validation logic lives in internal/orchestrate.
package llm

import (
	"context"
	"time"
)

// CompletionRequest is the input to a Complete call.
type CompletionRequest struct {
	Model       string   `json:"model,omitempty"`
	System      string   `json:"system,omitempty"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// CompletionResponse is the raw result of a completion.
type CompletionResponse struct {
	Content    string        `json:"content"`
	StopReason string        `json:"stopReason,omitempty"`
	Usage      Usage         `json:"usage"`
	Model      string        `json:"model,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Client is the interface all AI providers must implement.
type Client interface {
	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name (e.g., "openai", "gemini").
	Name() string

	// Model returns the default model identifier this client calls.
	Model() string
}
