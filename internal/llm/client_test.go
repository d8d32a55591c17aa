package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leadgrid/leadgrid/internal/config"
	"github.com/leadgrid/leadgrid/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

// --- Registry tests ---

func TestRegistryRegisterAndResolve(t *testing.T) {
	reg := NewRegistry(silentLog())

	mock := &MockClient{ProviderName: "test-provider"}
	reg.Register("test-provider", mock)

	client, err := reg.Resolve("test-provider")
	require.NoError(t, err)
	assert.Equal(t, "test-provider", client.Name())
}

func TestRegistryAlias(t *testing.T) {
	reg := NewRegistry(silentLog())

	mock := &MockClient{ProviderName: "openai"}
	reg.Register("openai", mock)
	reg.Alias("gpt-4o", "openai")
	reg.Alias("gpt-4o-mini", "openai")

	client, err := reg.Resolve("gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "openai", client.Name())

	client, err = reg.Resolve("gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "openai", client.Name())
}

func TestRegistryFallback(t *testing.T) {
	reg := NewRegistry(silentLog())

	mock := &MockClient{ProviderName: "openai"}
	reg.Register("openai", mock)
	reg.SetFallback("openai")

	// Unknown reference should resolve to fallback
	client, err := reg.Resolve("unknown-model-xyz")
	require.NoError(t, err)
	assert.Equal(t, "openai", client.Name())
}

func TestRegistryResolveUnknown(t *testing.T) {
	reg := NewRegistry(silentLog())

	_, err := reg.Resolve("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no AI provider")
}

func TestRegistryAliasToMissingProvider(t *testing.T) {
	reg := NewRegistry(silentLog())
	reg.Alias("gpt-4o", "openai")

	// Alias points at a provider that was never registered
	_, err := reg.Resolve("gpt-4o")
	require.Error(t, err)
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry(silentLog())
	reg.Register("openai", &MockClient{ProviderName: "openai"})
	reg.Register("gemini", &MockClient{ProviderName: "gemini"})

	names := reg.List()
	assert.Len(t, names, 2)
	assert.Contains(t, names, "openai")
	assert.Contains(t, names, "gemini")
}

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := config.ProvidersConfig{
		Primary: "openai",
	}
	cfg.OpenAI.APIKey = "sk-test"
	cfg.Gemini.APIKey = "gm-test"

	reg := NewRegistryFromConfig(cfg, silentLog())

	client, err := reg.Resolve("openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", client.Name())
	assert.Equal(t, "gpt-4o-mini", client.Model())

	client, err = reg.Resolve("gemini")
	require.NoError(t, err)
	assert.Equal(t, "gemini", client.Name())
	assert.Equal(t, "gemini-2.0-flash", client.Model())

	// Aliases from both providers resolve
	client, err = reg.Resolve("gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "openai", client.Name())

	client, err = reg.Resolve("gemini-1.5-pro")
	require.NoError(t, err)
	assert.Equal(t, "gemini", client.Name())

	// Primary acts as fallback for unknown references
	client, err = reg.Resolve("some-future-model")
	require.NoError(t, err)
	assert.Equal(t, "openai", client.Name())
}

func TestNewRegistryFromConfigSkipsMissingKeys(t *testing.T) {
	cfg := config.ProvidersConfig{Primary: "openai"}
	cfg.Gemini.APIKey = "gm-test"
	cfg.Gemini.Model = "gemini-2.5-pro"

	reg := NewRegistryFromConfig(cfg, silentLog())

	_, err := reg.Resolve("openai")
	require.Error(t, err)

	client, err := reg.Resolve("gemini")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", client.Model())

	// Primary has no key, so there is no fallback either
	_, err = reg.Resolve("whatever")
	require.Error(t, err)
}

func TestNewRegistryFromConfigEmpty(t *testing.T) {
	reg := NewRegistryFromConfig(config.ProvidersConfig{}, silentLog())
	assert.Empty(t, reg.List())
}

// --- MockClient tests ---

func TestMockClientDefaults(t *testing.T) {
	mock := &MockClient{ProviderName: "mock", ModelName: "mock-1"}

	resp, err := mock.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "mock response", resp.Content)
	assert.Equal(t, "mock-1", resp.Model)
}

func TestMockClientCompleteFunc(t *testing.T) {
	var gotPrompt string
	mock := &MockClient{
		CompleteFunc: func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
			gotPrompt = req.Prompt
			return &CompletionResponse{Content: "custom"}, nil
		},
	}

	resp, err := mock.Complete(context.Background(), CompletionRequest{Prompt: "classify this"})
	require.NoError(t, err)
	assert.Equal(t, "custom", resp.Content)
	assert.Equal(t, "classify this", gotPrompt)
}

// --- Error envelope tests ---

func TestErrorFromBodyOpenAIEnvelope(t *testing.T) {
	body := []byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`)

	perr := errorFromBody("openai", 429, body)
	assert.Equal(t, "openai", perr.Provider)
	assert.Equal(t, 429, perr.Code)
	assert.Equal(t, "You exceeded your current quota", perr.Message)
	assert.Equal(t, "insufficient_quota", perr.Status)
	assert.Equal(t, string(body), perr.RawBody)
}

func TestErrorFromBodyGeminiEnvelope(t *testing.T) {
	body := []byte(`{"error":{"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED","code":429}}`)

	perr := errorFromBody("gemini", 429, body)
	assert.Equal(t, "Resource has been exhausted", perr.Message)
	// status takes precedence over type when both could apply
	assert.Equal(t, "RESOURCE_EXHAUSTED", perr.Status)
}

func TestErrorFromBodyPlainText(t *testing.T) {
	perr := errorFromBody("openai", 502, []byte("  Bad Gateway\n"))
	assert.Equal(t, 502, perr.Code)
	assert.Equal(t, "Bad Gateway", perr.Message)
	assert.Empty(t, perr.Status)
}

func TestProviderErrorString(t *testing.T) {
	perr := &ProviderError{Provider: "openai", Code: 429, Message: "rate limited"}
	assert.Equal(t, "openai: 429 rate limited", perr.Error())

	perr = &ProviderError{Provider: "gemini", Message: "connection refused"}
	assert.Equal(t, "gemini: connection refused", perr.Error())
}

// --- OpenAI client tests ---

func TestOpenAIBuildRequestBody(t *testing.T) {
	client := NewOpenAIClient("sk-test", "gpt-4o-mini")

	temp := 0.2
	body := client.buildRequestBody(CompletionRequest{
		System:      "You are a classifier.",
		Prompt:      "Classify this requirement.",
		MaxTokens:   512,
		Temperature: &temp,
	})

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, 512, body["max_tokens"])
	assert.Equal(t, 0.2, body["temperature"])

	messages := body["messages"].([]map[string]string)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0]["role"])
	assert.Equal(t, "You are a classifier.", messages[0]["content"])
	assert.Equal(t, "user", messages[1]["role"])
	assert.Equal(t, "Classify this requirement.", messages[1]["content"])
}

func TestOpenAIBuildRequestBodyMinimal(t *testing.T) {
	client := NewOpenAIClient("sk-test", "gpt-4o-mini")

	body := client.buildRequestBody(CompletionRequest{Model: "gpt-4o", Prompt: "hi"})
	assert.Equal(t, "gpt-4o", body["model"])

	messages := body["messages"].([]map[string]string)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0]["role"])

	_, hasMaxTokens := body["max_tokens"]
	assert.False(t, hasMaxTokens)
	_, hasTemp := body["temperature"]
	assert.False(t, hasTemp)
}

func TestOpenAIComplete(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "chatcmpl-1",
			"model": "gpt-4o-mini-2024",
			"choices": []map[string]interface{}{
				{
					"message":       map[string]string{"role": "assistant", "content": `{"roles":[]}`},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 40, "completion_tokens": 12},
		})
	}))
	defer ts.Close()

	client := NewOpenAIClient("sk-test", "gpt-4o-mini")
	client.endpoint = ts.URL

	resp, err := client.Complete(context.Background(), CompletionRequest{Prompt: "classify"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	assert.Equal(t, `{"roles":[]}`, resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, "gpt-4o-mini-2024", resp.Model)
	assert.Equal(t, 40, resp.Usage.InputTokens)
	assert.Equal(t, 12, resp.Usage.OutputTokens)
}

func TestOpenAICompleteErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"rate_limit_error"}}`))
	}))
	defer ts.Close()

	client := NewOpenAIClient("sk-test", "gpt-4o-mini")
	client.endpoint = ts.URL

	_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "classify"})
	require.Error(t, err)

	perr, ok := err.(*ProviderError)
	require.True(t, ok)
	assert.Equal(t, 429, perr.Code)
	assert.Equal(t, "Rate limit reached", perr.Message)
	assert.Equal(t, "rate_limit_error", perr.Status)
}

func TestOpenAIResponseToCompletionModelFallback(t *testing.T) {
	client := NewOpenAIClient("sk-test", "gpt-4o-mini")

	resp := client.responseToCompletion(&openaiAPIResponse{}, 0)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	assert.Empty(t, resp.Content)
}

// --- Gemini client tests ---

func TestGeminiBuildRequestBody(t *testing.T) {
	client := NewGeminiClient("gm-test", "gemini-2.0-flash")

	temp := 0.5
	body := client.buildRequestBody(CompletionRequest{
		System:      "You are a classifier.",
		Prompt:      "Classify this.",
		MaxTokens:   1024,
		Temperature: &temp,
	})

	contents := body["contents"].([]map[string]interface{})
	require.Len(t, contents, 1)
	assert.Equal(t, "user", contents[0]["role"])

	// System instruction is folded into the single user turn
	parts := contents[0]["parts"].([]map[string]string)
	require.Len(t, parts, 1)
	assert.Equal(t, "System: You are a classifier.\n\nClassify this.", parts[0]["text"])

	gen := body["generationConfig"].(map[string]interface{})
	assert.Equal(t, 1024, gen["maxOutputTokens"])
	assert.Equal(t, 0.5, gen["temperature"])
}

func TestGeminiBuildRequestBodyNoGenerationConfig(t *testing.T) {
	client := NewGeminiClient("gm-test", "gemini-2.0-flash")

	body := client.buildRequestBody(CompletionRequest{Prompt: "hi"})
	_, hasGen := body["generationConfig"]
	assert.False(t, hasGen)
}

func TestGeminiResponseToCompletion(t *testing.T) {
	client := NewGeminiClient("gm-test", "gemini-2.0-flash")

	var resp geminiAPIResponse
	require.NoError(t, json.Unmarshal([]byte(`{
		"candidates": [{
			"content": {"parts": [{"text": "{\"roles\""}, {"text": ":[]}"}], "role": "model"},
			"finishReason": "STOP"
		}],
		"usageMetadata": {"promptTokenCount": 30, "candidatesTokenCount": 8}
	}`), &resp))

	out := client.responseToCompletion(&resp, "gemini-2.0-flash", 0)
	assert.Equal(t, `{"roles":[]}`, out.Content)
	assert.Equal(t, "STOP", out.StopReason)
	assert.Equal(t, "gemini-2.0-flash", out.Model)
	assert.Equal(t, 30, out.Usage.InputTokens)
	assert.Equal(t, 8, out.Usage.OutputTokens)
}

func TestGeminiResponseToCompletionEmpty(t *testing.T) {
	client := NewGeminiClient("gm-test", "gemini-2.0-flash")

	out := client.responseToCompletion(&geminiAPIResponse{}, "gemini-2.0-flash", 0)
	assert.Empty(t, out.Content)
	assert.Empty(t, out.StopReason)
}
