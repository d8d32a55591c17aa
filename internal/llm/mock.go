package llm

import "context"

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName string
	ModelName    string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

func (m *MockClient) Name() string { return m.ProviderName }

func (m *MockClient) Model() string { return m.ModelName }

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{Content: "mock response", Model: m.ModelName}, nil
}
