package llm

import (
	"fmt"
	"sync"

	"github.com/leadgrid/leadgrid/internal/config"
	"github.com/leadgrid/leadgrid/internal/logging"
)

// Registry manages AI provider clients and resolves provider names to clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // provider name → client
	aliases  map[string]string // model alias → provider name
	fallback string            // default provider name
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		aliases: make(map[string]string),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered AI provider")
}

// Alias maps a model name/alias to a provider.
// e.g., Alias("gpt-4o", "openai") means "gpt-4o" resolves to the "openai" provider.
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = provider
}

// SetFallback sets the default provider used when no name/alias match is found.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the Client for the given provider or model reference.
// Resolution order: exact provider name → alias → fallback.
func (r *Registry) Resolve(name string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.clients[name]; ok {
		return c, nil
	}

	if provider, ok := r.aliases[name]; ok {
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
	}

	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}

	return nil, fmt.Errorf("no AI provider for %q", name)
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	return names
}

// NewRegistryFromConfig builds a Registry from the configured providers.
// Providers with empty API keys are skipped; the primary provider becomes
// the registry fallback.
func NewRegistryFromConfig(cfg config.ProvidersConfig, log *logging.Logger) *Registry {
	reg := NewRegistry(log)

	if cfg.OpenAI.APIKey != "" {
		model := cfg.OpenAI.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		reg.Register("openai", NewOpenAIClient(cfg.OpenAI.APIKey, model))
		for _, alias := range []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1", "o3-mini"} {
			reg.Alias(alias, "openai")
		}
	}

	if cfg.Gemini.APIKey != "" {
		model := cfg.Gemini.Model
		if model == "" {
			model = "gemini-2.0-flash"
		}
		reg.Register("gemini", NewGeminiClient(cfg.Gemini.APIKey, model))
		for _, alias := range []string{"gemini-pro", "gemini-2.0-flash", "gemini-1.5-pro"} {
			reg.Alias(alias, "gemini")
		}
	}

	primary := cfg.Primary
	if primary == "" {
		primary = "openai"
	}
	if _, ok := reg.clients[primary]; ok {
		reg.SetFallback(primary)
	}

	return reg
}
