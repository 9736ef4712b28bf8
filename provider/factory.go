package provider

import (
	"context"
	"fmt"

	"hackmate/config"
	"hackmate/model"
)

// NewProvider creates a provider based on configuration.
//
// OpenRouter is served by the OpenAI implementation with OpenRouter's base
// URL. Returns an error for unknown types or when a hosted provider has no
// API key.
func NewProvider(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	case ProviderTypeOpenRouter:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = OpenRouterBaseURL
		}
		return newOpenAICompatible(string(ProviderTypeOpenRouter), baseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeGemini:
		return NewGeminiProvider(context.Background(), cfg.BaseURL, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderIDToType converts a config provider ID to a ProviderType.
// Unknown IDs pass through unchanged so NewProvider can reject them.
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case "ollama":
		return ProviderTypeOllama
	case "openrouter":
		return ProviderTypeOpenRouter
	case "openai":
		return ProviderTypeOpenAI
	case "anthropic", "claude":
		return ProviderTypeAnthropic
	case "gemini", "google":
		return ProviderTypeGemini
	default:
		return ProviderType(id)
	}
}

// FromConfig builds the configured provider, reading its API key from the
// credential store (which falls back to the conventional environment
// variable).
func FromConfig(cfg *config.Config, creds *config.CredentialStore) (model.Provider, error) {
	typ := MapProviderIDToType(cfg.Provider.Type)

	var apiKey string
	if creds != nil && typ != ProviderTypeOllama {
		apiKey = creds.ProviderKey(string(typ))
	}

	p, err := NewProvider(Config{
		Type:    typ,
		BaseURL: cfg.Provider.BaseURL,
		Model:   cfg.Provider.Model,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s provider: %w", typ, err)
	}
	return p, nil
}
