// Package provider implements model.Provider for the hosted and local LLM
// backends hackmate can drive: OpenAI, OpenRouter, Anthropic, Ollama and
// Gemini.
//
// Each backend streams text fragments and completed tool calls through a
// model.StreamCallback. Provider-specific failures that mean "try again
// later" (rate limits, 5xx, connection refused) are wrapped in a
// *model.UpstreamError so callers can match model.ErrUpstreamUnavailable.
//
//	p, err := provider.NewProvider(provider.Config{
//	    Type:    provider.ProviderTypeOllama,
//	    BaseURL: "http://localhost:11434",
//	    Model:   "llama3.1",
//	})
//	if err != nil {
//	    return err
//	}
//	err = p.ChatWithTools(ctx, messages, registry.Tools(), callback)
package provider

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOllama     ProviderType = "ollama"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeAnthropic  ProviderType = "anthropic"
	ProviderTypeGemini     ProviderType = "gemini"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // unused for Ollama
}
