package llm

import (
	"fmt"

	"github.com/Harshitk-cp/memora/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI    = "openai"
	ProviderGroq      = "groq"
	ProviderCerebras  = "cerebras"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

const (
	groqBaseURL     = "https://api.groq.com/openai/v1"
	cerebrasBaseURL = "https://api.cerebras.ai/v1"

	defaultOpenAIModel    = "gpt-4o-mini"
	defaultGroqModel      = "openai/gpt-oss-120b"
	defaultCerebrasModel  = "llama-3.3-70b"
	defaultAnthropicModel = "claude-3-5-haiku-20241022"
	defaultGeminiModel    = "gemini-2.0-flash"
)

// Config selects and parameterizes a gateway provider.
// Model and BaseURL are optional; each provider has a default.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// NewClient creates an LLM gateway based on the provider name.
// Returns an error if the provider is unknown or the API key is empty (except for mock).
func NewClient(cfg Config) (domain.LLMClient, error) {
	if cfg.Provider != ProviderMock && cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for %s provider", cfg.Provider)
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.APIKey, orDefault(cfg.Model, defaultOpenAIModel), cfg.BaseURL), nil

	case ProviderGroq:
		return NewOpenAIClient(cfg.APIKey, orDefault(cfg.Model, defaultGroqModel), orDefault(cfg.BaseURL, groqBaseURL)), nil

	case ProviderCerebras:
		return NewOpenAIClient(cfg.APIKey, orDefault(cfg.Model, defaultCerebrasModel), orDefault(cfg.BaseURL, cerebrasBaseURL)), nil

	case ProviderAnthropic:
		return NewAnthropicClient(cfg.APIKey, orDefault(cfg.Model, defaultAnthropicModel)), nil

	case ProviderGemini:
		return NewGeminiClient(cfg.APIKey, orDefault(cfg.Model, defaultGeminiModel)), nil

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (valid options: openai, groq, cerebras, anthropic, gemini, mock)", cfg.Provider)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
