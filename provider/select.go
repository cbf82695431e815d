package provider

import (
	"context"
	"fmt"
	"strings"
)

// Names of the providers New can build.
const (
	NameOpenAI      = "openai"
	NameGemini      = "gemini"
	NameGoogle      = "google"
	NamePassthrough = "passthrough"
	NameMock        = "mock"
)

// Config selects and configures a provider.
type Config struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
}

// New builds the provider cfg names. Providers that need a key fail
// without one.
func New(ctx context.Context, cfg Config) (AIProvider, error) {
	name := strings.ToLower(cfg.Name)
	switch name {
	case NameOpenAI, NameGemini, NameGoogle:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s provider needs an API key", name)
		}
	}

	switch name {
	case NameOpenAI:
		return NewOpenAIProvider(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}), nil
	case NameGemini:
		p, err := NewGeminiProvider(ctx, GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
		if err != nil {
			return nil, err
		}
		return p, nil
	case NameGoogle:
		return NewGoogleProvider(GoogleConfig{APIKey: cfg.APIKey, Endpoint: cfg.BaseURL}), nil
	case NamePassthrough, "":
		return PassthroughProvider{}, nil
	case NameMock:
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
}
