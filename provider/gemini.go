package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/ZaguanLabs/huntlay"
	"google.golang.org/genai"
)

// GeminiProvider implements AIProvider with the Gemini API.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float32
}

// GeminiConfig holds configuration for the Gemini provider.
type GeminiConfig struct {
	APIKey      string
	Model       string  // default "gemini-2.0-flash"
	Temperature float32 // default 0.3
	BaseURL     string
	HTTPClient  *http.Client
}

// NewGeminiProvider creates a Gemini provider backed by the Gemini Developer
// API.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &huntlay.ProviderError{Message: "create Gemini client", Cause: err}
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &GeminiProvider{client: client, model: model, temperature: temperature}, nil
}

// Translate translates a batch of texts.
func (p *GeminiProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model,
		genai.Text(userMessage(req.Texts)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt(req), genai.RoleUser),
			Temperature:       genai.Ptr(p.temperature),
			ResponseMIMEType:  "application/json",
		})
	if err != nil {
		return nil, &huntlay.ProviderError{
			Message:   "Gemini API call failed",
			Cause:     err,
			Retryable: geminiRetryable(err),
		}
	}

	text := resp.Text()
	if text == "" {
		return nil, &huntlay.ProviderError{
			Message:   "no response from Gemini",
			Retryable: true,
		}
	}

	return parseTranslations("Gemini", text, len(req.Texts))
}

func geminiRetryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	var apiPtr *genai.APIError
	if errors.As(err, &apiPtr) {
		return apiPtr.Code == http.StatusTooManyRequests || apiPtr.Code >= 500
	}
	return isRetryableError(err)
}

var _ AIProvider = (*GeminiProvider)(nil)
