package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ZaguanLabs/huntlay"
)

const (
	// GoogleEndpoint is the Cloud Translation v2 endpoint.
	GoogleEndpoint = "https://translation.googleapis.com/language/translate/v2"

	googleBatchSize = 80
)

// GoogleProvider implements AIProvider with Google Cloud Translation v2.
type GoogleProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// GoogleConfig holds configuration for the Google provider.
type GoogleConfig struct {
	APIKey     string
	Endpoint   string       // default GoogleEndpoint
	HTTPClient *http.Client // default client with a 10s timeout
}

// NewGoogleProvider creates a Google Cloud Translation provider.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	p := &GoogleProvider{
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		client:   cfg.HTTPClient,
	}
	if p.endpoint == "" {
		p.endpoint = GoogleEndpoint
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 10 * time.Second}
	}
	return p
}

type googleResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText *string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Translate translates texts in requests of at most 80 strings. Entries the
// API leaves out come back as the original text.
func (p *GoogleProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	source := req.SourceLang
	if source == "" {
		source = huntlay.BaseLang
	}

	results := make([]string, 0, len(req.Texts))
	for start := 0; start < len(req.Texts); start += googleBatchSize {
		end := min(start+googleBatchSize, len(req.Texts))
		batch := req.Texts[start:end]

		out, err := p.translateBatch(ctx, batch, source, req.TargetLang)
		if err != nil {
			return nil, err
		}
		results = append(results, out...)
	}
	return results, nil
}

func (p *GoogleProvider) translateBatch(ctx context.Context, batch []string, source, target string) ([]string, error) {
	form := url.Values{}
	for _, t := range batch {
		form.Add("q", t)
	}
	form.Set("target", target)
	form.Set("source", source)
	form.Set("format", "text")
	form.Set("key", p.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &huntlay.ProviderError{Message: "build Google request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("User-Agent", huntlay.UserAgent())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &huntlay.ProviderError{
			Message:   "Google API call failed",
			Cause:     err,
			Retryable: ctx.Err() == nil,
		}
	}
	defer resp.Body.Close()

	var payload googleResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&payload); err != nil {
		return nil, &huntlay.ProviderError{
			Message:   fmt.Sprintf("invalid response from Google (status %d)", resp.StatusCode),
			Cause:     err,
			Retryable: resp.StatusCode >= 500,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || payload.Error != nil {
		msg := http.StatusText(resp.StatusCode)
		if payload.Error != nil && payload.Error.Message != "" {
			msg = payload.Error.Message
		}
		return nil, &huntlay.ProviderError{
			Message:   fmt.Sprintf("Google API returned %d: %s", resp.StatusCode, msg),
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	out := make([]string, len(batch))
	for i := range batch {
		out[i] = batch[i]
		if i < len(payload.Data.Translations) {
			if tr := payload.Data.Translations[i].TranslatedText; tr != nil {
				out[i] = html.UnescapeString(*tr)
			}
		}
	}
	return out, nil
}

var _ AIProvider = (*GoogleProvider)(nil)
