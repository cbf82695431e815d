package overlay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/ZaguanLabs/huntlay"
)

const maxResponseBytes = 4 << 20

// HTTPClient calls a remote /translate endpoint.
type HTTPClient struct {
	endpoint  string
	client    *http.Client
	userAgent string
	maxBatch  int
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(h *HTTPClient) {
		if c != nil {
			h.client = c
		}
	}
}

// WithMaxBatch sets how many strings go into one request. Larger batches are
// sent as several requests in order.
func WithMaxBatch(n int) ClientOption {
	return func(h *HTTPClient) {
		if n > 0 {
			h.maxBatch = n
		}
	}
}

// NewHTTPClient creates a client for the translate endpoint at url. The
// default http.Client has no timeout; bound passes with WithPassTimeout.
func NewHTTPClient(url string, opts ...ClientOption) *HTTPClient {
	h := &HTTPClient{
		endpoint:  url,
		client:    &http.Client{Transport: http.DefaultTransport},
		userAgent: huntlay.UserAgent(),
		maxBatch:  huntlay.MaxBatchTexts,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// TranslateBatch posts {texts, target} and returns the translations of a
// well-formed reply. Anything but {ok: true} with one translation per text is
// an error. Texts beyond the batch size are sent in further requests and the
// replies joined; any failed request fails the whole batch.
func (h *HTTPClient) TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}

	out := make([]string, 0, len(texts))
	for start := 0; start < len(texts); start += h.maxBatch {
		end := min(start+h.maxBatch, len(texts))
		part, err := h.post(ctx, texts[start:end], targetLang)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}

func (h *HTTPClient) post(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	body, err := json.Marshal(huntlay.BatchRequest{Texts: texts, Target: targetLang})
	if err != nil {
		return nil, &huntlay.TranslationError{Message: "failed to encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &huntlay.TranslationError{Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &huntlay.TranslationError{Message: "translate request failed", Cause: err}
	}
	defer resp.Body.Close()

	var out huntlay.BatchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, &huntlay.ResponseError{
			StatusCode: resp.StatusCode,
			Message:    "malformed response",
			Cause:      err,
		}
	}

	if !out.OK || resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Error
		if msg == "" {
			msg = "translate failed"
		}
		return nil, &huntlay.ResponseError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out.Translations == nil {
		return nil, &huntlay.ResponseError{StatusCode: resp.StatusCode, Message: "missing translations"}
	}
	if len(out.Translations) != len(texts) {
		return nil, &huntlay.CountMismatchError{Expected: len(texts), Got: len(out.Translations)}
	}

	return out.Translations, nil
}

var _ huntlay.BatchTranslator = (*HTTPClient)(nil)
