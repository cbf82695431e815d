package provider

import "context"

// PassthroughProvider returns every text unchanged. It stands in when no
// translation key is configured, so pages keep working untranslated.
type PassthroughProvider struct{}

// Translate returns a copy of req.Texts.
func (PassthroughProvider) Translate(_ context.Context, req TranslateRequest) ([]string, error) {
	out := make([]string, len(req.Texts))
	copy(out, req.Texts)
	return out, nil
}

var _ AIProvider = PassthroughProvider{}
