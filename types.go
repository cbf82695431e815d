package huntlay

import "context"

// BatchTranslator translates an ordered list of strings into targetLang.
// The returned slice is aligned with texts by position.
type BatchTranslator interface {
	TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error)
}

// AIProvider is the interface for translation backends.
type AIProvider interface {
	Translate(ctx context.Context, req TranslateRequest) ([]string, error)
}

// TranslateRequest contains the parameters for a provider call.
type TranslateRequest struct {
	Texts      []string
	TargetLang string
	SourceLang string
	Context    string            // Global context, e.g. "treasure hunt riddles"
	Glossary   map[string]string // Preferred translations for specific phrases
}

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// MaxBatchTexts is the most strings one /translate request may carry.
const MaxBatchTexts = 500

// BatchRequest is the JSON body of the /translate endpoint.
type BatchRequest struct {
	Texts  []string `json:"texts"`
	Target string   `json:"target"`
}

// BatchResponse is the JSON reply of the /translate endpoint. Translations is
// only meaningful when OK is true, and then has the length of the request.
type BatchResponse struct {
	OK           bool     `json:"ok"`
	Translations []string `json:"translations,omitempty"`
	Error        string   `json:"error,omitempty"`
}
