package huntlay

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize is the number of texts sent to a provider per call.
	DefaultBatchSize = 80

	// DefaultConcurrency bounds the provider calls in flight for one batch.
	DefaultConcurrency = 4
)

// TextTranslator translates batches of strings through an AIProvider,
// deduplicating by content hash and serving repeats from a cache.
type TextTranslator struct {
	sourceLang  string
	provider    AIProvider
	cache       TranslationCache
	batchSize   int
	concurrency int
	context     string
	glossary    map[string]string
	logger      *slog.Logger
}

// TranslatorOption is a functional option for configuring the TextTranslator.
type TranslatorOption func(*TextTranslator)

// WithSourceLang sets the source language.
func WithSourceLang(lang string) TranslatorOption {
	return func(t *TextTranslator) {
		t.sourceLang = lang
	}
}

// WithCache sets the translation cache.
func WithCache(cache TranslationCache) TranslatorOption {
	return func(t *TextTranslator) {
		t.cache = cache
	}
}

// WithBatchSize sets how many texts go into a single provider call.
func WithBatchSize(n int) TranslatorOption {
	return func(t *TextTranslator) {
		if n > 0 {
			t.batchSize = n
		}
	}
}

// WithConcurrency sets how many provider calls may run at once.
func WithConcurrency(n int) TranslatorOption {
	return func(t *TextTranslator) {
		if n > 0 {
			t.concurrency = n
		}
	}
}

// WithContext sets the global translation context.
func WithContext(ctx string) TranslatorOption {
	return func(t *TextTranslator) {
		t.context = ctx
	}
}

// WithGlossary sets preferred translations for specific phrases.
func WithGlossary(glossary map[string]string) TranslatorOption {
	return func(t *TextTranslator) {
		t.glossary = glossary
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) TranslatorOption {
	return func(t *TextTranslator) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTextTranslator creates a TextTranslator backed by provider. The source
// language defaults to BaseLang.
func NewTextTranslator(provider AIProvider, opts ...TranslatorOption) *TextTranslator {
	t := &TextTranslator{
		sourceLang:  BaseLang,
		provider:    provider,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// TranslateBatch implements BatchTranslator. Blank strings are returned as
// they are; every other string is translated trimmed and re-wrapped in its
// original whitespace.
func (t *TextTranslator) TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	results := make([]string, len(texts))
	if SameLanguage(targetLang, t.sourceLang) {
		copy(results, texts)
		return results, nil
	}

	// positions maps a hash to every index holding that text
	positions := make(map[string][]int)
	var misses []string
	var missHashes []string
	cached := 0

	for i, text := range texts {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			results[i] = text
			continue
		}

		hash := HashText(trimmed)
		if t.cache != nil {
			if hit, ok := t.cache.Get(CacheKey(hash, t.sourceLang, targetLang)); ok {
				results[i] = PreserveWhitespace(text, hit)
				cached++
				continue
			}
		}

		if _, seen := positions[hash]; !seen {
			misses = append(misses, trimmed)
			missHashes = append(missHashes, hash)
		}
		positions[hash] = append(positions[hash], i)
	}

	if len(misses) == 0 {
		return results, nil
	}
	if t.provider == nil {
		return nil, &TranslationError{Message: "no translation provider configured"}
	}

	translated, err := t.translateMisses(ctx, misses, targetLang)
	if err != nil {
		return nil, err
	}

	for j, hash := range missHashes {
		if t.cache != nil {
			if err := t.cache.Set(CacheKey(hash, t.sourceLang, targetLang), translated[j]); err != nil {
				t.logger.Warn("cache set failed", "error", err)
			}
		}
		for _, i := range positions[hash] {
			results[i] = PreserveWhitespace(texts[i], translated[j])
		}
	}

	t.logger.Debug("batch translated",
		"target", targetLang,
		"texts", len(texts),
		"cached", cached,
		"translated", len(misses),
	)

	return results, nil
}

// translateMisses sends texts to the provider in chunks of batchSize.
func (t *TextTranslator) translateMisses(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	out := make([]string, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)

	for start := 0; start < len(texts); start += t.batchSize {
		end := min(start+t.batchSize, len(texts))
		chunk := texts[start:end]

		g.Go(func() error {
			res, err := t.provider.Translate(gctx, TranslateRequest{
				Texts:      chunk,
				TargetLang: targetLang,
				SourceLang: t.sourceLang,
				Context:    t.context,
				Glossary:   t.glossary,
			})
			if err != nil {
				return err
			}
			if len(res) != len(chunk) {
				return &CountMismatchError{Expected: len(chunk), Got: len(res)}
			}
			copy(out[start:end], res)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SourceLang returns the source language.
func (t *TextTranslator) SourceLang() string {
	return t.sourceLang
}

var _ BatchTranslator = (*TextTranslator)(nil)
