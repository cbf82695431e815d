package huntlay

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// scriptedProvider brackets every text and fails with errs in order first.
type scriptedProvider struct {
	mu       sync.Mutex
	errs     []error
	calls    int
	requests []TranslateRequest
	short    bool // drop the last translation of each call
}

func (p *scriptedProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	p.requests = append(p.requests, req)
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return nil, err
	}

	out := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		out[i] = "[" + text + "]"
	}
	if p.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

// mapCache is a minimal TranslationCache.
type mapCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]string)}
}

func (c *mapCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func TestTextTranslator_AlignsAndPreservesWhitespace(t *testing.T) {
	p := &scriptedProvider{}
	tr := NewTextTranslator(p)

	out, err := tr.TranslateBatch(context.Background(), []string{" חידה ", "", "מפה\n"}, "en")
	if err != nil {
		t.Fatalf("TranslateBatch failed: %v", err)
	}

	want := []string{" [חידה] ", "", "[מפה]\n"}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %q, want %q", i, out[i], want[i])
		}
	}
	if got := p.requests[0].Texts; len(got) != 2 || got[0] != "חידה" {
		t.Errorf("provider should receive trimmed non-blank texts, got %q", got)
	}
	if p.requests[0].SourceLang != BaseLang {
		t.Errorf("source language should default to %q", BaseLang)
	}
}

func TestTextTranslator_DeduplicatesAndCaches(t *testing.T) {
	p := &scriptedProvider{}
	c := newMapCache()
	tr := NewTextTranslator(p, WithCache(c))

	texts := []string{"אוצר", "אוצר", "  אוצר"}
	out, err := tr.TranslateBatch(context.Background(), texts, "en")
	if err != nil {
		t.Fatalf("TranslateBatch failed: %v", err)
	}
	if len(p.requests[0].Texts) != 1 {
		t.Errorf("duplicates should be sent once, got %q", p.requests[0].Texts)
	}
	if out[2] != "  [אוצר]" {
		t.Errorf("out[2] = %q", out[2])
	}

	if _, err := tr.TranslateBatch(context.Background(), texts, "en"); err != nil {
		t.Fatalf("second TranslateBatch failed: %v", err)
	}
	if p.calls != 1 {
		t.Errorf("second batch should be served from cache, provider calls = %d", p.calls)
	}
	if _, ok := c.Get(CacheKey(HashText("אוצר"), "he", "en")); !ok {
		t.Error("translation should be cached under the hash key")
	}
}

func TestTextTranslator_ChunksLargeBatches(t *testing.T) {
	p := &scriptedProvider{}
	tr := NewTextTranslator(p, WithBatchSize(2), WithConcurrency(2))

	texts := []string{"א", "ב", "ג", "ד", "ה"}
	out, err := tr.TranslateBatch(context.Background(), texts, "en")
	if err != nil {
		t.Fatalf("TranslateBatch failed: %v", err)
	}
	if p.calls != 3 {
		t.Errorf("expected 3 chunks, got %d calls", p.calls)
	}
	for i, text := range texts {
		if out[i] != "["+text+"]" {
			t.Errorf("out[%d] = %q, chunks must keep their positions", i, out[i])
		}
	}
}

func TestTextTranslator_SameLanguageIsIdentity(t *testing.T) {
	p := &scriptedProvider{}
	tr := NewTextTranslator(p)

	out, err := tr.TranslateBatch(context.Background(), []string{"שלום"}, "he_IL")
	if err != nil {
		t.Fatalf("TranslateBatch failed: %v", err)
	}
	if out[0] != "שלום" || p.calls != 0 {
		t.Error("translating into the source language should not call the provider")
	}
}

func TestTextTranslator_Errors(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		p := &scriptedProvider{errs: []error{&ProviderError{Message: "down"}}}
		_, err := NewTextTranslator(p).TranslateBatch(context.Background(), []string{"א"}, "en")
		var providerErr *ProviderError
		if !errors.As(err, &providerErr) {
			t.Errorf("expected ProviderError, got %v", err)
		}
	})

	t.Run("short response", func(t *testing.T) {
		p := &scriptedProvider{short: true}
		_, err := NewTextTranslator(p).TranslateBatch(context.Background(), []string{"א", "ב"}, "en")
		var mismatch *CountMismatchError
		if !errors.As(err, &mismatch) {
			t.Errorf("expected CountMismatchError, got %v", err)
		}
	})

	t.Run("no provider", func(t *testing.T) {
		_, err := NewTextTranslator(nil).TranslateBatch(context.Background(), []string{"א"}, "en")
		var trErr *TranslationError
		if !errors.As(err, &trErr) {
			t.Errorf("expected TranslationError, got %v", err)
		}
	})
}

func TestTextTranslator_PassesContextAndGlossary(t *testing.T) {
	p := &scriptedProvider{}
	tr := NewTextTranslator(p,
		WithContext("treasure hunt riddles"),
		WithGlossary(map[string]string{"אוצר": "treasure"}),
		WithSourceLang("he_IL"),
	)

	if _, err := tr.TranslateBatch(context.Background(), []string{"מפה"}, "en"); err != nil {
		t.Fatal(err)
	}
	req := p.requests[0]
	if req.Context != "treasure hunt riddles" || req.Glossary["אוצר"] != "treasure" {
		t.Errorf("unexpected request %+v", req)
	}
	if tr.SourceLang() != "he_IL" {
		t.Errorf("SourceLang() = %q", tr.SourceLang())
	}
}
