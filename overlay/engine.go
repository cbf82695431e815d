// Package overlay implements the translation overlay: it snapshots the
// translatable content of a live document, rewrites it in place with
// translations from a batch endpoint and restores the originals on demand.
package overlay

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/huntlay"
	"github.com/ZaguanLabs/huntlay/dom"
	"github.com/ZaguanLabs/huntlay/prefs"
	"golang.org/x/sync/semaphore"
)

// ToggleAttr marks language toggle controls. Its value is the language the
// control selects.
const ToggleAttr = "data-lang-toggle"

// PassResult describes one overlay pass.
type PassResult struct {
	Skipped    bool  // another pass was in flight; nothing was done
	Superseded bool  // the language changed while the request was in flight
	Collected  int   // locations sent for translation
	NewEntries int   // locations recorded in the snapshot for the first time
	Rewritten  int   // locations written with a translation
	Err        error // request or response failure; the document is untouched
}

// Engine is the overlay for one document.
type Engine struct {
	doc        *dom.Document
	translator huntlay.BatchTranslator
	collector  *dom.Collector
	prefs      prefs.Store
	bus        *Bus
	logger     *slog.Logger

	baseLang    string
	passTimeout time.Duration

	inflight *semaphore.Weighted

	mu     sync.Mutex // guards snap and active; taken after the document lock
	snap   *Snapshot
	active string
}

// Option configures an Engine.
type Option func(*Engine)

// WithPreferences sets where the chosen language is stored.
func WithPreferences(s prefs.Store) Option {
	return func(e *Engine) {
		if s != nil {
			e.prefs = s
		}
	}
}

// WithBus sets the bus LanguageChanged is published on.
func WithBus(b *Bus) Option {
	return func(e *Engine) {
		if b != nil {
			e.bus = b
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBaseLang sets the language the document is authored in.
func WithBaseLang(lang string) Option {
	return func(e *Engine) {
		if lang != "" {
			e.baseLang = lang
		}
	}
}

// WithCollector replaces the default collector.
func WithCollector(c *dom.Collector) Option {
	return func(e *Engine) {
		if c != nil {
			e.collector = c
		}
	}
}

// WithPassTimeout bounds the translate request of each pass. Zero, the
// default, leaves it unbounded.
func WithPassTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.passTimeout = d
	}
}

// New creates an overlay engine for doc.
func New(doc *dom.Document, translator huntlay.BatchTranslator, opts ...Option) *Engine {
	e := &Engine{
		doc:        doc,
		translator: translator,
		collector:  dom.NewCollector(),
		prefs:      prefs.NewMemory(),
		bus:        NewBus(),
		logger:     slog.Default(),
		baseLang:   huntlay.BaseLang,
		inflight:   semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Bus returns the bus LanguageChanged is published on.
func (e *Engine) Bus() *Bus { return e.bus }

// Document returns the document the engine overlays.
func (e *Engine) Document() *dom.Document { return e.doc }

// BaseLang returns the authored language.
func (e *Engine) BaseLang() string { return e.baseLang }

// SnapshotLen returns the number of recorded text and attribute originals.
func (e *Engine) SnapshotLen() (texts, attrs int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap.Len()
}

// CaptureAndTranslate runs one overlay pass into target. A call made while
// another pass is in flight returns immediately with Skipped set.
func (e *Engine) CaptureAndTranslate(ctx context.Context, target string) PassResult {
	if !e.inflight.TryAcquire(1) {
		e.logger.Debug("translation pass already in flight", "target", target)
		return PassResult{Skipped: true}
	}
	defer e.inflight.Release(1)

	var (
		res     PassResult
		targets []dom.Target
		texts   []string
	)

	e.doc.View(func(doc *goquery.Document) {
		targets = e.collector.Collect(doc)

		e.mu.Lock()
		defer e.mu.Unlock()
		if e.snap == nil {
			e.snap = newSnapshot()
		}
		texts = make([]string, len(targets))
		for i, t := range targets {
			src, added := e.snap.record(t)
			if added {
				res.NewEntries++
			}
			texts[i] = strings.TrimSpace(src)
		}
	})

	res.Collected = len(targets)
	if len(targets) == 0 {
		return res
	}

	if e.passTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.passTimeout)
		defer cancel()
	}

	start := time.Now()
	translations, err := e.translator.TranslateBatch(ctx, texts, target)
	if err == nil && len(translations) != len(texts) {
		err = &huntlay.CountMismatchError{Expected: len(texts), Got: len(translations)}
	}
	if err != nil {
		e.logger.Error("translation pass failed",
			"target", target, "texts", len(texts), "error", err)
		res.Err = err
		return res
	}

	e.doc.Update(func(*goquery.Document) {
		e.mu.Lock()
		defer e.mu.Unlock()

		if e.active != "" && !huntlay.SameLanguage(e.active, target) {
			res.Superseded = true
			return
		}

		for i, t := range targets {
			translated := translations[i]
			if strings.TrimSpace(translated) == "" {
				continue
			}
			// the location was replaced or edited while the request was out
			if !e.doc.Attached(t.Node) || t.Read() != t.Text {
				continue
			}
			out := huntlay.PreserveWhitespace(t.Text, translated)
			t.Write(out)
			e.snap.markApplied(t, out)
			res.Rewritten++
		}
	})

	if res.Superseded {
		e.logger.Debug("discarding translation pass after language change", "target", target)
		return res
	}

	e.logger.Info("translation pass applied",
		"target", target,
		"collected", res.Collected,
		"new_entries", res.NewEntries,
		"rewritten", res.Rewritten,
		"duration", time.Since(start))
	return res
}

// RestoreOriginal writes every recorded original back to its location if the
// location is still in the document. It returns the number of locations
// written and is idempotent.
func (e *Engine) RestoreOriginal() int {
	var written int
	e.doc.Update(func(*goquery.Document) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.snap == nil {
			return
		}
		written = e.snap.restore(e.doc.Attached)
	})
	return written
}

// ApplyLanguage switches the document to lang: it updates the document
// direction and toggle highlight, publishes LanguageChanged, then restores
// the originals for the base language or runs an overlay pass for any other.
// For the base language the result only reports the restored locations in
// Rewritten.
func (e *Engine) ApplyLanguage(ctx context.Context, lang string) PassResult {
	e.mu.Lock()
	e.active = lang
	e.mu.Unlock()

	e.doc.Update(func(doc *goquery.Document) {
		e.markLanguage(doc, lang)
	})
	e.bus.Publish(LanguageChanged{Lang: lang})

	if huntlay.SameLanguage(lang, e.baseLang) {
		n := e.RestoreOriginal()
		e.logger.Debug("restored originals", "written", n)
		return PassResult{Rewritten: n}
	}
	return e.CaptureAndTranslate(ctx, lang)
}

// SetLanguage stores lang as the preference and applies it. An empty lang is
// ignored.
func (e *Engine) SetLanguage(ctx context.Context, lang string) PassResult {
	if lang == "" {
		return PassResult{}
	}
	if err := e.prefs.Set(ctx, huntlay.PreferenceKey, lang); err != nil {
		e.logger.Warn("failed to store language preference", "lang", lang, "error", err)
	}
	return e.ApplyLanguage(ctx, lang)
}

// StoredLanguage returns the stored preference, or the base language when
// none is stored or the store fails.
func (e *Engine) StoredLanguage(ctx context.Context) string {
	lang, ok, err := e.prefs.Get(ctx, huntlay.PreferenceKey)
	if err != nil {
		e.logger.Warn("failed to read language preference", "error", err)
		return e.baseLang
	}
	if !ok || lang == "" {
		return e.baseLang
	}
	return lang
}

// Init marks the document with the stored language and applies it when it is
// not the base language.
func (e *Engine) Init(ctx context.Context) {
	lang := e.StoredLanguage(ctx)

	e.mu.Lock()
	e.active = lang
	e.mu.Unlock()

	e.doc.Update(func(doc *goquery.Document) {
		e.markLanguage(doc, lang)
	})

	if !huntlay.SameLanguage(lang, e.baseLang) {
		e.ApplyLanguage(ctx, lang)
	}
}

// RefreshTranslations re-applies the stored language when it is not the base
// language. Code that injects content calls it so the new content is
// overlaid too.
func (e *Engine) RefreshTranslations(ctx context.Context) {
	lang := e.StoredLanguage(ctx)
	if huntlay.SameLanguage(lang, e.baseLang) {
		return
	}
	e.ApplyLanguage(ctx, lang)
}

// RefreshHook returns RefreshTranslations as a plain function for
// collaborators. It must not be called while holding the document lock.
func (e *Engine) RefreshHook() func() {
	return func() {
		e.RefreshTranslations(context.Background())
	}
}

func (e *Engine) markLanguage(doc *goquery.Document, lang string) {
	root := doc.Find("html")
	root.SetAttr("lang", lang)
	root.SetAttr("dir", huntlay.Direction(lang, e.baseLang))

	doc.Find("[" + ToggleAttr + "]").Each(func(_ int, s *goquery.Selection) {
		if v, _ := s.Attr(ToggleAttr); v == lang {
			s.AddClass("active")
		} else {
			s.RemoveClass("active")
		}
	})
}
