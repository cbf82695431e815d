package game

import (
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/huntlay"
	"github.com/ZaguanLabs/huntlay/animator"
	"github.com/ZaguanLabs/huntlay/dom"
	"github.com/ZaguanLabs/huntlay/overlay"
)

// Element ids and classes of the riddle panel markup.
const (
	PanelID  = "riddle-panel"
	ToggleID = "riddle-toggle"

	CollapsedClass = "riddle-collapsed"
	HideClass      = "riddle-hide"
	RevealClass    = "riddle-reveal"
)

// HideDelay lets the hide animation play before the panel collapses.
const HideDelay = 320 * time.Millisecond

// RiddlePanel shows and hides the current riddle and keeps its toggle label
// in the active language.
type RiddlePanel struct {
	doc     *dom.Document
	refresh func()
	clock   animator.Clock

	mu          sync.Mutex
	expanded    bool
	hideTimer   animator.Timer
	hideGen     uint64
	unsubscribe func()
}

// PanelOption configures a RiddlePanel.
type PanelOption func(*RiddlePanel)

// WithRefresh sets the hook called after the panel changes the document.
func WithRefresh(fn func()) PanelOption {
	return func(p *RiddlePanel) { p.refresh = fn }
}

// WithPanelClock replaces the clock of the hide delay.
func WithPanelClock(c animator.Clock) PanelOption {
	return func(p *RiddlePanel) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithBus relabels the toggle on every LanguageChanged published on b.
func WithBus(b *overlay.Bus) PanelOption {
	return func(p *RiddlePanel) {
		if b != nil {
			p.unsubscribe = b.Subscribe(p.onLanguageChanged)
		}
	}
}

// NewRiddlePanel creates a panel over doc. The panel starts expanded but
// does not touch the document until SetExpanded is called.
func NewRiddlePanel(doc *dom.Document, opts ...PanelOption) *RiddlePanel {
	p := &RiddlePanel{
		doc:      doc,
		clock:    systemClock{},
		expanded: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Expanded reports whether the riddle is shown.
func (p *RiddlePanel) Expanded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expanded
}

// Toggle flips the panel state.
func (p *RiddlePanel) Toggle() {
	p.SetExpanded(!p.Expanded())
}

// SetExpanded shows or hides the riddle, relabels the toggle and calls the
// refresh hook so the new label is overlaid.
func (p *RiddlePanel) SetExpanded(expanded bool) {
	p.mu.Lock()
	p.expanded = expanded
	if p.hideTimer != nil {
		p.hideTimer.Stop()
		p.hideTimer = nil
	}
	p.hideGen++

	p.doc.Update(func(doc *goquery.Document) {
		panel := doc.Find("#" + PanelID)
		if expanded {
			doc.Find("body").RemoveClass(CollapsedClass)
			panel.RemoveClass(HideClass, RevealClass).AddClass(RevealClass)
		} else {
			panel.RemoveClass(RevealClass).AddClass(HideClass)
		}
		doc.Find("#" + ToggleID).SetText(Labels(documentLang(doc)).For(expanded))
	})

	if !expanded {
		gen := p.hideGen
		p.hideTimer = p.clock.AfterFunc(HideDelay, func() { p.collapse(gen) })
	}
	p.mu.Unlock()

	if p.refresh != nil {
		p.refresh()
	}
}

func (p *RiddlePanel) collapse(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.hideGen || p.expanded {
		return
	}
	p.hideTimer = nil
	p.doc.Update(func(doc *goquery.Document) {
		doc.Find("body").AddClass(CollapsedClass)
		doc.Find("#" + PanelID).RemoveClass(HideClass)
	})
}

func (p *RiddlePanel) onLanguageChanged(ev overlay.LanguageChanged) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Update(func(doc *goquery.Document) {
		lang := ev.Lang
		if lang == "" {
			lang = documentLang(doc)
		}
		doc.Find("#" + ToggleID).SetText(Labels(lang).For(p.expanded))
	})
}

// Close stops listening for language changes.
func (p *RiddlePanel) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
}

func documentLang(doc *goquery.Document) string {
	if lang, ok := doc.Find("html").Attr("lang"); ok && lang != "" {
		return lang
	}
	return huntlay.BaseLang
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, fn func()) animator.Timer {
	return time.AfterFunc(d, fn)
}
