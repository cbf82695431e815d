package game

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/huntlay/animator"
	"github.com/ZaguanLabs/huntlay/dom"
)

// Element ids the presenter writes to.
const (
	RiddleTextID  = "riddle-text"
	StatusID      = "status"
	SearchInputID = "search-input"

	RiddleIDAttr = "data-riddle-id"
)

const (
	soundDir = "/static/assets/sounds/"

	// TreasureSoundPath plays when the final treasure is found.
	TreasureSoundPath = soundDir + "MyBrotherIsGettingMarried.mp3"

	// PopupDelay lets the small confetti play before the success popup.
	PopupDelay = 1200 * time.Millisecond
	// CelebrationDelay lets the big confetti mostly clear before the
	// celebration overlay.
	CelebrationDelay = 2200 * time.Millisecond
)

// Riddle is a riddle as sent by the game server.
type Riddle struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Outcome is the game server's verdict on a guess.
type Outcome struct {
	Correct      bool    `json:"correct"`
	Message      string  `json:"message"`
	MessageIndex *int    `json:"message_index,omitempty"`
	Sound        string  `json:"sound,omitempty"`
	NextRiddle   *Riddle `json:"next_riddle"`
	Finished     bool    `json:"finished"`
}

// DecodeOutcome reads an Outcome from JSON.
func DecodeOutcome(r io.Reader) (Outcome, error) {
	var o Outcome
	if err := json.NewDecoder(r).Decode(&o); err != nil {
		return Outcome{}, fmt.Errorf("decode outcome: %w", err)
	}
	return o, nil
}

// Effects are the fire-and-forget page effects around an outcome.
type Effects interface {
	SmallConfetti()
	BigConfetti()
	PlaySound(path string)
	ShowPopup(message string)
	HidePopup()
	ShowCelebration(message string)
}

// Guide reacts to outcomes. *animator.Animator implements it.
type Guide interface {
	Happy()
	Sad()
}

// SuccessSoundPath resolves the sound of success message index: the custom
// sound if set, else the configured list, else success<N>.m4a. Relative
// names live under the sounds directory.
func SuccessSoundPath(index int, custom string, sounds []string) string {
	raw := custom
	if raw == "" && index >= 0 && index < len(sounds) {
		raw = sounds[index]
	}
	if raw == "" {
		raw = "success" + strconv.Itoa(index+1) + ".m4a"
	}
	if strings.HasPrefix(raw, "/") {
		return raw
	}
	return soundDir + raw
}

// Presenter applies outcomes to the page.
type Presenter struct {
	doc     *dom.Document
	panel   *RiddlePanel
	guide   Guide
	effects Effects
	refresh func()
	clock   animator.Clock
	sounds  []string
	logger  *slog.Logger
}

// PresenterOption configures a Presenter.
type PresenterOption func(*Presenter)

// WithGuide sets the guide animator.
func WithGuide(g Guide) PresenterOption {
	return func(p *Presenter) { p.guide = g }
}

// WithPresenterRefresh sets the hook called after riddle content changes.
func WithPresenterRefresh(fn func()) PresenterOption {
	return func(p *Presenter) { p.refresh = fn }
}

// WithPresenterClock replaces the clock of the popup and celebration delays.
func WithPresenterClock(c animator.Clock) PresenterOption {
	return func(p *Presenter) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithSuccessSounds sets the sounds of the success messages, by index.
func WithSuccessSounds(sounds []string) PresenterOption {
	return func(p *Presenter) { p.sounds = sounds }
}

// WithPresenterLogger sets the logger.
func WithPresenterLogger(l *slog.Logger) PresenterOption {
	return func(p *Presenter) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPresenter creates a presenter. effects must not be nil.
func NewPresenter(doc *dom.Document, panel *RiddlePanel, effects Effects, opts ...PresenterOption) *Presenter {
	p := &Presenter{
		doc:     doc,
		panel:   panel,
		effects: effects,
		clock:   systemClock{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleOutcome updates the page for o.
func (p *Presenter) HandleOutcome(ctx context.Context, o Outcome) {
	switch {
	case o.Correct && o.Finished:
		p.logger.InfoContext(ctx, "treasure found")
		p.treasure(o)
	case !o.Correct:
		p.logger.DebugContext(ctx, "wrong guess")
		p.wrong(o)
	default:
		next := -1
		if o.NextRiddle != nil {
			next = o.NextRiddle.ID
		}
		p.logger.DebugContext(ctx, "correct guess", "next_riddle", next)
		p.correct(o)
	}
}

func (p *Presenter) treasure(o Outcome) {
	p.doc.Update(func(doc *goquery.Document) {
		doc.Find("#"+RiddleTextID).SetText("").SetAttr(RiddleIDAttr, "-1")
	})
	p.showPanel(false)

	p.doc.Update(func(doc *goquery.Document) {
		doc.Find("#" + StatusID).SetText("")
		clearInput(doc)
	})

	p.effects.HidePopup()
	if p.guide != nil {
		p.guide.Happy()
	}
	p.effects.BigConfetti()
	p.effects.PlaySound(TreasureSoundPath)

	msg := o.Message
	p.clock.AfterFunc(CelebrationDelay, func() { p.effects.ShowCelebration(msg) })
}

func (p *Presenter) wrong(o Outcome) {
	p.setStatus(o.Message)
	p.effects.ShowPopup(o.Message)
	if p.guide != nil {
		p.guide.Sad()
	}
}

func (p *Presenter) correct(o Outcome) {
	p.setStatus(o.Message)
	if o.MessageIndex != nil {
		p.effects.PlaySound(SuccessSoundPath(*o.MessageIndex, o.Sound, p.sounds))
	}
	if p.guide != nil {
		p.guide.Happy()
	}

	if r := o.NextRiddle; r != nil {
		p.doc.Update(func(doc *goquery.Document) {
			doc.Find("#"+RiddleTextID).SetText(r.Text).SetAttr(RiddleIDAttr, strconv.Itoa(r.ID))
		})
		p.showPanel(true)
	}

	p.doc.Update(clearInput)
	p.effects.SmallConfetti()

	msg := o.Message
	p.clock.AfterFunc(PopupDelay, func() { p.effects.ShowPopup(msg) })
}

func (p *Presenter) setStatus(msg string) {
	p.doc.Update(func(doc *goquery.Document) {
		doc.Find("#" + StatusID).SetText(msg)
	})
}

// showPanel sets the riddle panel state and refreshes translations once. A
// panel with its own refresh hook already refreshes in SetExpanded.
func (p *Presenter) showPanel(expanded bool) {
	if p.panel != nil {
		p.panel.SetExpanded(expanded)
		if p.panel.refresh != nil {
			return
		}
	}
	if p.refresh != nil {
		p.refresh()
	}
}

func clearInput(doc *goquery.Document) {
	doc.Find("#" + SearchInputID).Each(func(_ int, s *goquery.Selection) {
		dom.SetValue(s.Get(0), "")
	})
}

// CurrentRiddleID returns the id of the riddle on the page, or -1 when none
// is shown.
func CurrentRiddleID(doc *dom.Document) int {
	id := -1
	doc.View(func(d *goquery.Document) {
		if v, ok := d.Find("#" + RiddleTextID).Attr(RiddleIDAttr); ok {
			if n, err := strconv.Atoi(v); err == nil {
				id = n
			}
		}
	})
	return id
}

var _ Guide = (*animator.Animator)(nil)
