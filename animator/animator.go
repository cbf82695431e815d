// Package animator drives the guide character: two video slots take turns
// being visible so that a new clip only replaces the old one once it can
// render, never showing a blank or half-loaded frame.
package animator

import (
	"errors"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultFallback is how long a ready transition waits for a playback signal
// before swapping anyway.
const DefaultFallback = 120 * time.Millisecond

// ErrNoSlot is returned by New when neither slot is provided.
var ErrNoSlot = errors.New("animator: no video slot")

// Options controls a single Play call.
type Options struct {
	Loop         bool
	StartAtEnd   bool   // start on the clip's last second
	LoopFromTail bool   // on end, jump back to the last second and keep playing
	OnEnded      func() // called when playback ends; ignored with LoopFromTail
}

// State is a view of the animator for inspection.
type State struct {
	Active     Slot
	Standby    Slot
	CurrentKey ClipKey
	Generation uint64
	Swaps      int
	Preloaded  []ClipKey
}

// transition is the state of one Play call.
type transition struct {
	gen     uint64
	slot    Slot
	opts    Options
	ready   bool
	swapped bool
	cancels []func()
	timer   Timer
}

func (t *transition) stop() {
	for _, c := range t.cancels {
		c()
	}
	t.cancels = nil
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Animator alternates two slots to play guide clips.
type Animator struct {
	mu sync.Mutex

	clips     ClipTable
	active    Slot
	standby   Slot
	preloader Preloader
	clock     Clock
	frames    FrameScheduler
	stage     Stage
	logger    *slog.Logger
	fallback  time.Duration

	currentKey  ClipKey
	pendingMeta func()
	preloads    map[ClipKey]Preload
	current     *transition
	gen         uint64
	swaps       int
}

// Option configures an Animator.
type Option func(*Animator)

// WithPreloader sets how clips are loaded ahead of use.
func WithPreloader(p Preloader) Option {
	return func(a *Animator) {
		if p != nil {
			a.preloader = p
		}
	}
}

// WithClock replaces the wall clock used for the fallback timer.
func WithClock(c Clock) Option {
	return func(a *Animator) {
		if c != nil {
			a.clock = c
		}
	}
}

// WithFrameScheduler sets how work is deferred to the next frame.
func WithFrameScheduler(f FrameScheduler) Option {
	return func(a *Animator) {
		if f != nil {
			a.frames = f
		}
	}
}

// WithStage sets the element marked when the guide has walked in.
func WithStage(s Stage) Option {
	return func(a *Animator) {
		a.stage = s
	}
}

// WithFallback sets the fallback swap delay.
func WithFallback(d time.Duration) Option {
	return func(a *Animator) {
		if d > 0 {
			a.fallback = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Animator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an animator over a primary and a buffer slot. With only one
// slot the animator still plays clips, without double buffering.
func New(primary, buffer Slot, clips ClipTable, opts ...Option) (*Animator, error) {
	if primary == nil {
		primary = buffer
	}
	if primary == nil {
		return nil, ErrNoSlot
	}
	if buffer == nil {
		buffer = primary
	}

	a := &Animator{
		clips:     clips,
		active:    primary,
		standby:   buffer,
		preloader: noPreloader{},
		clock:     realClock{},
		logger:    slog.Default(),
		fallback:  DefaultFallback,
		preloads:  make(map[ClipKey]Preload),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.frames == nil {
		a.frames = clockFrames{clock: a.clock}
	}
	return a, nil
}

// State returns a snapshot of the animator's state.
func (a *Animator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := State{
		Active:     a.active,
		Standby:    a.standby,
		CurrentKey: a.currentKey,
		Generation: a.gen,
		Swaps:      a.swaps,
	}
	for k := range a.preloads {
		s.Preloaded = append(s.Preloaded, k)
	}
	sort.Slice(s.Preloaded, func(i, j int) bool { return s.Preloaded[i] < s.Preloaded[j] })
	return s
}

// Preload starts loading key in the background. Later requests reuse the
// same load.
func (a *Animator) Preload(key ClipKey) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.preloadLocked(key)
}

func (a *Animator) preloadLocked(key ClipKey) Preload {
	if p, ok := a.preloads[key]; ok {
		return p
	}
	src := a.pickBestSource(a.clips[key])
	if src == "" {
		return nil
	}
	p := a.preloader.Preload(src)
	a.preloads[key] = p
	return p
}

// pickBestSource prefers webm when the active slot can play it, then mp4,
// then the first candidate.
func (a *Animator) pickBestSource(files ClipSource) string {
	if len(files) == 0 {
		return ""
	}
	if a.active.CanPlayType("video/webm") {
		for _, f := range files {
			if strings.HasSuffix(f, ".webm") {
				return f
			}
		}
	}
	for _, f := range files {
		if strings.HasSuffix(f, ".mp4") {
			return f
		}
	}
	return files[0]
}

// Play transitions the guide to key. Unknown keys are ignored. A later Play
// supersedes an earlier one whose swap has not happened yet.
func (a *Animator) Play(key ClipKey, opts Options) {
	a.mu.Lock()
	defer a.mu.Unlock()

	files, ok := a.clips[key]
	if !ok || len(files) == 0 {
		a.logger.Debug("unknown guide clip", "key", key)
		return
	}

	chosen := a.pickBestSource(files)
	if p := a.preloadLocked(key); p != nil && p.Source() != "" {
		chosen = p.Source()
	}

	if a.current != nil {
		a.current.stop()
	}
	a.gen++
	t := &transition{gen: a.gen, slot: a.standby, opts: opts}
	a.current = t

	target := t.slot
	target.SetVisible(false)
	if a.currentKey != key || target.Source() != chosen {
		a.currentKey = key
		target.SetSource(chosen)
		target.Load()
	}

	if a.pendingMeta != nil {
		a.pendingMeta()
		a.pendingMeta = nil
	}

	target.SetLoop(opts.Loop)
	target.SetOnEnded(nil)

	if opts.StartAtEnd {
		if knownDuration(target.Duration()) {
			seekToTail(target)
			t.ready = true
		} else {
			a.pendingMeta = target.Once(EventLoadedMetadata, func() { a.onMetadata(t) })
		}
	} else {
		_ = target.Seek(0)
		t.ready = true
	}

	switch {
	case opts.LoopFromTail:
		target.SetLoop(false)
		target.SetOnEnded(func() {
			seekToTail(target)
			_ = target.Play()
		})
	case opts.OnEnded != nil:
		target.SetOnEnded(opts.OnEnded)
	}

	t.cancels = append(t.cancels,
		target.Once(EventPlaying, func() { a.onSignal(t) }),
		target.Once(EventCanPlay, func() { a.onSignal(t) }),
	)
	t.timer = a.clock.AfterFunc(a.fallback, func() { a.onFallback(t) })

	if err := target.Play(); err != nil {
		a.logger.Debug("guide playback rejected", "key", key, "error", err)
	}
}

func (a *Animator) onMetadata(t *transition) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t.gen != a.gen {
		return
	}
	a.pendingMeta = nil
	seekToTail(t.slot)
	t.ready = true
	a.swapLocked(t)
}

// onSignal handles playing and canplay. A tail start still waiting for
// metadata becomes ready here if the duration is now known.
func (a *Animator) onSignal(t *transition) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t.gen != a.gen {
		return
	}
	if !t.ready && knownDuration(t.slot.Duration()) {
		if a.pendingMeta != nil {
			a.pendingMeta()
			a.pendingMeta = nil
		}
		seekToTail(t.slot)
		t.ready = true
	}
	a.swapLocked(t)
}

func (a *Animator) onFallback(t *transition) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.swapLocked(t)
}

// swapLocked shows the transition's slot and exchanges the slot roles. It
// acts at most once per transition, only when the transition is ready and
// still the latest.
func (a *Animator) swapLocked(t *transition) {
	if t.swapped || !t.ready || t.gen != a.gen {
		return
	}
	t.swapped = true
	t.stop()

	t.slot.SetVisible(true)
	t.slot.SetActive(true)
	if a.standby != a.active {
		a.active.SetActive(false)
		a.active, a.standby = t.slot, a.active
	}
	a.swaps++
}

// WalkIn plays the arrival clip, then settles into the idle loop. The stage
// is marked arrived on the next frame.
func (a *Animator) WalkIn() {
	a.Play(Walk, Options{OnEnded: a.Waiting})
	if a.stage != nil {
		a.frames.RequestFrame(a.stage.MarkArrived)
	}
}

// Happy plays the positive reaction, then the idle loop.
func (a *Animator) Happy() {
	a.Play(Happy, Options{OnEnded: a.Waiting})
}

// Sad plays the negative reaction, then the idle loop.
func (a *Animator) Sad() {
	a.Play(Sad, Options{OnEnded: a.Waiting})
}

// Waiting enters the idle loop directly.
func (a *Animator) Waiting() {
	a.Play(Waiting, Options{StartAtEnd: true, LoopFromTail: true})
}

func knownDuration(d float64) bool {
	return !math.IsNaN(d) && !math.IsInf(d, 0) && d > 0
}

// TailPosition returns the position of a clip's last second.
func TailPosition(duration float64) float64 {
	if !knownDuration(duration) {
		return 0
	}
	return math.Max(duration-1, 0)
}

func seekToTail(s Slot) {
	// seeking can fail before metadata; the loop simply restarts from 0
	_ = s.Seek(TailPosition(s.Duration()))
}
