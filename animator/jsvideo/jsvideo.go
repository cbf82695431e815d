//go:build js && wasm

// Package jsvideo binds the animator to <video> elements in a browser.
package jsvideo

import (
	"errors"
	"math"
	"sync"
	"syscall/js"

	"github.com/ZaguanLabs/huntlay/animator"
)

const (
	// ActiveClass marks the slot in the foreground.
	ActiveClass = "guide-active"
	// ArrivedClass marks the guide wrapper once the walk-in has started.
	ArrivedClass = "guide-arrived"

	currentSrcAttr = "data-current-src"
)

// VideoSlot is an animator.Slot over a <video> element.
type VideoSlot struct {
	el js.Value

	mu      sync.Mutex
	onEnded js.Func
}

// NewVideoSlot prepares el for silent inline playback.
func NewVideoSlot(el js.Value) *VideoSlot {
	el.Set("muted", true)
	el.Set("playsInline", true)
	el.Set("preload", "auto")
	el.Call("setAttribute", "aria-hidden", "true")
	return &VideoSlot{el: el}
}

// SlotByID returns the slot for the element with the given id, or nil when
// the page has no such element.
func SlotByID(id string) animator.Slot {
	el := js.Global().Get("document").Call("getElementById", id)
	if el.IsNull() || el.IsUndefined() {
		return nil
	}
	return NewVideoSlot(el)
}

func (s *VideoSlot) CanPlayType(mime string) bool {
	return s.el.Call("canPlayType", mime).String() != ""
}

func (s *VideoSlot) Source() string {
	v := s.el.Call("getAttribute", currentSrcAttr)
	if v.IsNull() {
		return ""
	}
	return v.String()
}

func (s *VideoSlot) SetSource(src string) {
	s.el.Call("setAttribute", currentSrcAttr, src)
	s.el.Set("src", src)
}

func (s *VideoSlot) Load() { s.el.Call("load") }

func (s *VideoSlot) SetVisible(visible bool) {
	v := "hidden"
	if visible {
		v = "visible"
	}
	s.el.Get("style").Set("visibility", v)
}

func (s *VideoSlot) SetActive(active bool) {
	if active {
		s.el.Get("classList").Call("add", ActiveClass)
	} else {
		s.el.Get("classList").Call("remove", ActiveClass)
	}
}

func (s *VideoSlot) SetLoop(loop bool) { s.el.Set("loop", loop) }

func (s *VideoSlot) Duration() float64 {
	d := s.el.Get("duration")
	if d.Type() != js.TypeNumber {
		return math.NaN()
	}
	return d.Float()
}

func (s *VideoSlot) Seek(seconds float64) (err error) {
	// setting currentTime throws in some browsers before metadata
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("jsvideo: seek rejected")
		}
	}()
	s.el.Set("currentTime", seconds)
	return nil
}

// Play starts playback and swallows the rejection of a blocked autoplay.
func (s *VideoSlot) Play() error {
	p := s.el.Call("play")
	if p.Type() == js.TypeObject && p.Get("catch").Type() == js.TypeFunction {
		var catch js.Func
		catch = js.FuncOf(func(js.Value, []js.Value) any {
			catch.Release()
			return nil
		})
		p.Call("catch", catch)
	}
	return nil
}

// Once registers fn for the next ev. fn runs on its own goroutine so it
// never executes inside the JS event dispatch.
func (s *VideoSlot) Once(ev animator.Event, fn func()) func() {
	var (
		once sync.Once
		cb   js.Func
	)
	release := func() {
		once.Do(func() {
			s.el.Call("removeEventListener", string(ev), cb)
			cb.Release()
		})
	}
	cb = js.FuncOf(func(js.Value, []js.Value) any {
		release()
		go fn()
		return nil
	})
	s.el.Call("addEventListener", string(ev), cb)
	return release
}

func (s *VideoSlot) SetOnEnded(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.onEnded.Truthy() {
		s.el.Set("onended", js.Null())
		s.onEnded.Release()
		s.onEnded = js.Func{}
	}
	if fn == nil {
		return
	}
	s.onEnded = js.FuncOf(func(js.Value, []js.Value) any {
		go fn()
		return nil
	})
	s.el.Set("onended", s.onEnded)
}

// Preloader loads clips into detached <video> elements.
type Preloader struct{}

type videoPreload struct {
	el js.Value
}

func (p videoPreload) Source() string {
	if cur := p.el.Get("currentSrc").String(); cur != "" {
		return cur
	}
	return p.el.Get("src").String()
}

func (Preloader) Preload(src string) animator.Preload {
	el := js.Global().Get("document").Call("createElement", "video")
	el.Set("preload", "auto")
	el.Set("muted", true)
	el.Set("playsInline", true)
	el.Set("src", src)
	el.Call("load")
	return videoPreload{el: el}
}

// Frames schedules work with requestAnimationFrame.
type Frames struct{}

func (Frames) RequestFrame(fn func()) {
	var cb js.Func
	cb = js.FuncOf(func(js.Value, []js.Value) any {
		cb.Release()
		go fn()
		return nil
	})
	js.Global().Call("requestAnimationFrame", cb)
}

// Stage is the guide wrapper element.
type Stage struct {
	el js.Value
}

// StageByID returns the wrapper with the given id, or nil if absent.
func StageByID(id string) animator.Stage {
	el := js.Global().Get("document").Call("getElementById", id)
	if el.IsNull() || el.IsUndefined() {
		return nil
	}
	return Stage{el: el}
}

func (s Stage) MarkArrived() {
	s.el.Get("classList").Call("add", ArrivedClass)
}

// NewGuide wires an animator to the page's guide elements: the two video
// slots and the wrapper. It returns nil when the page has no video slot.
func NewGuide(clips animator.ClipTable, primaryID, bufferID, wrapperID string) *animator.Animator {
	opts := []animator.Option{
		animator.WithPreloader(Preloader{}),
		animator.WithFrameScheduler(Frames{}),
	}
	if st := StageByID(wrapperID); st != nil {
		opts = append(opts, animator.WithStage(st))
	}
	a, err := animator.New(SlotByID(primaryID), SlotByID(bufferID), clips, opts...)
	if err != nil {
		return nil
	}
	return a
}

var (
	_ animator.Slot           = (*VideoSlot)(nil)
	_ animator.Preloader      = Preloader{}
	_ animator.FrameScheduler = Frames{}
	_ animator.Stage          = Stage{}
)
