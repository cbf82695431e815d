package animator

import (
	"math"
	"sync"
	"time"
)

type handler struct {
	id int
	fn func()
}

// fakeSlot records what the animator does to it. Events are fired by the
// test with fire.
type fakeSlot struct {
	mu sync.Mutex

	name     string
	webm     bool
	src      string
	loads    int
	visible  bool
	active   bool
	loop     bool
	duration float64
	pos      float64
	seeks    []float64
	plays    int
	playErr  error
	onEnded  func()

	activatedAt float64 // position when last made active

	// keepCancelled leaves cancelled handlers registered, as if their
	// events were already queued.
	keepCancelled bool
	handlers      map[Event][]handler
	nextID        int
	calls         int
}

func newFakeSlot(name string) *fakeSlot {
	return &fakeSlot{
		name:     name,
		webm:     true,
		visible:  true,
		duration: math.NaN(),
		handlers: make(map[Event][]handler),
	}
}

func (s *fakeSlot) touch() { s.calls++ }

func (s *fakeSlot) CanPlayType(mime string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return mime == "video/webm" && s.webm
}

func (s *fakeSlot) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

func (s *fakeSlot) SetSource(src string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.src = src
}

func (s *fakeSlot) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.loads++
}

func (s *fakeSlot) SetVisible(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.visible = v
}

func (s *fakeSlot) SetActive(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.active = v
	if v {
		s.activatedAt = s.pos
	}
}

func (s *fakeSlot) SetLoop(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.loop = v
}

func (s *fakeSlot) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *fakeSlot) Seek(t float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.pos = t
	s.seeks = append(s.seeks, t)
	return nil
}

func (s *fakeSlot) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.plays++
	return s.playErr
}

func (s *fakeSlot) Once(ev Event, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.nextID++
	id := s.nextID
	s.handlers[ev] = append(s.handlers[ev], handler{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.keepCancelled {
			return
		}
		hs := s.handlers[ev]
		for i, h := range hs {
			if h.id == id {
				s.handlers[ev] = append(hs[:i:i], hs[i+1:]...)
				return
			}
		}
	}
}

func (s *fakeSlot) SetOnEnded(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.onEnded = fn
}

// fire delivers the given events together: every handler registered for any
// of them is collected before the first one runs.
func (s *fakeSlot) fire(evs ...Event) {
	s.mu.Lock()
	var fns []func()
	for _, ev := range evs {
		for _, h := range s.handlers[ev] {
			fns = append(fns, h.fn)
		}
		delete(s.handlers, ev)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *fakeSlot) end() {
	s.mu.Lock()
	fn := s.onEnded
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type slotView struct {
	src         string
	loads       int
	visible     bool
	active      bool
	loop        bool
	pos         float64
	plays       int
	calls       int
	activatedAt float64
	seeks       []float64
}

func (s *fakeSlot) view() slotView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slotView{
		src: s.src, loads: s.loads, visible: s.visible, active: s.active,
		loop: s.loop, pos: s.pos, plays: s.plays, calls: s.calls,
		activatedAt: s.activatedAt, seeks: append([]float64(nil), s.seeks...),
	}
}

type fakeTimer struct {
	clock   *fakeClock
	d       time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, d: d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// advance fires every pending timer.
func (c *fakeClock) advance() {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeFrames struct {
	mu  sync.Mutex
	fns []func()
}

func (f *fakeFrames) RequestFrame(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fns = append(f.fns, fn)
}

func (f *fakeFrames) run() {
	f.mu.Lock()
	fns := f.fns
	f.fns = nil
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type fakeStage struct {
	mu      sync.Mutex
	arrived bool
}

func (s *fakeStage) MarkArrived() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arrived = true
}

type fakePreloader struct {
	mu    sync.Mutex
	calls map[string]int
}

func (p *fakePreloader) Preload(src string) Preload {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[src]++
	return srcPreload(src)
}

func (p *fakePreloader) count(src string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[src]
}
