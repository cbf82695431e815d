package animator

import "time"

// Event is a media element event the animator listens for.
type Event string

const (
	EventPlaying        Event = "playing"
	EventCanPlay        Event = "canplay"
	EventLoadedMetadata Event = "loadedmetadata"
)

// Slot is one of the two video surfaces the animator alternates between.
//
// Implementations must deliver Once and ended callbacks asynchronously, never
// from inside a Slot method: the animator holds its lock while calling them.
type Slot interface {
	// CanPlayType reports whether the slot can play the given MIME type.
	CanPlayType(mime string) bool
	// Source returns the source last assigned with SetSource.
	Source() string
	SetSource(src string)
	Load()
	SetVisible(visible bool)
	// SetActive toggles the slot's foreground marker.
	SetActive(active bool)
	SetLoop(loop bool)
	// Duration returns the clip length in seconds, or NaN when unknown.
	Duration() float64
	Seek(seconds float64) error
	// Play starts playback. The error of a blocked autoplay is ignored.
	Play() error
	// Once registers fn for the next occurrence of ev and returns a function
	// that removes the registration.
	Once(ev Event, fn func()) (cancel func())
	// SetOnEnded replaces the end-of-playback handler. nil clears it.
	SetOnEnded(fn func())
}

// Preload is a background-loading clip.
type Preload interface {
	// Source returns the resolved URI the clip is loading from.
	Source() string
}

// Preloader starts background loading of a clip.
type Preloader interface {
	Preload(src string) Preload
}

// Timer is a pending Clock callback.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed callbacks.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// FrameScheduler runs fn before the next repaint.
type FrameScheduler interface {
	RequestFrame(fn func())
}

// Stage is the element wrapping the guide.
type Stage interface {
	// MarkArrived shows the guide has finished walking in.
	MarkArrived()
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// frameDelay approximates one frame at 60 Hz.
const frameDelay = 16 * time.Millisecond

type clockFrames struct {
	clock Clock
}

func (c clockFrames) RequestFrame(fn func()) {
	c.clock.AfterFunc(frameDelay, fn)
}

type srcPreload string

func (p srcPreload) Source() string { return string(p) }

type noPreloader struct{}

func (noPreloader) Preload(src string) Preload { return srcPreload(src) }
