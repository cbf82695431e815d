package overlay

import "sync"

// LanguageChanged is broadcast on every language change.
type LanguageChanged struct {
	Lang string `json:"lang"`
}

// Bus delivers LanguageChanged notifications to subscribers in subscription
// order. Publish is synchronous.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber
}

type subscriber struct {
	id int
	fn func(LanguageChanged)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(LanguageChanged)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish calls every subscriber with ev. Subscribers may subscribe or
// unsubscribe from inside their callback; the change applies to the next
// Publish.
func (b *Bus) Publish(ev LanguageChanged) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}
