// Package session holds the process-wide authentication state: the identity
// of whoever last signed in to the clinic, plus subscribers that want to know
// when it changes.
package session

import (
	"sync"
	"time"

	"github.com/clinic/clinic/internal/platform/auth"
)

type EventType string

const (
	SignedIn  EventType = "signed_in"
	SignedOut EventType = "signed_out"
)

// Event is delivered to subscribers on every identity change.
type Event struct {
	Type     EventType     `json:"type"`
	Identity auth.Identity `json:"identity"`
	At       time.Time     `json:"at"`
}

// Holder is created once at startup and shared by reference. It is safe for
// concurrent use.
type Holder struct {
	mu      sync.RWMutex
	current *auth.Identity
	since   time.Time
	subs    map[uint64]func(Event)
	nextID  uint64
	closed  bool
	now     func() time.Time
}

func NewHolder() *Holder {
	return &Holder{subs: make(map[uint64]func(Event)), now: time.Now}
}

// Current returns the signed-in identity, or false when nobody is.
func (h *Holder) Current() (auth.Identity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return auth.Identity{}, false
	}
	return *h.current, true
}

// Since reports when the current identity was set.
func (h *Holder) Since() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.since
}

// Set records an auth event. Subscribers are notified only when the identity
// actually changes, so token refreshes for the same user stay silent.
func (h *Holder) Set(id auth.Identity) {
	h.mu.Lock()
	if h.closed || (h.current != nil && *h.current == id) {
		h.mu.Unlock()
		return
	}
	h.current = &id
	h.since = h.now()
	evt := Event{Type: SignedIn, Identity: id, At: h.since}
	subs := h.snapshot()
	h.mu.Unlock()

	notify(subs, evt)
}

// Clear records a sign-out.
func (h *Holder) Clear() {
	h.mu.Lock()
	if h.closed || h.current == nil {
		h.mu.Unlock()
		return
	}
	evt := Event{Type: SignedOut, Identity: *h.current, At: h.now()}
	h.current = nil
	h.since = time.Time{}
	subs := h.snapshot()
	h.mu.Unlock()

	notify(subs, evt)
}

// Subscribe registers fn for future events and returns its unsubscribe func.
// Calling the returned func more than once is harmless.
func (h *Holder) Subscribe(fn func(Event)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Holder) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close tears the holder down: subscribers are dropped and later events are
// ignored.
func (h *Holder) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.current = nil
	h.subs = make(map[uint64]func(Event))
}

// snapshot must be called with h.mu held.
func (h *Holder) snapshot() []func(Event) {
	out := make([]func(Event), 0, len(h.subs))
	for _, fn := range h.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(Event), evt Event) {
	for _, fn := range subs {
		fn(evt)
	}
}
