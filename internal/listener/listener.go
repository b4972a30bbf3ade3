// Package listener provides scoped event subscriptions. Every attach returns
// a Subscription whose Close detaches the listener, so owners never have to
// find a stored callback again to remove it.
package listener

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Subscription detaches a listener when closed. Close is idempotent and
// safe on a nil receiver.
type Subscription struct {
	once   sync.Once
	detach func()
}

// NewSubscription wraps a detach function
func NewSubscription(detach func()) *Subscription {
	return &Subscription{detach: detach}
}

// Close detaches the listener
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.detach != nil {
			s.detach()
		}
	})
}

// Group closes a set of subscriptions together
type Group struct {
	mu   sync.Mutex
	subs []*Subscription
}

// Add takes ownership of sub
func (g *Group) Add(sub *Subscription) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subs = append(g.subs, sub)
}

// Len returns the number of owned subscriptions
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// Close detaches every owned subscription
func (g *Group) Close() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

type entry[T any] struct {
	id   uint64
	fn   func(T)
	once bool
}

// Set is a list of listeners for values of type T.
// Listeners run in registration order, outside the internal lock.
type Set[T any] struct {
	mu      sync.Mutex
	nextID  uint64
	entries []entry[T]
}

// Add attaches fn until the returned subscription is closed
func (s *Set[T]) Add(fn func(T)) *Subscription {
	return s.add(fn, false)
}

// Once attaches fn for a single Emit
func (s *Set[T]) Once(fn func(T)) *Subscription {
	return s.add(fn, true)
}

func (s *Set[T]) add(fn func(T), once bool) *Subscription {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.entries = append(s.entries, entry[T]{id: id, fn: fn, once: once})
	s.mu.Unlock()

	return NewSubscription(func() { s.remove(id) })
}

func (s *Set[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			return
		}
	}
}

// Emit calls every attached listener with v. Once-listeners are dropped
// before they run.
func (s *Set[T]) Emit(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.entries))
	kept := make([]entry[T], 0, len(s.entries))
	for _, e := range s.entries {
		fns = append(fns, e.fn)
		if !e.once {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of attached listeners
func (s *Set[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Reset detaches every listener
func (s *Set[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Debouncer runs fn once calls to Trigger have stopped for the configured delay
type Debouncer struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	delay   time.Duration
	fn      func()
	timer   clockwork.Timer
	stopped bool
}

// NewDebouncer creates a debouncer driven by clock
func NewDebouncer(clock clockwork.Clock, delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{clock: clock, delay: delay, fn: fn}
}

// Trigger restarts the delay
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, d.fn)
}

// Stop cancels a pending call. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Throttle admits at most one action per limit window
type Throttle struct {
	mu    sync.Mutex
	clock clockwork.Clock
	limit time.Duration
	last  time.Time
	fired bool
}

// NewThrottle creates a throttle driven by clock
func NewThrottle(clock clockwork.Clock, limit time.Duration) *Throttle {
	return &Throttle{clock: clock, limit: limit}
}

// Allow reports whether the caller may act now
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if t.fired && now.Sub(t.last) < t.limit {
		return false
	}
	t.last = now
	t.fired = true
	return true
}
