// Package playertest provides in-memory players for tests of code that
// drives domain.Player.
package playertest

import (
	"errors"
	"sync"
	"time"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/listener"
)

// ErrNoSource is returned by Play when nothing is bound
var ErrNoSource = errors.New("playertest: no source bound")

// Player is a fake domain.Player. Loads complete when Complete is called,
// or on Bind when the factory is in auto-ready mode.
type Player struct {
	factory *Factory

	mu        sync.Mutex
	source    string
	ready     bool
	playing   bool
	position  time.Duration
	detached  bool
	unloads   int
	listeners listener.Set[struct{}]
}

// Source returns the bound locator
func (p *Player) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

// Bind binds source and counts a network load
func (p *Player) Bind(source string) {
	p.mu.Lock()
	p.source = source
	p.ready = false
	p.playing = false
	p.position = 0
	p.listeners.Reset()
	if source != "" {
		p.ready = p.factory.autoReady()
	}
	p.mu.Unlock()

	if source != "" {
		p.factory.recordLoad(source)
	}
}

// Complete finishes the pending load and runs ready listeners
func (p *Player) Complete() {
	p.mu.Lock()
	if p.source == "" || p.ready {
		p.mu.Unlock()
		return
	}
	p.ready = true
	p.mu.Unlock()

	p.listeners.Emit(struct{}{})
}

// Fail ends the pending load with an error: the binding is dropped and
// ready listeners never run
func (p *Player) Fail() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.source == "" || p.ready {
		return
	}
	p.source = ""
	p.playing = false
	p.position = 0
	p.listeners.Reset()
}

// Ready reports whether the load finished
func (p *Player) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// OnReady runs fn once the load finishes, right away if it already has
func (p *Player) OnReady(fn func()) *listener.Subscription {
	p.mu.Lock()
	if p.ready {
		p.mu.Unlock()
		fn()
		return listener.NewSubscription(nil)
	}
	sub := p.listeners.Once(func(struct{}) { fn() })
	p.mu.Unlock()
	return sub
}

// Play starts playback unless the factory rejects it
func (p *Player) Play() error {
	if err := p.factory.playError(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.source == "" {
		return ErrNoSource
	}
	p.playing = true
	return nil
}

// Pause stops playback
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

// Seek sets the position
func (p *Player) Seek(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = pos
}

// Unload clears the binding
func (p *Player) Unload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = ""
	p.ready = false
	p.playing = false
	p.position = 0
	p.unloads++
	p.listeners.Reset()
}

// Detach marks the player as gone
func (p *Player) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detached = true
}

// Playing reports whether playback is running
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Position returns the playback position
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// Detached reports whether Detach was called
func (p *Player) Detached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detached
}

// Unloads counts Unload calls
func (p *Player) Unloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unloads
}

// Factory creates fake players and counts loads per source
type Factory struct {
	mu      sync.Mutex
	auto    bool
	playErr error
	players []*Player
	loads   map[string]int
}

// NewFactory creates a factory. With autoReady, every bind completes at once.
func NewFactory(autoReady bool) *Factory {
	return &Factory{auto: autoReady, loads: make(map[string]int)}
}

// NewPlayer satisfies domain.PlayerFactory
func (f *Factory) NewPlayer() domain.Player {
	p := &Player{factory: f}
	f.mu.Lock()
	f.players = append(f.players, p)
	f.mu.Unlock()
	return p
}

// RejectPlay makes every Play return err (nil restores normal playback)
func (f *Factory) RejectPlay(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playErr = err
}

// Players returns the players created so far
func (f *Factory) Players() []*Player {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Player, len(f.players))
	copy(out, f.players)
	return out
}

// Loads returns how many network loads were issued for source
func (f *Factory) Loads(source string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads[source]
}

// PlayerFor returns the player currently bound to source
func (f *Factory) PlayerFor(source string) *Player {
	for _, p := range f.Players() {
		if p.Source() == source {
			return p
		}
	}
	return nil
}

func (f *Factory) recordLoad(source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads[source]++
}

func (f *Factory) autoReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auto
}

func (f *Factory) playError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playErr
}
