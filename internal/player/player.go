package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/listener"
	"go.uber.org/zap"
)

var (
	// ErrNoSource is returned by Play when nothing is bound
	ErrNoSource = errors.New("player: no source bound")
	// ErrDetached is returned by Play after Detach
	ErrDetached = errors.New("player: detached")
)

// Options are the playback attributes every background video gets
type Options struct {
	Muted       bool `json:"muted"`
	Loop        bool `json:"loop"`
	PlaysInline bool `json:"playsInline"`
}

// DefaultOptions matches the attributes of a silent looping backdrop
var DefaultOptions = Options{Muted: true, Loop: true, PlaysInline: true}

// HTTPPlayer is a headless player: binding a source downloads it into memory,
// playback state is tracked for the page to mirror.
type HTTPPlayer struct {
	logger  *zap.Logger
	fetcher domain.Fetcher
	baseCtx context.Context
	options Options

	mu       sync.Mutex
	source   string
	data     []byte
	ready    bool
	loads    int
	gen      uint64
	cancel   context.CancelFunc
	playing  bool
	position time.Duration
	detached bool

	readyListeners listener.Set[struct{}]
}

// NewHTTPPlayer creates a player whose loads live at most as long as ctx
func NewHTTPPlayer(ctx context.Context, logger *zap.Logger, fetcher domain.Fetcher, opts Options) *HTTPPlayer {
	return &HTTPPlayer{
		logger:  logger,
		fetcher: fetcher,
		baseCtx: ctx,
		options: opts,
	}
}

// Source returns the bound locator
func (p *HTTPPlayer) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

// Bind binds source and starts downloading it. Listeners of a previous load are dropped.
func (p *HTTPPlayer) Bind(source string) {
	p.mu.Lock()
	if p.detached {
		p.mu.Unlock()
		return
	}
	p.resetLocked()
	p.source = source
	if source == "" {
		p.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(p.baseCtx)
	p.cancel = cancel
	p.loads++
	gen := p.gen
	p.mu.Unlock()

	p.logger.Debug("Loading media", zap.String("source", source))
	go p.load(ctx, gen, source)
}

func (p *HTTPPlayer) load(ctx context.Context, gen uint64, source string) {
	data, err := p.fetcher.Fetch(ctx, source)

	p.mu.Lock()
	if gen != p.gen || p.detached {
		// Rebound or unloaded while downloading
		p.mu.Unlock()
		return
	}
	p.cancel = nil
	if err != nil {
		// Drop the binding so the next Bind of this source fetches again
		p.resetLocked()
		p.mu.Unlock()
		p.logger.Warn("Failed to load media", zap.String("source", source), zap.Error(err))
		return
	}
	p.data = data
	p.ready = true
	p.mu.Unlock()

	p.logger.Debug("Media ready", zap.String("source", source), zap.Int("bytes", len(data)))
	p.readyListeners.Emit(struct{}{})
}

// Ready reports whether the bound source finished loading
func (p *HTTPPlayer) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// OnReady runs fn once when the current load completes, or right away if it already has
func (p *HTTPPlayer) OnReady(fn func()) *listener.Subscription {
	p.mu.Lock()
	if p.ready {
		p.mu.Unlock()
		fn()
		return listener.NewSubscription(nil)
	}
	sub := p.readyListeners.Once(func(struct{}) { fn() })
	p.mu.Unlock()
	return sub
}

// Play starts playback
func (p *HTTPPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detached {
		return ErrDetached
	}
	if p.source == "" {
		return ErrNoSource
	}
	p.playing = true
	return nil
}

// Pause stops playback at the current position
func (p *HTTPPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

// Seek moves the playback position
func (p *HTTPPlayer) Seek(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = pos
}

// Unload clears the binding, cancels a running download and drops the buffered data
func (p *HTTPPlayer) Unload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

// Detach releases the player for good
func (p *HTTPPlayer) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	p.detached = true
}

func (p *HTTPPlayer) resetLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.gen++
	p.source = ""
	p.data = nil
	p.ready = false
	p.playing = false
	p.position = 0
	p.readyListeners.Reset()
}

// Playing reports whether playback is running
func (p *HTTPPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Position returns the playback position
func (p *HTTPPlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// Loads returns how many network loads this player has issued
func (p *HTTPPlayer) Loads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads
}

// Detached reports whether Detach was called
func (p *HTTPPlayer) Detached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detached
}

// Options returns the playback attributes
func (p *HTTPPlayer) Options() Options {
	return p.options
}

// Content returns the downloaded media, if loaded
func (p *HTTPPlayer) Content() ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data, p.ready
}
