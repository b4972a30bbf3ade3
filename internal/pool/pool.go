package pool

import (
	"slices"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/metrics"
	"go.uber.org/zap"
)

const defaultMaxFree = 2

// Handle is a pooled player. The pool owns it; Active only means it is
// borrowed by the rotation.
type Handle struct {
	id     int
	player domain.Player
	source string
	state  domain.HandleState
}

// ID returns the stable handle id
func (h *Handle) ID() int { return h.id }

// Player returns the underlying player
func (h *Handle) Player() domain.Player { return h.player }

// Source returns the locator the handle is bound to
func (h *Handle) Source() string { return h.source }

// State returns Idle or Active
func (h *Handle) State() domain.HandleState { return h.state }

// MediaPool hands out players keyed by source locator and keeps released
// ones bound, so a later acquire of the same source skips the network.
//
// It is not safe for concurrent use; the scheduler loop is its only caller.
type MediaPool struct {
	logger  *zap.Logger
	factory domain.PlayerFactory
	maxFree int

	nextID   int
	handles  map[int]*Handle // every handle the pool owns
	bySource map[string]int  // source locator -> handle id
	free     []int           // reusable handles, bounded by maxFree
}

// NewMediaPool creates an empty pool
func NewMediaPool(logger *zap.Logger, factory domain.PlayerFactory, cfg domain.Config) *MediaPool {
	maxFree := cfg.PoolSize()
	if maxFree <= 0 {
		maxFree = defaultMaxFree
	}
	return &MediaPool{
		logger:   logger,
		factory:  factory,
		maxFree:  maxFree,
		handles:  make(map[int]*Handle),
		bySource: make(map[string]int),
	}
}

// Acquire returns a handle bound to source. onReady, if not nil, runs once
// the source is loaded (immediately when it already is).
func (p *MediaPool) Acquire(source string, onReady func()) *Handle {
	if id, ok := p.bySource[source]; ok {
		h := p.handles[id]
		p.removeFree(id)
		h.state = domain.HandleActive

		ready := h.player.Ready()
		outcome := "cached"
		if !ready && h.player.Source() != source {
			// The last load failed and dropped the binding
			h.player.Bind(source)
			outcome = "retried"
			p.logger.Debug("Retrying failed media load", zap.Int("handle", id), zap.String("source", source))
		}

		if onReady != nil {
			if ready {
				onReady()
			} else {
				h.player.OnReady(onReady)
			}
		}

		metrics.PoolAcquires.WithLabelValues(outcome).Inc()
		p.logger.Debug("Serving media from cache", zap.Int("handle", id), zap.String("source", source))
		p.updateGauges()
		return h
	}

	var h *Handle
	outcome := "created"
	if n := len(p.free); n > 0 {
		h = p.handles[p.free[n-1]]
		p.free = p.free[:n-1]
		outcome = "reused"

		// The previous binding is about to be replaced, drop its cache entry
		if h.source != "" && p.bySource[h.source] == h.id {
			delete(p.bySource, h.source)
		}
	} else {
		p.nextID++
		h = &Handle{id: p.nextID, player: p.factory.NewPlayer()}
		p.handles[h.id] = h
	}

	if h.player.Source() != source {
		h.player.Bind(source)
	}
	h.source = source
	h.state = domain.HandleActive
	p.bySource[source] = h.id

	if onReady != nil {
		h.player.OnReady(onReady)
	}

	metrics.PoolAcquires.WithLabelValues(outcome).Inc()
	p.logger.Debug("Acquired media handle",
		zap.Int("handle", h.id),
		zap.String("source", source),
		zap.String("outcome", outcome))
	p.updateGauges()
	return h
}

// Release pauses h, rewinds it and makes it reusable. The source binding
// is kept so the handle can still be served from cache.
func (p *MediaPool) Release(h *Handle) {
	if h == nil {
		return
	}
	owned, ok := p.handles[h.id]
	if !ok || owned != h {
		p.logger.Warn("Release of a handle this pool does not own", zap.Int("handle", h.id))
		return
	}

	h.player.Pause()
	h.player.Seek(0)
	h.state = domain.HandleIdle

	if len(p.free) < p.maxFree && !slices.Contains(p.free, h.id) {
		p.free = append(p.free, h.id)
	}

	metrics.PoolReleases.Inc()
	p.updateGauges()
}

// Clear releases every active handle, then unloads and detaches every
// handle the pool owns. Only used at teardown.
func (p *MediaPool) Clear() {
	for _, id := range p.sortedIDs() {
		if h := p.handles[id]; h.state == domain.HandleActive {
			p.Release(h)
		}
	}

	for _, id := range p.sortedIDs() {
		h := p.handles[id]
		h.player.Unload()
		h.player.Detach()
		h.source = ""
	}

	count := len(p.handles)
	p.handles = make(map[int]*Handle)
	p.bySource = make(map[string]int)
	p.free = nil

	p.logger.Info("Media pool cleared", zap.Int("handles", count))
	p.updateGauges()
}

// Lookup returns the handle bound to source, if any
func (p *MediaPool) Lookup(source string) (*Handle, bool) {
	id, ok := p.bySource[source]
	if !ok {
		return nil, false
	}
	return p.handles[id], true
}

// Len returns the number of handles the pool owns
func (p *MediaPool) Len() int { return len(p.handles) }

// FreeLen returns the free list length
func (p *MediaPool) FreeLen() int { return len(p.free) }

// ActiveLen returns the number of borrowed handles
func (p *MediaPool) ActiveLen() int {
	n := 0
	for _, h := range p.handles {
		if h.state == domain.HandleActive {
			n++
		}
	}
	return n
}

func (p *MediaPool) removeFree(id int) {
	if i := slices.Index(p.free, id); i >= 0 {
		p.free = slices.Delete(p.free, i, i+1)
	}
}

func (p *MediaPool) sortedIDs() []int {
	ids := make([]int, 0, len(p.handles))
	for id := range p.handles {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (p *MediaPool) updateGauges() {
	active := p.ActiveLen()
	metrics.PoolHandles.WithLabelValues("active").Set(float64(active))
	metrics.PoolHandles.WithLabelValues("idle").Set(float64(len(p.handles) - active))
	metrics.PoolHandles.WithLabelValues("free").Set(float64(len(p.free)))
}
