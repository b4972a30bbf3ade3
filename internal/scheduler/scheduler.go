package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/listener"
	"github.com/genricoloni/backdrop/internal/metrics"
	"github.com/genricoloni/backdrop/internal/pool"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	DefaultInterval    = 20 * time.Second
	DefaultPreloadLead = 2 * time.Second
	DefaultFade        = 1500 * time.Millisecond

	eventBuffer = 32
)

// DefaultTheme is the current theme until the first item starts
var DefaultTheme = domain.Theme{
	Primary:   "#06b6d4",
	Secondary: "#a855f7",
	Accent:    "#22d3ee",
	GlowColor: "rgba(34, 211, 238, 0.6)",
	Name:      "cyan",
}

// Scheduler rotates the configured media items: Steady(i) -> Preloading ->
// Transitioning -> Steady(i+1). A single loop goroutine owns the rotation
// state, the pool and the timer; everything else talks to it over channels.
type Scheduler struct {
	logger   *zap.Logger
	clock    clockwork.Clock
	pool     *pool.MediaPool
	sources  []domain.VisibilitySource
	items    []domain.MediaItem
	interval time.Duration
	lead     time.Duration
	fade     time.Duration

	events     chan domain.RotationEvent
	visibility chan domain.VisibilityChange
	ready      chan int
	quit       chan struct{}
	done       chan struct{}
	subs       listener.Group
	dropWarn   *listener.Throttle

	lifecycle sync.Mutex
	started   bool
	stopped   bool
	stopOnce  sync.Once

	// Owned by the loop goroutine
	state     domain.RotationState
	current   *pool.Handle
	next      *pool.Handle
	hidden    map[string]bool
	stepStart time.Time
	timer     clockwork.Timer

	// Read side for presentation code
	mu     sync.RWMutex
	snap   domain.RotationState
	theme  domain.Theme
	active domain.Player
}

// NewScheduler creates a scheduler over the configured playlist
func NewScheduler(
	logger *zap.Logger,
	clock clockwork.Clock,
	cfg domain.Config,
	mediaPool *pool.MediaPool,
	sources []domain.VisibilitySource,
) *Scheduler {
	items := append([]domain.MediaItem(nil), cfg.Playlist()...)

	interval := cfg.Interval()
	if interval <= 0 {
		interval = DefaultInterval
	}
	lead := cfg.PreloadLead()
	if lead <= 0 || lead >= interval {
		fixed := min(DefaultPreloadLead, interval/2)
		logger.Warn("Preload lead must be positive and shorter than the interval, adjusting",
			zap.Duration("lead", lead),
			zap.Duration("interval", interval),
			zap.Duration("adjusted", fixed))
		lead = fixed
	}
	fade := cfg.FadeDuration()
	if fade < 0 {
		fade = DefaultFade
	}

	phase := domain.PhaseSteady
	if len(items) == 0 {
		phase = domain.PhaseDisabled
	}
	state := domain.RotationState{Phase: phase}
	if len(items) > 0 {
		state.NextIndex = 1 % len(items)
	}

	return &Scheduler{
		logger:     logger,
		clock:      clock,
		pool:       mediaPool,
		sources:    sources,
		items:      items,
		interval:   interval,
		lead:       lead,
		fade:       fade,
		events:     make(chan domain.RotationEvent, eventBuffer),
		visibility: make(chan domain.VisibilityChange, 16),
		ready:      make(chan int, 2*len(items)+4),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		dropWarn:   listener.NewThrottle(clock, 5*time.Second),
		state:      state,
		hidden:     make(map[string]bool),
		snap:       state,
		theme:      DefaultTheme,
	}
}

// Start attaches the visibility sources and launches the rotation loop.
// It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.started {
		return nil
	}
	s.started = true

	for _, src := range s.sources {
		s.subs.Add(src.Subscribe(s.Notify))
	}

	s.logger.Info("Scheduler starting",
		zap.Int("items", len(s.items)),
		zap.Duration("interval", s.interval),
		zap.Duration("preloadLead", s.lead),
		zap.Duration("fade", s.fade))

	go s.runLoop()
	return nil
}

// Stop cancels pending timers, detaches every listener and clears the pool.
// No rotation work happens after it returns.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.lifecycle.Lock()
	running := s.started && !s.stopped
	first := !s.stopped
	s.started = true // a stopped scheduler cannot be started again
	s.stopped = true
	s.lifecycle.Unlock()

	s.subs.Close()
	s.stopOnce.Do(func() { close(s.quit) })

	if !running {
		if first {
			s.pool.Clear()
			s.setPhase(domain.PhaseStopped)
			close(s.events)
		}
		return nil
	}

	select {
	case <-s.done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns rotation events. The channel is closed once stopped.
func (s *Scheduler) Events() <-chan domain.RotationEvent {
	return s.events
}

// Notify reports a visibility change to the loop
func (s *Scheduler) Notify(change domain.VisibilityChange) {
	select {
	case s.visibility <- change:
	case <-s.quit:
	}
}

// SetPageVisible reports document visibility
func (s *Scheduler) SetPageVisible(visible bool) {
	s.Notify(domain.VisibilityChange{Source: "page", Kind: domain.VisibilityPage, Visible: visible})
}

// SetIntersecting reports whether the rotation container is in the viewport
func (s *Scheduler) SetIntersecting(intersecting bool) {
	s.Notify(domain.VisibilityChange{Source: "page", Kind: domain.VisibilityIntersection, Visible: intersecting})
}

// State returns a snapshot of the rotation state
func (s *Scheduler) State() domain.RotationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// CurrentTheme returns the theme presentation code should use now
func (s *Scheduler) CurrentTheme() domain.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// ActivePlayer returns the player on screen, nil when nothing plays
func (s *Scheduler) ActivePlayer() domain.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Items returns the configured playlist
func (s *Scheduler) Items() []domain.MediaItem {
	return append([]domain.MediaItem(nil), s.items...)
}

func (s *Scheduler) runLoop() {
	defer close(s.done)

	s.drainVisibility()
	s.begin()

	for {
		var timerC <-chan time.Time
		if s.timer != nil {
			timerC = s.timer.Chan()
		}

		select {
		case <-s.quit:
			s.teardown()
			return

		case change := <-s.visibility:
			s.handleVisibility(change)

		case idx := <-s.ready:
			s.emit(domain.EventMediaReady, idx)

		case <-timerC:
			s.timer = nil
			s.handleTimer()
		}
	}
}

// drainVisibility applies the changes sources replayed while attaching, so
// the first item never starts playing behind a hidden page
func (s *Scheduler) drainVisibility() {
	for {
		select {
		case change := <-s.visibility:
			s.applyVisibility(change)
		default:
			return
		}
	}
}

// begin puts item 0 on screen, paused when a source already reports hidden
func (s *Scheduler) begin() {
	if len(s.items) == 0 {
		s.logger.Warn("Playlist is empty, rotation disabled")
		return
	}

	s.current = s.pool.Acquire(s.items[0].Source, s.readyNotifier(0))

	s.mu.Lock()
	s.theme = s.items[0].Theme
	s.active = s.current.Player()
	s.mu.Unlock()

	if len(s.hidden) > 0 {
		s.setPhase(domain.PhaseSuspended)
		s.emit(domain.EventStarted, 0)
		s.logger.Info("Rotation starts suspended", zap.Int("hiddenSources", len(s.hidden)))
		s.emit(domain.EventSuspended, 0)
		return
	}

	s.play(s.current, 0)
	s.enterSteady(s.clock.Now())
	s.emit(domain.EventStarted, 0)
}

func (s *Scheduler) handleTimer() {
	switch s.state.Phase {
	case domain.PhaseSteady:
		s.preload()
	case domain.PhasePreloading:
		s.beginTransition()
	case domain.PhaseTransitioning:
		s.commitTransition()
		s.enterSteady(s.clock.Now())
		s.emit(domain.EventTransitionCompleted, s.state.CurrentIndex)
	}
}

// enterSteady starts a fresh interval at now
func (s *Scheduler) enterSteady(now time.Time) {
	s.state.Phase = domain.PhaseSteady
	s.stepStart = now
	s.publish()

	if len(s.items) < 2 {
		return
	}
	s.arm(s.stepStart.Add(s.interval - s.lead))
}

func (s *Scheduler) preload() {
	idx := s.state.NextIndex
	s.next = s.pool.Acquire(s.items[idx].Source, s.readyNotifier(idx))

	s.state.Phase = domain.PhasePreloading
	s.publish()
	s.arm(s.stepStart.Add(s.interval))

	s.logger.Debug("Preloading next item", zap.Int("index", idx), zap.String("source", s.items[idx].Source))
	s.emit(domain.EventPreload, idx)
}

func (s *Scheduler) beginTransition() {
	idx := s.state.NextIndex
	// Cached when the preload ran; loads now otherwise
	s.next = s.pool.Acquire(s.items[idx].Source, s.readyNotifier(idx))
	s.next.Player().Seek(0)
	s.play(s.next, idx)

	s.state.Phase = domain.PhaseTransitioning
	s.state.Transitioning = true

	s.mu.Lock()
	s.theme = s.items[idx].Theme
	s.active = s.next.Player()
	s.mu.Unlock()
	s.publish()

	s.arm(s.clock.Now().Add(s.fade))

	s.logger.Info("Transition started",
		zap.Int("from", s.state.CurrentIndex),
		zap.Int("to", idx),
		zap.String("theme", s.items[idx].Theme.Name))
	s.emit(domain.EventTransitionStarted, idx)
}

// commitTransition makes the incoming item current and releases the outgoing one
func (s *Scheduler) commitTransition() {
	prev := s.current
	s.current = s.next
	s.next = nil

	s.state.CurrentIndex = s.state.NextIndex
	s.state.NextIndex = (s.state.CurrentIndex + 1) % len(s.items)
	s.state.Transitioning = false

	if prev != nil && prev != s.current {
		s.pool.Release(prev)
	}
	s.publish()
}

// applyVisibility records change and reports whether the rotation was and
// now is hidden
func (s *Scheduler) applyVisibility(change domain.VisibilityChange) (wasSuspended, suspended bool) {
	key := change.Source + "/" + string(change.Kind)
	wasSuspended = len(s.hidden) > 0
	if change.Visible {
		delete(s.hidden, key)
	} else {
		s.hidden[key] = true
	}
	return wasSuspended, len(s.hidden) > 0
}

func (s *Scheduler) handleVisibility(change domain.VisibilityChange) {
	wasSuspended, suspended := s.applyVisibility(change)

	s.logger.Debug("Visibility changed",
		zap.String("source", change.Source),
		zap.String("kind", string(change.Kind)),
		zap.Bool("visible", change.Visible),
		zap.Bool("suspended", suspended))

	if s.state.Phase == domain.PhaseDisabled {
		return
	}

	switch {
	case !wasSuspended && suspended:
		s.suspend()
	case wasSuspended && !suspended:
		s.resume()
	}
}

func (s *Scheduler) suspend() {
	if s.state.Phase == domain.PhaseTransitioning {
		// The fade cannot be frozen, land on the incoming item
		s.commitTransition()
		s.emit(domain.EventTransitionCompleted, s.state.CurrentIndex)
	}
	s.stopTimer()

	if s.current != nil {
		s.current.Player().Pause()
	}

	s.state.Phase = domain.PhaseSuspended
	s.publish()

	s.logger.Info("Rotation suspended", zap.Int("index", s.state.CurrentIndex))
	s.emit(domain.EventSuspended, s.state.CurrentIndex)
}

func (s *Scheduler) resume() {
	if s.current != nil {
		s.play(s.current, s.state.CurrentIndex)
	}

	// Restart the interval instead of resuming the stale deadline
	s.enterSteady(s.clock.Now())

	s.logger.Info("Rotation resumed", zap.Int("index", s.state.CurrentIndex))
	s.emit(domain.EventResumed, s.state.CurrentIndex)
}

func (s *Scheduler) teardown() {
	s.stopTimer()
	s.subs.Close()
	s.pool.Clear()
	s.current = nil
	s.next = nil

	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()

	s.state.Phase = domain.PhaseStopped
	s.publish()
	s.emit(domain.EventStopped, s.state.CurrentIndex)
	close(s.events)
}

// play starts playback; a rejected start never stops the rotation
func (s *Scheduler) play(h *pool.Handle, idx int) {
	if err := h.Player().Play(); err != nil {
		metrics.PlaybackFailures.Inc()
		s.logger.Debug("Playback start rejected",
			zap.Int("index", idx),
			zap.String("source", h.Source()),
			zap.Error(err))
	}
}

// readyNotifier may run inline in the loop (cached media) or on a fetch
// goroutine, so it never blocks.
func (s *Scheduler) readyNotifier(idx int) func() {
	return func() {
		select {
		case s.ready <- idx:
		default:
		}
	}
}

func (s *Scheduler) arm(deadline time.Time) {
	s.stopTimer()
	s.timer = s.clock.NewTimer(deadline.Sub(s.clock.Now()))
}

func (s *Scheduler) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) setPhase(phase domain.Phase) {
	s.state.Phase = phase
	s.publish()
}

func (s *Scheduler) publish() {
	s.mu.Lock()
	s.snap = s.state
	s.mu.Unlock()
}

func (s *Scheduler) emit(kind domain.EventKind, idx int) {
	event := domain.RotationEvent{
		Kind:  kind,
		Index: idx,
		Theme: s.CurrentTheme(),
		At:    s.clock.Now(),
		State: s.state,
	}
	if idx >= 0 && idx < len(s.items) {
		event.Theme = s.items[idx].Theme
	}

	metrics.RotationEvents.WithLabelValues(string(kind)).Inc()

	// Non-blocking: a slow consumer must not stall the rotation
	select {
	case s.events <- event:
	default:
		metrics.DroppedEvents.Inc()
		if s.dropWarn.Allow() {
			s.logger.Warn("Events channel full, dropping rotation event",
				zap.String("kind", string(kind)))
		}
	}
}
