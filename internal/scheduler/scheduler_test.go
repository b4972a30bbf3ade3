package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/listener"
	"github.com/genricoloni/backdrop/internal/player/playertest"
	"github.com/genricoloni/backdrop/internal/pool"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type testConfig struct {
	items    []domain.MediaItem
	interval time.Duration
	lead     time.Duration
	fade     time.Duration
}

func (c testConfig) Playlist() []domain.MediaItem { return c.items }
func (c testConfig) Interval() time.Duration { return c.interval }
func (c testConfig) PreloadLead() time.Duration { return c.lead }
func (c testConfig) FadeDuration() time.Duration { return c.fade }
func (c testConfig) PoolSize() int { return 2 }
func (c testConfig) MaxMediaBytes() int64 { return 0 }
func (c testConfig) Addr() string { return "" }
func (c testConfig) OutputDir() string { return "" }
func (c testConfig) StaticDir() string { return "" }

// fakeSource is a visibility source tests drive by hand
type fakeSource struct {
	listeners listener.Set[domain.VisibilityChange]
	// hidden is replayed to new subscribers
	hidden bool
}

func (f *fakeSource) Subscribe(fn func(domain.VisibilityChange)) *listener.Subscription {
	sub := f.listeners.Add(fn)
	if f.hidden {
		fn(domain.VisibilityChange{Source: "screensaver", Kind: domain.VisibilityPage, Visible: false})
	}
	return sub
}

func makeItems(n int) []domain.MediaItem {
	names := []string{"cyan", "amber", "emerald", "violet", "rose", "slate"}
	items := make([]domain.MediaItem, n)
	for i := range items {
		items[i] = domain.MediaItem{
			Source: fmt.Sprintf("https://cdn.example/video-%d.mp4", i),
			Theme:  domain.Theme{Name: names[i%len(names)], Primary: fmt.Sprintf("#00000%d", i)},
		}
	}
	return items
}

type harness struct {
	t       *testing.T
	clock   *clockwork.FakeClock
	base    time.Time
	factory *playertest.Factory
	pool    *pool.MediaPool
	sched   *Scheduler
	source  *fakeSource
}

func newHarness(t *testing.T, n int) *harness {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(base)
	factory := playertest.NewFactory(true)
	cfg := testConfig{
		items:    makeItems(n),
		interval: 20 * time.Second,
		lead:     2 * time.Second,
		fade:     1500 * time.Millisecond,
	}
	mediaPool := pool.NewMediaPool(zap.NewNop(), factory, cfg)
	source := &fakeSource{}
	sched := NewScheduler(zap.NewNop(), clock, cfg, mediaPool, []domain.VisibilitySource{source})

	h := &harness{t: t, clock: clock, base: base, factory: factory, pool: mediaPool, sched: sched, source: source}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = sched.Stop(ctx)
	})
	return h
}

func (h *harness) start() {
	h.t.Helper()
	if err := h.sched.Start(context.Background()); err != nil {
		h.t.Fatalf("Start failed: %v", err)
	}
}

// expect waits for the next event of kind, skipping media_ready notices.
// Any other kind arriving first fails the test.
func (h *harness) expect(kind domain.EventKind) domain.RotationEvent {
	h.t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case ev, ok := <-h.sched.Events():
			if !ok {
				h.t.Fatalf("events channel closed while waiting for %s", kind)
			}
			if ev.Kind == domain.EventMediaReady && kind != domain.EventMediaReady {
				continue
			}
			if ev.Kind != kind {
				h.t.Fatalf("expected %s event, got %s", kind, ev.Kind)
			}
			return ev
		case <-timeout:
			h.t.Fatalf("Timeout waiting for %s event", kind)
		}
	}
}

// expectQuiet asserts no rotation event (other than media_ready) shows up
func (h *harness) expectQuiet() {
	h.t.Helper()
	timeout := time.After(50 * time.Millisecond)
	for {
		select {
		case ev := <-h.sched.Events():
			if ev.Kind != domain.EventMediaReady {
				h.t.Fatalf("unexpected %s event", ev.Kind)
			}
		case <-timeout:
			return
		}
	}
}

// waitTimers blocks until exactly n timers are pending on the fake clock
func (h *harness) waitTimers(n int) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.clock.BlockUntilContext(ctx, n); err != nil {
		h.t.Fatalf("expected %d pending timers: %v", n, err)
	}
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
}

func (h *harness) offset(ev domain.RotationEvent) time.Duration {
	return ev.At.Sub(h.base)
}

func (h *harness) player(i int) *playertest.Player {
	return h.factory.PlayerFor(h.sched.items[i].Source)
}

func TestRotation_FourItemsTimeline(t *testing.T) {
	h := newHarness(t, 4)
	h.start()

	started := h.expect(domain.EventStarted)
	if started.Index != 0 || h.sched.CurrentTheme().Name != "cyan" {
		t.Fatalf("expected item 0 with cyan theme, got %d/%s", started.Index, h.sched.CurrentTheme().Name)
	}
	if !h.player(0).Playing() {
		t.Error("item 0 must be playing")
	}

	h.waitTimers(1)
	h.advance(18*time.Second - time.Millisecond)
	h.expectQuiet()

	h.advance(time.Millisecond)
	preload := h.expect(domain.EventPreload)
	if preload.Index != 1 || h.offset(preload) != 18*time.Second {
		t.Errorf("expected preload of item 1 at 18s, got item %d at %v", preload.Index, h.offset(preload))
	}
	if p := h.player(1); p == nil || p.Playing() {
		t.Error("preloaded item must be loaded but not playing")
	}
	if h.sched.CurrentTheme().Name != "cyan" {
		t.Error("theme must not change on preload")
	}

	h.waitTimers(1)
	h.advance(2 * time.Second)
	started1 := h.expect(domain.EventTransitionStarted)
	if started1.Index != 1 || h.offset(started1) != 20*time.Second {
		t.Errorf("expected transition to item 1 at 20s, got item %d at %v", started1.Index, h.offset(started1))
	}
	if h.sched.CurrentTheme().Name != "amber" {
		t.Errorf("theme must switch at transition start, got %s", h.sched.CurrentTheme().Name)
	}
	st := h.sched.State()
	if st.CurrentIndex != 0 || !st.Transitioning || st.Phase != domain.PhaseTransitioning {
		t.Errorf("unexpected state during fade: %+v", st)
	}
	if !h.player(1).Playing() || h.player(1).Position() != 0 {
		t.Error("incoming item must play from the start")
	}

	h.waitTimers(1)
	h.advance(1500 * time.Millisecond)
	done := h.expect(domain.EventTransitionCompleted)
	if done.Index != 1 || h.offset(done) != 21500*time.Millisecond {
		t.Errorf("expected completion at 21.5s, got item %d at %v", done.Index, h.offset(done))
	}

	st = h.sched.State()
	if st.CurrentIndex != 1 || st.NextIndex != 2 || st.Transitioning || st.Phase != domain.PhaseSteady {
		t.Errorf("unexpected state after commit: %+v", st)
	}
	// Outgoing item released: paused, rewound, still bound
	if p := h.player(0); p == nil || p.Playing() || p.Position() != 0 {
		t.Error("outgoing item must be released")
	}
	if h.pool.FreeLen() != 1 {
		t.Errorf("expected the outgoing handle on the free list, free=%d", h.pool.FreeLen())
	}
}

func TestRotation_HiddenPageRestartsInterval(t *testing.T) {
	h := newHarness(t, 4)
	h.start()
	h.expect(domain.EventStarted)
	h.waitTimers(1)

	h.advance(5 * time.Second)
	h.sched.SetPageVisible(false)
	suspended := h.expect(domain.EventSuspended)
	if h.offset(suspended) != 5*time.Second {
		t.Errorf("expected suspension at 5s, got %v", h.offset(suspended))
	}
	if h.player(0).Playing() {
		t.Error("active item must pause while hidden")
	}
	if h.sched.State().Phase != domain.PhaseSuspended {
		t.Errorf("expected suspended phase, got %s", h.sched.State().Phase)
	}
	h.waitTimers(0)

	h.advance(4 * time.Second)
	h.expectQuiet()

	h.sched.SetPageVisible(true)
	resumed := h.expect(domain.EventResumed)
	if h.offset(resumed) != 9*time.Second {
		t.Errorf("expected resume at 9s, got %v", h.offset(resumed))
	}
	if !h.player(0).Playing() {
		t.Error("active item must play again once visible")
	}

	h.waitTimers(1)
	// The old deadline (18s) must not fire
	h.advance(9 * time.Second)
	h.expectQuiet()

	h.waitTimers(1)
	h.advance(9 * time.Second)
	preload := h.expect(domain.EventPreload)
	if h.offset(preload) != 27*time.Second {
		t.Errorf("expected preload 18s after resuming (27s), got %v", h.offset(preload))
	}

	h.waitTimers(1)
	h.advance(2 * time.Second)
	transition := h.expect(domain.EventTransitionStarted)
	if h.offset(transition) != 29*time.Second {
		t.Errorf("expected transition 20s after resuming (29s), got %v", h.offset(transition))
	}
}

func TestRotation_SuspensionNoTimersWhileHidden(t *testing.T) {
	h := newHarness(t, 3)
	h.start()
	h.expect(domain.EventStarted)
	h.waitTimers(1)

	h.sched.SetIntersecting(false)
	h.expect(domain.EventSuspended)
	h.waitTimers(0)

	h.advance(time.Minute)
	h.expectQuiet()

	if st := h.sched.State(); st.CurrentIndex != 0 {
		t.Errorf("rotation advanced while off-screen: %+v", st)
	}
}

func TestRotation_CombinedVisibility(t *testing.T) {
	h := newHarness(t, 3)
	h.start()
	h.expect(domain.EventStarted)

	h.sched.SetPageVisible(false)
	h.expect(domain.EventSuspended)

	h.sched.SetIntersecting(false)
	h.sched.SetPageVisible(true)
	// Still off-screen
	h.expectQuiet()
	if h.sched.State().Phase != domain.PhaseSuspended {
		t.Fatalf("expected suspension while off-screen, got %s", h.sched.State().Phase)
	}

	h.sched.SetIntersecting(true)
	h.expect(domain.EventResumed)
}

func TestRotation_VisibilitySourceSubscription(t *testing.T) {
	h := newHarness(t, 2)
	h.start()
	h.expect(domain.EventStarted)

	if h.source.listeners.Len() != 1 {
		t.Fatalf("expected scheduler to subscribe once, got %d", h.source.listeners.Len())
	}

	h.source.listeners.Emit(domain.VisibilityChange{Source: "screensaver", Kind: domain.VisibilityPage, Visible: false})
	h.expect(domain.EventSuspended)

	// Another source saying "visible" does not lift the screensaver
	h.sched.SetPageVisible(true)
	h.expectQuiet()

	h.source.listeners.Emit(domain.VisibilityChange{Source: "screensaver", Kind: domain.VisibilityPage, Visible: true})
	h.expect(domain.EventResumed)
}

func TestRotation_SuspendDuringFadeCommits(t *testing.T) {
	h := newHarness(t, 4)
	h.start()
	h.expect(domain.EventStarted)

	h.waitTimers(1)
	h.advance(18 * time.Second)
	h.expect(domain.EventPreload)
	h.waitTimers(1)
	h.advance(2 * time.Second)
	h.expect(domain.EventTransitionStarted)

	h.sched.SetPageVisible(false)
	done := h.expect(domain.EventTransitionCompleted)
	if done.Index != 1 {
		t.Errorf("expected completion of item 1, got %d", done.Index)
	}
	h.expect(domain.EventSuspended)

	st := h.sched.State()
	if st.CurrentIndex != 1 || st.NextIndex != 2 || st.Transitioning {
		t.Errorf("fade must commit on suspension: %+v", st)
	}
	if h.player(1).Playing() {
		t.Error("committed item must be paused while hidden")
	}
	h.waitTimers(0)
}

func TestRotation_StartsSuspendedWhenSourceHidden(t *testing.T) {
	h := newHarness(t, 4)
	h.source.hidden = true
	h.start()

	h.expect(domain.EventStarted)
	h.expect(domain.EventSuspended)

	if st := h.sched.State(); st.Phase != domain.PhaseSuspended || st.CurrentIndex != 0 {
		t.Errorf("expected suspended on item 0, got %+v", st)
	}
	if h.player(0).Playing() {
		t.Error("item 0 must not play behind a hidden page")
	}
	if got := h.sched.CurrentTheme(); got != h.sched.items[0].Theme {
		t.Errorf("expected theme of item 0, got %+v", got)
	}
	h.waitTimers(0)

	// Lifting the source starts the first interval from now
	h.advance(7 * time.Second)
	h.source.listeners.Emit(domain.VisibilityChange{Source: "screensaver", Kind: domain.VisibilityPage, Visible: true})
	h.expect(domain.EventResumed)
	if !h.player(0).Playing() {
		t.Error("item 0 must play once visible")
	}

	h.waitTimers(1)
	h.advance(18 * time.Second)
	if preload := h.expect(domain.EventPreload); h.offset(preload) != 25*time.Second {
		t.Errorf("expected preload at 25s, got %v", h.offset(preload))
	}
}

func TestRotation_PlaybackFailureSwallowed(t *testing.T) {
	h := newHarness(t, 2)
	h.factory.RejectPlay(errors.New("autoplay blocked"))
	h.start()
	h.expect(domain.EventStarted)

	h.waitTimers(1)
	h.advance(18 * time.Second)
	h.expect(domain.EventPreload)
	h.waitTimers(1)
	h.advance(2 * time.Second)
	h.expect(domain.EventTransitionStarted)
	h.waitTimers(1)
	h.advance(1500 * time.Millisecond)
	h.expect(domain.EventTransitionCompleted)

	if st := h.sched.State(); st.CurrentIndex != 1 || st.NextIndex != 0 {
		t.Errorf("rotation must advance despite rejected playback: %+v", st)
	}
}

func TestRotation_InvariantAndBoundedPool(t *testing.T) {
	const items = 4
	h := newHarness(t, items)
	h.start()
	h.expect(domain.EventStarted)

	check := func(ev domain.RotationEvent) {
		t.Helper()
		if ev.State.NextIndex != (ev.State.CurrentIndex+1)%items {
			t.Fatalf("invariant broken on %s: %+v", ev.Kind, ev.State)
		}
	}

	for step := 1; step <= 2*items+1; step++ {
		h.waitTimers(1)
		h.advance(18 * time.Second)
		check(h.expect(domain.EventPreload))
		h.waitTimers(1)
		h.advance(2 * time.Second)
		check(h.expect(domain.EventTransitionStarted))
		h.waitTimers(1)
		h.advance(1500 * time.Millisecond)
		done := h.expect(domain.EventTransitionCompleted)
		check(done)
		if done.Index != step%items {
			t.Fatalf("step %d: expected item %d, got %d", step, step%items, done.Index)
		}
	}

	if n := len(h.factory.Players()); n > 3 {
		t.Errorf("pool grew to %d players for %d items", n, items)
	}
	if h.pool.ActiveLen() != 1 {
		t.Errorf("expected exactly the current handle active, got %d", h.pool.ActiveLen())
	}
}

func TestRotation_EmptyPlaylistDisabled(t *testing.T) {
	h := newHarness(t, 0)
	h.start()

	h.waitTimers(0)
	h.advance(time.Minute)
	h.expectQuiet()

	if st := h.sched.State(); st.Phase != domain.PhaseDisabled {
		t.Errorf("expected disabled rotation, got %s", st.Phase)
	}
	if h.sched.CurrentTheme() != DefaultTheme {
		t.Error("expected default theme")
	}
	if h.sched.ActivePlayer() != nil {
		t.Error("expected no active player")
	}

	// Visibility changes are ignored
	h.sched.SetPageVisible(false)
	h.expectQuiet()
}

func TestRotation_SingleItemNoTimers(t *testing.T) {
	h := newHarness(t, 1)
	h.start()
	h.expect(domain.EventStarted)

	h.waitTimers(0)
	if !h.player(0).Playing() {
		t.Error("single item must play")
	}
	if st := h.sched.State(); st.NextIndex != 0 {
		t.Errorf("expected next index 0 for a single item, got %d", st.NextIndex)
	}

	h.sched.SetPageVisible(false)
	h.expect(domain.EventSuspended)
	h.sched.SetPageVisible(true)
	h.expect(domain.EventResumed)
	h.waitTimers(0)
}

func TestStop_TearsDown(t *testing.T) {
	h := newHarness(t, 3)
	h.start()
	h.expect(domain.EventStarted)
	h.waitTimers(1)
	h.advance(18 * time.Second)
	h.expect(domain.EventPreload)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.sched.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	h.expect(domain.EventStopped)
	if _, ok := <-h.sched.Events(); ok {
		t.Error("events channel must be closed after Stop")
	}

	if h.source.listeners.Len() != 0 {
		t.Error("visibility subscription not detached")
	}
	h.waitTimers(0)
	for _, p := range h.factory.Players() {
		if !p.Detached() || p.Source() != "" {
			t.Error("players must be unloaded and detached")
		}
	}
	if h.pool.Len() != 0 {
		t.Errorf("pool not cleared: %d handles", h.pool.Len())
	}
	if h.sched.State().Phase != domain.PhaseStopped {
		t.Errorf("expected stopped phase, got %s", h.sched.State().Phase)
	}

	// Stop is idempotent and a stopped scheduler stays quiet
	if err := h.sched.Stop(ctx); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}
	h.sched.SetPageVisible(false)
}

func TestStop_WithoutStart(t *testing.T) {
	h := newHarness(t, 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.sched.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if _, ok := <-h.sched.Events(); ok {
		t.Error("events channel must be closed")
	}
	if err := h.sched.Start(ctx); err != nil {
		t.Fatalf("Start after Stop must be a no-op, got %v", err)
	}
	if h.sched.State().Phase != domain.PhaseStopped {
		t.Errorf("expected stopped phase, got %s", h.sched.State().Phase)
	}
}

func TestNewScheduler_LeadAdjusted(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		lead     time.Duration
		want     time.Duration
	}{
		{name: "Valid", interval: 20 * time.Second, lead: 2 * time.Second, want: 2 * time.Second},
		{name: "Zero Lead", interval: 20 * time.Second, lead: 0, want: 2 * time.Second},
		{name: "Lead Longer Than Interval", interval: 3 * time.Second, lead: 5 * time.Second, want: 1500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig{items: makeItems(2), interval: tt.interval, lead: tt.lead, fade: time.Second}
			s := NewScheduler(zap.NewNop(), clockwork.NewFakeClock(), cfg,
				pool.NewMediaPool(zap.NewNop(), playertest.NewFactory(true), cfg), nil)
			if s.lead != tt.want {
				t.Errorf("expected lead %v, got %v", tt.want, s.lead)
			}
			if s.lead <= 0 || s.lead >= s.interval {
				t.Errorf("lead %v breaks preload-before-transition ordering", s.lead)
			}
		})
	}
}
