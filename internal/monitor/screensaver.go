//go:build linux

package monitor

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/listener"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	screensaverService   = "org.freedesktop.ScreenSaver"
	screensaverPath      = "/org/freedesktop/ScreenSaver"
	screensaverInterface = "org.freedesktop.ScreenSaver"

	// SourceName identifies screensaver reports in visibility changes
	SourceName = "screensaver"
)

// ScreensaverMonitor reports the host screensaver as page visibility:
// while the screensaver is active nobody can see the rotation.
type ScreensaverMonitor struct {
	logger    *zap.Logger
	dial      func() (DBusClient, error)
	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	conn      DBusClient     // Interface for testability
	wg        sync.WaitGroup // Tracks the signal goroutine
	owner     string         // Unique bus name of the screensaver service (:1.45)
	active    bool
	listeners listener.Set[domain.VisibilityChange]

	// Serializes edges with Subscribe replays
	emitMu sync.Mutex
}

// NewScreensaverMonitor creates a new screensaver monitor instance
func NewScreensaverMonitor(logger *zap.Logger) *ScreensaverMonitor {
	return &ScreensaverMonitor{
		logger: logger,
		dial: func() (DBusClient, error) {
			return NewStdDBusClient()
		},
	}
}

// Subscribe attaches fn to visibility changes. A screensaver that is
// already active is reported to fn before Subscribe returns.
func (m *ScreensaverMonitor) Subscribe(fn func(domain.VisibilityChange)) *listener.Subscription {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	sub := m.listeners.Add(fn)
	if m.Active() {
		fn(visibilityChange(true))
	}
	return sub
}

// Start connects to the session bus and watches ActiveChanged signals.
// A missing session bus is not an error: headless hosts simply have no screensaver.
func (m *ScreensaverMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true

	monitorCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	conn, err := m.dial()
	if err != nil {
		m.logger.Warn("Session bus unavailable, screensaver monitoring disabled", zap.Error(err))
		m.mu.Lock()
		m.running = false
		m.cancel = nil
		m.mu.Unlock()
		cancel()
		return nil
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	// Check if startup was abandoned while connecting to D-Bus
	if err := ctx.Err(); err != nil {
		m.reset()
		return err
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(screensaverPath),
		dbus.WithMatchInterface(screensaverInterface),
		dbus.WithMatchMember("ActiveChanged"),
	); err != nil {
		m.logger.Error("Failed to add match signal", zap.Error(err))
		m.reset()
		return fmt.Errorf("failed to add match signal: %w", err)
	}

	// Track the service appearing or going away
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, screensaverService),
	); err != nil {
		m.logger.Warn("Failed to add NameOwnerChanged match signal", zap.Error(err))
	}

	if err := m.detectService(); err != nil {
		m.logger.Warn("Failed to detect screensaver service", zap.Error(err))
	}

	signals := make(chan *dbus.Signal, 10)
	conn.Signal(signals)

	m.wg.Add(1)
	go m.monitorSignals(monitorCtx, signals)

	m.logger.Info("Screensaver monitor started")
	return nil
}

// Stop gracefully stops the monitor
func (m *ScreensaverMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
		m.conn = nil
	}
	m.mu.Unlock()

	m.listeners.Reset()
	m.logger.Info("Screensaver monitor shutdown complete")
	return nil
}

// reset undoes a partial Start
func (m *ScreensaverMonitor) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
		m.conn = nil
	}
	m.running = false
}

// Active reports whether the screensaver is currently on
func (m *ScreensaverMonitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// detectService resolves the service owner and reads the initial state
func (m *ScreensaverMonitor) detectService() error {
	names, err := m.conn.ListNames()
	if err != nil {
		return fmt.Errorf("failed to list bus names: %w", err)
	}
	if !slices.Contains(names, screensaverService) {
		m.logger.Info("No screensaver service on the session bus")
		return nil
	}

	owner, err := m.conn.GetNameOwner(screensaverService)
	if err != nil {
		return fmt.Errorf("failed to resolve screensaver owner: %w", err)
	}
	m.mu.Lock()
	m.owner = owner
	m.mu.Unlock()

	return m.queryActive()
}

// queryActive asks the service for its current state
func (m *ScreensaverMonitor) queryActive() error {
	body, err := m.conn.Call(screensaverService, screensaverPath, screensaverInterface+".GetActive")
	if err != nil {
		return fmt.Errorf("failed to query screensaver state: %w", err)
	}
	if len(body) < 1 {
		return fmt.Errorf("empty GetActive reply")
	}
	active, ok := body[0].(bool)
	if !ok {
		return fmt.Errorf("invalid GetActive reply type %T", body[0])
	}
	m.setActive(active)
	return nil
}

// monitorSignals listens for D-Bus signals and processes them
func (m *ScreensaverMonitor) monitorSignals(ctx context.Context, signals <-chan *dbus.Signal) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			if sig == nil {
				continue
			}
			switch sig.Name {
			case "org.freedesktop.DBus.NameOwnerChanged":
				m.handleNameOwnerChanged(sig)
			case screensaverInterface + ".ActiveChanged":
				m.handleActiveChanged(sig)
			}
		}
	}
}

// handleActiveChanged processes ActiveChanged(bool) from the service owner
func (m *ScreensaverMonitor) handleActiveChanged(sig *dbus.Signal) {
	if len(sig.Body) < 1 {
		return
	}
	active, ok := sig.Body[0].(bool)
	if !ok {
		m.logger.Warn("Invalid ActiveChanged payload, ignoring")
		return
	}

	m.mu.Lock()
	owner := m.owner
	m.mu.Unlock()
	if owner != "" && sig.Sender != owner {
		m.logger.Debug("Ignoring ActiveChanged from foreign sender", zap.String("sender", sig.Sender))
		return
	}

	m.setActive(active)
}

// handleNameOwnerChanged tracks the screensaver service lifecycle
func (m *ScreensaverMonitor) handleNameOwnerChanged(sig *dbus.Signal) {
	if len(sig.Body) < 3 {
		return
	}
	name, ok := sig.Body[0].(string)
	if !ok || name != screensaverService {
		return
	}
	newOwner, _ := sig.Body[2].(string)

	m.mu.Lock()
	m.owner = newOwner
	m.mu.Unlock()

	if newOwner == "" {
		// A vanished screensaver no longer hides anything
		m.logger.Info("Screensaver service removed")
		m.setActive(false)
		return
	}

	m.logger.Info("Screensaver service detected", zap.String("unique", newOwner))
	if err := m.queryActive(); err != nil {
		m.logger.Warn("Failed to read screensaver state", zap.Error(err))
	}
}

// setActive notifies listeners on state edges only
func (m *ScreensaverMonitor) setActive(active bool) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	changed := m.active != active
	m.active = active
	m.mu.Unlock()

	if !changed {
		return
	}

	m.logger.Info("Screensaver state changed", zap.Bool("active", active))
	m.listeners.Emit(visibilityChange(active))
}

func visibilityChange(active bool) domain.VisibilityChange {
	return domain.VisibilityChange{
		Source:  SourceName,
		Kind:    domain.VisibilityPage,
		Visible: !active,
	}
}
