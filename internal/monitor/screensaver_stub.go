//go:build !linux

package monitor

import (
	"context"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/listener"
	"go.uber.org/zap"
)

// SourceName identifies screensaver reports in visibility changes
const SourceName = "screensaver"

// ScreensaverMonitor stub for non-Linux platforms
type ScreensaverMonitor struct {
	logger    *zap.Logger
	listeners listener.Set[domain.VisibilityChange]
}

// NewScreensaverMonitor creates a stub monitor that never reports changes
func NewScreensaverMonitor(logger *zap.Logger) *ScreensaverMonitor {
	return &ScreensaverMonitor{logger: logger}
}

// Subscribe attaches fn, which is never called on this platform
func (m *ScreensaverMonitor) Subscribe(fn func(domain.VisibilityChange)) *listener.Subscription {
	return m.listeners.Add(fn)
}

// Start logs that screensaver monitoring is unavailable
func (m *ScreensaverMonitor) Start(ctx context.Context) error {
	m.logger.Info("Screensaver monitoring is only supported on Linux systems")
	return nil
}

// Stop detaches all listeners
func (m *ScreensaverMonitor) Stop(ctx context.Context) error {
	m.listeners.Reset()
	return nil
}

// Active is always false on this platform
func (m *ScreensaverMonitor) Active() bool {
	return false
}
