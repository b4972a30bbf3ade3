package monitor

import (
	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

const maxPosterWidth = 1920

// NewScreenResolution detects the primary screen resolution at startup.
// Posters are placeholders, so anything wider than 1920px is scaled down
// keeping the aspect ratio. Headless hosts get 1920x1080.
func NewScreenResolution(logger *zap.Logger) *domain.ScreenResolution {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		logger.Info("No active displays detected, posters use 1920x1080")
		return &domain.ScreenResolution{Width: 1920, Height: 1080}
	}

	// Use primary monitor (index 0)
	bounds := screenshot.GetDisplayBounds(0)
	res := fitWidth(bounds.Dx(), bounds.Dy(), maxPosterWidth)

	logger.Info("Screen resolution detected",
		zap.Int("displayWidth", bounds.Dx()),
		zap.Int("displayHeight", bounds.Dy()),
		zap.Int("posterWidth", res.Width),
		zap.Int("posterHeight", res.Height))

	return res
}

func fitWidth(width, height, limit int) *domain.ScreenResolution {
	if width <= 0 || height <= 0 {
		return &domain.ScreenResolution{Width: 1920, Height: 1080}
	}
	if width <= limit {
		return &domain.ScreenResolution{Width: width, Height: height}
	}
	return &domain.ScreenResolution{Width: limit, Height: height * limit / width}
}
