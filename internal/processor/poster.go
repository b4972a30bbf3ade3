package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/backdrop/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultBlurRadius = 6.0
	gradientWidth     = 160 // Gradients are drawn small and upscaled
	jpegQuality       = 85
)

// ErrInvalidColor is returned for theme colors that are not #rgb or #rrggbb
var ErrInvalidColor = errors.New("invalid color")

// ProcessorConfig holds configuration for poster rendering
type ProcessorConfig struct {
	BlurRadius float64
}

// PosterProcessor renders the diagonal primary-to-secondary gradient shown
// before a video is ready
type PosterProcessor struct {
	logger *zap.Logger
	res    *domain.ScreenResolution // Injected automatically by Fx
	config ProcessorConfig
	appCfg domain.Config // Application configuration for output dir

	mu    sync.Mutex
	cache map[domain.Theme][]byte
}

// NewPosterProcessor creates a new gradient poster renderer
func NewPosterProcessor(logger *zap.Logger, res *domain.ScreenResolution, appCfg domain.Config) *PosterProcessor {
	return &PosterProcessor{
		logger: logger,
		res:    res,
		appCfg: appCfg,
		config: ProcessorConfig{
			BlurRadius: defaultBlurRadius,
		},
		cache: make(map[domain.Theme][]byte),
	}
}

// Render returns the JPEG poster for a theme. Results are cached per theme.
func (p *PosterProcessor) Render(theme domain.Theme) ([]byte, error) {
	p.mu.Lock()
	if data, ok := p.cache[theme]; ok {
		p.mu.Unlock()
		return data, nil
	}
	p.mu.Unlock()

	from, err := ParseHexColor(theme.Primary)
	if err != nil {
		return nil, fmt.Errorf("theme %s primary: %w", theme.Name, err)
	}
	to, err := ParseHexColor(theme.Secondary)
	if err != nil {
		return nil, fmt.Errorf("theme %s secondary: %w", theme.Name, err)
	}

	if p.res.Width <= 0 || p.res.Height <= 0 {
		return nil, fmt.Errorf("invalid poster dimensions: %dx%d", p.res.Width, p.res.Height)
	}

	// 1. Draw the gradient at a small size
	h := max(1, gradientWidth*p.res.Height/p.res.Width)
	small := diagonalGradient(gradientWidth, h, from, to)

	// 2. Upscale to the display and soften the banding
	p.logger.Debug("Rendering poster",
		zap.String("theme", theme.Name),
		zap.Int("w", p.res.Width),
		zap.Int("h", p.res.Height))
	poster := imaging.Resize(small, p.res.Width, p.res.Height, imaging.Lanczos)
	poster = imaging.Blur(poster, p.config.BlurRadius)

	// 3. Encode result to JPEG (in-memory buffer)
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, poster, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode poster: %w", err)
	}

	data := buf.Bytes()
	p.mu.Lock()
	p.cache[theme] = data
	p.mu.Unlock()

	return data, nil
}

// Generate renders a poster for every item and writes <theme>.jpg into the
// output directory. It returns the written paths.
func (p *PosterProcessor) Generate(items []domain.MediaItem) ([]string, error) {
	outputDir := p.appCfg.OutputDir()
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var paths []string
	seen := make(map[string]bool)
	for _, item := range items {
		if seen[item.Theme.Name] {
			continue
		}
		seen[item.Theme.Name] = true

		data, err := p.Render(item.Theme)
		if err != nil {
			return paths, err
		}

		outputPath := filepath.Join(outputDir, PosterFilename(item.Theme))
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return paths, fmt.Errorf("failed to write poster file: %w", err)
		}
		paths = append(paths, outputPath)
	}

	p.logger.Info("Posters generated",
		zap.String("dir", outputDir),
		zap.Int("count", len(paths)))

	return paths, nil
}

// PosterFilename is the file name a theme's poster is stored and served under
func PosterFilename(theme domain.Theme) string {
	return theme.Name + ".jpg"
}

// ParseHexColor parses #rgb or #rrggbb
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// diagonalGradient goes from the top-left corner to the bottom-right one
func diagonalGradient(w, h int, from, to color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	span := float64(max(1, w+h-2))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := float64(x+y) / span
			img.SetNRGBA(x, y, color.NRGBA{
				R: lerp(from.R, to.R, t),
				G: lerp(from.G, to.G, t),
				B: lerp(from.B, to.B, t),
				A: 255,
			})
		}
	}
	return img
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}
