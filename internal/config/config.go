package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	defaultAddr          = ":8080"
	defaultOutputDir     = "/tmp/backdrop"
	defaultInterval      = 20 * time.Second
	defaultPreloadLead   = 2 * time.Second
	defaultFade          = 1500 * time.Millisecond
	defaultPoolSize      = 2
	defaultMaxMediaBytes = 64 * 1024 * 1024
)

// ErrInvalidPlaylist is returned when a playlist file cannot be used
var ErrInvalidPlaylist = errors.New("invalid playlist")

// DefaultPlaylist is the rotation used when no playlist file is configured
var DefaultPlaylist = []domain.MediaItem{
	{
		Source: "https://github.com/ManthanYelpale/ManthanPortfolio/releases/download/v1.0-videos/background_video.mp4",
		Poster: "/posters/cyan.jpg",
		Theme: domain.Theme{
			Primary:   "#06b6d4",
			Secondary: "#a855f7",
			Accent:    "#22d3ee",
			GlowColor: "rgba(34, 211, 238, 0.6)",
			Name:      "cyan",
		},
	},
	{
		Source: "https://github.com/ManthanYelpale/ManthanPortfolio/releases/download/v1.0-videos/305660_small.mp4",
		Poster: "/posters/amber.jpg",
		Theme: domain.Theme{
			Primary:   "#f59e0b",
			Secondary: "#ec4899",
			Accent:    "#fbbf24",
			GlowColor: "rgba(251, 191, 36, 0.6)",
			Name:      "amber",
		},
	},
	{
		Source: "https://github.com/ManthanYelpale/ManthanPortfolio/releases/download/v1.0-videos/201254-915005916_medium.mp4",
		Poster: "/posters/emerald.jpg",
		Theme: domain.Theme{
			Primary:   "#10b981",
			Secondary: "#14b8a6",
			Accent:    "#34d399",
			GlowColor: "rgba(52, 211, 153, 0.6)",
			Name:      "emerald",
		},
	},
	{
		Source: "https://github.com/ManthanYelpale/ManthanPortfolio/releases/download/v1.0-videos/234735_medium.mp4",
		Poster: "/posters/violet.jpg",
		Theme: domain.Theme{
			Primary:   "#8b5cf6",
			Secondary: "#6366f1",
			Accent:    "#a78bfa",
			GlowColor: "rgba(167, 139, 250, 0.6)",
			Name:      "violet",
		},
	},
}

// playlistFile is the YAML layout of BACKDROP_PLAYLIST
type playlistFile struct {
	Items []domain.MediaItem `yaml:"items"`
}

// AppConfig holds application configuration
type AppConfig struct {
	logger        *zap.Logger
	addr          string
	outputDir     string
	staticDir     string
	interval      time.Duration
	preloadLead   time.Duration
	fade          time.Duration
	poolSize      int
	maxMediaBytes int64
	playlist      []domain.MediaItem
}

// NewAppConfig creates a new application configuration instance.
// A .env file in the working directory is loaded first when present.
func NewAppConfig(logger *zap.Logger) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to load .env file", zap.Error(err))
	}

	cfg := &AppConfig{
		logger:        logger,
		addr:          getEnv("BACKDROP_ADDR", defaultAddr),
		outputDir:     expandPath(getEnv("BACKDROP_OUTPUT_DIR", defaultOutputDir)),
		staticDir:     expandPath(os.Getenv("BACKDROP_STATIC_DIR")),
		interval:      durationEnv(logger, "BACKDROP_INTERVAL", defaultInterval),
		preloadLead:   durationEnv(logger, "BACKDROP_PRELOAD_LEAD", defaultPreloadLead),
		fade:          durationEnv(logger, "BACKDROP_FADE", defaultFade),
		poolSize:      int(intEnv(logger, "BACKDROP_POOL_SIZE", defaultPoolSize)),
		maxMediaBytes: intEnv(logger, "BACKDROP_MAX_MEDIA_BYTES", defaultMaxMediaBytes),
		playlist:      DefaultPlaylist,
	}

	if path := os.Getenv("BACKDROP_PLAYLIST"); path != "" {
		items, err := LoadPlaylist(expandPath(path))
		if err != nil {
			return nil, err
		}
		cfg.playlist = items
	}

	logger.Info("Configuration loaded",
		zap.String("addr", cfg.addr),
		zap.String("outputDir", cfg.outputDir),
		zap.String("staticDir", cfg.staticDir),
		zap.Duration("interval", cfg.interval),
		zap.Duration("preloadLead", cfg.preloadLead),
		zap.Duration("fade", cfg.fade),
		zap.Int("poolSize", cfg.poolSize),
		zap.Int64("maxMediaBytes", cfg.maxMediaBytes),
		zap.Int("items", len(cfg.playlist)))

	return cfg, nil
}

// LoadPlaylist reads a YAML playlist. Every item needs a source and a theme name.
func LoadPlaylist(path string) ([]domain.MediaItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist %s: %w", path, err)
	}

	var file playlistFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPlaylist, path, err)
	}

	for i, item := range file.Items {
		if strings.TrimSpace(item.Source) == "" {
			return nil, fmt.Errorf("%w: item %d has no source", ErrInvalidPlaylist, i)
		}
		if item.Theme.Name == "" {
			return nil, fmt.Errorf("%w: item %d has no theme name", ErrInvalidPlaylist, i)
		}
	}

	return file.Items, nil
}

// Playlist returns the ordered rotation items
func (c *AppConfig) Playlist() []domain.MediaItem {
	return c.playlist
}

// Interval returns how long each item stays on screen
func (c *AppConfig) Interval() time.Duration {
	return c.interval
}

// PreloadLead returns how early the next item starts loading
func (c *AppConfig) PreloadLead() time.Duration {
	return c.preloadLead
}

// FadeDuration returns the cross-fade length
func (c *AppConfig) FadeDuration() time.Duration {
	return c.fade
}

// PoolSize returns the pool free-list cap
func (c *AppConfig) PoolSize() int {
	return c.poolSize
}

// MaxMediaBytes returns the download size limit
func (c *AppConfig) MaxMediaBytes() int64 {
	return c.maxMediaBytes
}

// Addr returns the HTTP listen address
func (c *AppConfig) Addr() string {
	return c.addr
}

// OutputDir returns the directory for generated posters
func (c *AppConfig) OutputDir() string {
	return c.outputDir
}

// StaticDir returns the static asset directory, empty when unset
func (c *AppConfig) StaticDir() string {
	return c.staticDir
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(logger *zap.Logger, key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		logger.Warn("Invalid duration, using default",
			zap.String("key", key),
			zap.String("value", raw),
			zap.Duration("default", fallback))
		return fallback
	}
	return d
}

func intEnv(logger *zap.Logger, key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		logger.Warn("Invalid number, using default",
			zap.String("key", key),
			zap.String("value", raw),
			zap.Int64("default", fallback))
		return fallback
	}
	return n
}

// expandPath expands environment variables and a leading ~
func expandPath(path string) string {
	path = os.ExpandEnv(path)
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return path
}
