package domain

import (
	"context"
	"time"

	"github.com/genricoloni/backdrop/internal/listener"
)

// Player is a reusable media-player handle.
// Implementations must be safe for concurrent use: load completions arrive
// from fetch goroutines while the scheduler drives playback.
//
//go:generate mockgen -destination=mocks/player_mock.go -package=mocks github.com/genricoloni/backdrop/internal/domain Player,PlayerFactory
type Player interface {
	// Source returns the bound locator, empty when unbound
	Source() string

	// Bind binds a source and starts loading it over the network
	Bind(source string)

	// Ready reports whether the bound source finished loading
	Ready() bool

	// OnReady registers fn to run once when the current load completes
	OnReady(fn func()) *listener.Subscription

	// Play starts playback. It may be rejected (e.g. nothing bound).
	Play() error

	// Pause stops playback, keeping the position
	Pause()

	// Seek moves the playback position
	Seek(pos time.Duration)

	// Unload clears the source binding and drops buffered data
	Unload()

	// Detach permanently releases the player
	Detach()
}

// PlayerFactory creates fresh players for the pool
type PlayerFactory interface {
	NewPlayer() Player
}

// VisibilitySource reports page visibility or viewport intersection changes
type VisibilitySource interface {
	// Subscribe attaches fn; closing the subscription detaches it
	Subscribe(fn func(VisibilityChange)) *listener.Subscription
}

// Fetcher retrieves media bytes
type Fetcher interface {
	// Fetch downloads data from a URL
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// PosterRenderer produces placeholder images for themes
type PosterRenderer interface {
	// Render returns JPEG bytes for the theme poster
	Render(theme Theme) ([]byte, error)
}

// Config defines the interface for application configuration
type Config interface {
	// Playlist returns the ordered rotation items
	Playlist() []MediaItem

	// Interval is the time each item stays on screen
	Interval() time.Duration

	// PreloadLead is how long before a transition the next item starts loading
	PreloadLead() time.Duration

	// FadeDuration is the cross-fade length
	FadeDuration() time.Duration

	// PoolSize caps the pool free list
	PoolSize() int

	// MaxMediaBytes limits a single media download
	MaxMediaBytes() int64

	// Addr is the HTTP listen address
	Addr() string

	// OutputDir is where generated posters are written
	OutputDir() string

	// StaticDir optionally serves the site's static assets
	StaticDir() string
}
