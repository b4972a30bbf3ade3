package domain

import "time"

// Theme is the color set presentation code derives from the active video
type Theme struct {
	Primary   string `json:"primary" yaml:"primary"`
	Secondary string `json:"secondary" yaml:"secondary"`
	Accent    string `json:"accent" yaml:"accent"`
	GlowColor string `json:"glowColor" yaml:"glowColor"`
	Name      string `json:"name" yaml:"name"`
}

// MediaItem is one entry of the rotation. Immutable once configured.
type MediaItem struct {
	// Source is the opaque locator of an externally hosted video asset
	Source string `json:"source" yaml:"source"`
	// Theme becomes the current theme while this item is on screen
	Theme Theme `json:"theme" yaml:"theme"`
	// Poster is an optional placeholder image shown before the video loads
	Poster string `json:"poster,omitempty" yaml:"poster,omitempty"`
}

// HandleState tells whether a pooled player is borrowed by the rotation
type HandleState string

const (
	// HandleIdle means the pool holds the handle and nobody plays it
	HandleIdle HandleState = "Idle"
	// HandleActive means the handle is lent out to the rotation
	HandleActive HandleState = "Active"
)

// Phase is the scheduler state machine position
type Phase string

const (
	PhaseDisabled      Phase = "disabled"
	PhaseSteady        Phase = "steady"
	PhasePreloading    Phase = "preloading"
	PhaseTransitioning Phase = "transitioning"
	PhaseSuspended     Phase = "suspended"
	PhaseStopped       Phase = "stopped"
)

// RotationState is owned by the scheduler. NextIndex is always
// (CurrentIndex+1) mod item count.
type RotationState struct {
	CurrentIndex  int   `json:"currentIndex"`
	NextIndex     int   `json:"nextIndex"`
	Transitioning bool  `json:"transitioning"`
	Phase         Phase `json:"phase"`
}

// EventKind identifies a rotation event
type EventKind string

const (
	EventStarted             EventKind = "started"
	EventPreload             EventKind = "preload"
	EventTransitionStarted   EventKind = "transition_started"
	EventTransitionCompleted EventKind = "transition_completed"
	EventSuspended           EventKind = "suspended"
	EventResumed             EventKind = "resumed"
	EventMediaReady          EventKind = "media_ready"
	EventStopped             EventKind = "stopped"
)

// RotationEvent is published by the scheduler for presentation code
type RotationEvent struct {
	Kind  EventKind     `json:"kind"`
	Index int           `json:"index"`
	Theme Theme         `json:"theme"`
	At    time.Time     `json:"at"`
	State RotationState `json:"state"`
}

// VisibilityKind distinguishes page visibility from viewport intersection
type VisibilityKind string

const (
	// VisibilityPage is the document/tab (or host display) visibility
	VisibilityPage VisibilityKind = "page"
	// VisibilityIntersection is whether the rotation container is in the viewport
	VisibilityIntersection VisibilityKind = "intersection"
)

// VisibilityChange is reported by a VisibilitySource
type VisibilityChange struct {
	// Source names the reporter, e.g. "viewers" or "screensaver"
	Source  string
	Kind    VisibilityKind
	Visible bool
}

// ScreenResolution holds the display dimensions
type ScreenResolution struct {
	Width  int
	Height int
}
