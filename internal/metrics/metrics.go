// Package metrics exposes Prometheus instrumentation for the media pool,
// the rotation scheduler and the viewer hub.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Media pool
	PoolAcquires = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrop_pool_acquires_total",
			Help: "Pool acquire calls by outcome",
		},
		[]string{"outcome"}, // "cached", "retried", "reused", "created"
	)

	PoolReleases = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backdrop_pool_releases_total",
			Help: "Pool release calls",
		},
	)

	PoolHandles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backdrop_pool_handles",
			Help: "Pooled player handles by state",
		},
		[]string{"state"}, // "active", "idle", "free"
	)

	// Network
	MediaFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrop_media_fetches_total",
			Help: "Media downloads by result",
		},
		[]string{"result"},
	)

	MediaFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backdrop_media_fetch_duration_seconds",
			Help:    "Duration of successful media downloads",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// Rotation
	RotationEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrop_rotation_events_total",
			Help: "Rotation events by kind",
		},
		[]string{"kind"},
	)

	PlaybackFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backdrop_playback_failures_total",
			Help: "Rejected playback starts (swallowed)",
		},
	)

	DroppedEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backdrop_dropped_events_total",
			Help: "Rotation events dropped because the consumer was slow",
		},
	)

	// Viewers
	ViewerConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backdrop_viewer_connections",
			Help: "Connected websocket viewers",
		},
	)
)
