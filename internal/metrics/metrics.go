package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Playlist builds by mode (strict|lenient) and result (ok|validation_error|input_error|error)
	PlaylistBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_builds_total",
			Help: "Total number of playlist builds",
		},
		[]string{"mode", "result"},
	)

	PlaylistBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "playlist_build_duration_seconds",
			Help:    "Duration of playlist builds in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PlaylistWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_warnings_total",
			Help: "Warnings recorded while building playlists, by code",
		},
		[]string{"code"},
	)

	// Resolver outcomes: exact, generic, fallback, miss
	ClipResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_resolutions_total",
			Help: "Clip resolutions by fallback level reached",
		},
		[]string{"kind", "level"},
	)

	ExerciseSubstitutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exercise_substitutions_total",
			Help: "Exercise substitutions attempted, by result",
		},
		[]string{"result"},
	)

	// Cache refreshes by cache (catalog|coverage) and result (ok|error)
	CacheRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_cache_refreshes_total",
			Help: "Catalog and coverage cache refreshes",
		},
		[]string{"cache", "result"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_cache_invalidations_total",
			Help: "Explicit cache invalidations",
		},
		[]string{"cache"},
	)

	// Storage probes by provider and result (available|missing|error|rejected)
	StorageProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_probes_total",
			Help: "Storage availability probes",
		},
		[]string{"provider", "result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storage_circuit_breaker_state",
			Help: "Storage circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
