package storage

import (
	"alcyxob/workout-playlist/internal/domain"
	"alcyxob/workout-playlist/internal/logger"
	"alcyxob/workout-playlist/internal/metrics"
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerSettings configures the per-provider circuit breaker.
type BreakerSettings struct {
	MaxRequests  uint32        // requests allowed through in half-open state
	Interval     time.Duration // closed-state count reset period
	Timeout      time.Duration // open → half-open delay
	MinRequests  uint32        // requests needed before the failure ratio counts
	FailureRatio float64
}

// DefaultBreakerSettings trips after 60% failures over at least 10 probes.
var DefaultBreakerSettings = BreakerSettings{
	MaxRequests:  3,
	Interval:     time.Minute,
	Timeout:      30 * time.Second,
	MinRequests:  10,
	FailureRatio: 0.6,
}

// Router dispatches storage calls to the backend that matches a clip's
// provider. The provider is fixed when the clip is loaded, so dispatch is a
// map lookup. Existence probes run behind one circuit breaker per provider so
// an outage answers "unavailable" fast instead of timing out every slot.
type Router struct {
	backends map[domain.StorageProvider]Backend
	breakers map[domain.StorageProvider]*gobreaker.CircuitBreaker[bool]
	log      *logger.Logger
}

// NewRouter builds a router over the configured backends. Providers without
// a backend are reported as unsupported.
func NewRouter(backends map[domain.StorageProvider]Backend, settings BreakerSettings, log *logger.Logger) *Router {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "StorageRouter")

	r := &Router{
		backends: make(map[domain.StorageProvider]Backend, len(backends)),
		breakers: make(map[domain.StorageProvider]*gobreaker.CircuitBreaker[bool], len(backends)),
		log:      log,
	}
	for provider, backend := range backends {
		if backend == nil {
			continue
		}
		r.backends[provider] = backend
		r.breakers[provider] = newBreaker("storage-"+string(provider), settings, log)
	}
	return r
}

func newBreaker(name string, s BreakerSettings, log *logger.Logger) *gobreaker.CircuitBreaker[bool] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("storage circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

// Exists probes the clip's backend. (false, nil) means the backend answered
// that the media is absent; any error means the answer is unknown.
func (r *Router) Exists(ctx context.Context, clip domain.VideoClip) (bool, error) {
	provider := clip.Storage.Provider
	backend, ok := r.backends[provider]
	if !ok {
		metrics.StorageProbes.WithLabelValues(providerLabel(provider), "error").Inc()
		return false, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
	if clip.Storage.IsEmpty() {
		metrics.StorageProbes.WithLabelValues(string(provider), "missing").Inc()
		return false, nil
	}

	found, err := r.breakers[provider].Execute(func() (bool, error) {
		return backend.Exists(ctx, clip.Storage)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.StorageProbes.WithLabelValues(string(provider), "rejected").Inc()
	case err != nil:
		metrics.StorageProbes.WithLabelValues(string(provider), "error").Inc()
	case found:
		metrics.StorageProbes.WithLabelValues(string(provider), "available").Inc()
	default:
		metrics.StorageProbes.WithLabelValues(string(provider), "missing").Inc()
	}
	return found, err
}

// PlaybackURL mints the playback URL through the clip's backend.
func (r *Router) PlaybackURL(ctx context.Context, clip domain.VideoClip) (string, error) {
	backend, ok := r.backends[clip.Storage.Provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, clip.Storage.Provider)
	}
	return backend.PlaybackURL(ctx, clip.Storage)
}

// BreakerState exposes a provider's breaker state for diagnostics.
func (r *Router) BreakerState(provider domain.StorageProvider) (gobreaker.State, bool) {
	cb, ok := r.breakers[provider]
	if !ok {
		return gobreaker.StateClosed, false
	}
	return cb.State(), true
}

func providerLabel(p domain.StorageProvider) string {
	if p == "" {
		return "unknown"
	}
	return string(p)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
