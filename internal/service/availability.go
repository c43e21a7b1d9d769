package service

import (
	"alcyxob/workout-playlist/internal/domain"
	"alcyxob/workout-playlist/internal/logger"
	"context"
	"time"
)

// AvailabilityStatus is the outcome of resolving and probing a clip.
type AvailabilityStatus int

const (
	StatusAvailable   AvailabilityStatus = iota
	StatusMissing                        // no clip record exists
	StatusFileMissing                    // records exist but no stored file could be confirmed
)

func (s AvailabilityStatus) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusMissing:
		return "missing"
	case StatusFileMissing:
		return "file_missing"
	}
	return "unknown"
}

// StorageProbe checks that a clip's media exists. storage.Router implements it.
type StorageProbe interface {
	Exists(ctx context.Context, clip domain.VideoClip) (bool, error)
}

// AvailabilityChecker confirms clips against storage, walking to the next
// candidate when a file is missing.
type AvailabilityChecker struct {
	probe   StorageProbe
	timeout time.Duration
	log     *logger.Logger
}

func NewAvailabilityChecker(probe StorageProbe, timeout time.Duration, log *logger.Logger) *AvailabilityChecker {
	if log == nil {
		log = logger.Nop()
	}
	return &AvailabilityChecker{
		probe:   probe,
		timeout: timeout,
		log:     log.With("component", "AvailabilityChecker"),
	}
}

// EnsureAvailable probes clip and, while it is unavailable, up to
// retryBudget further candidates from next. At most retryBudget+1 probes
// are made. A nil next disables retries.
func (c *AvailabilityChecker) EnsureAvailable(ctx context.Context, clip domain.VideoClip, next CandidateSupplier, retryBudget int) (domain.VideoClip, AvailabilityStatus) {
	if retryBudget < 0 {
		retryBudget = 0
	}
	found, status, _ := c.ensureWithin(ctx, clip, next, retryBudget+1)
	return found, status
}

// ensureWithin makes at most maxProbes probes and reports how many it used.
func (c *AvailabilityChecker) ensureWithin(ctx context.Context, clip domain.VideoClip, next CandidateSupplier, maxProbes int) (domain.VideoClip, AvailabilityStatus, int) {
	exclude := make(map[string]struct{}, maxProbes)
	current := clip
	probes := 0
	for probes < maxProbes {
		if probes > 0 {
			if next == nil {
				break
			}
			candidate, ok := next(ctx, exclude)
			if !ok {
				break
			}
			current = candidate
		}
		exclude[current.ID] = struct{}{}

		probes++
		if c.exists(ctx, current) {
			return current, StatusAvailable, probes
		}
		if ctx.Err() != nil {
			break
		}
	}
	return domain.VideoClip{}, StatusFileMissing, probes
}

func (c *AvailabilityChecker) exists(ctx context.Context, clip domain.VideoClip) bool {
	probeCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ok, err := c.probe.Exists(probeCtx, clip)
	if err != nil {
		c.log.Warn("storage probe failed", "clip", clip.ID, "provider", string(clip.Storage.Provider), "error", err)
		return false
	}
	if !ok {
		c.log.Debug("clip file missing", "clip", clip.ID, "exercise", clip.ExerciseID, "kind", string(clip.Kind))
	}
	return ok
}
