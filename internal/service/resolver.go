package service

import (
	"alcyxob/workout-playlist/internal/domain"
	"alcyxob/workout-playlist/internal/logger"
	"alcyxob/workout-playlist/internal/metrics"
	"alcyxob/workout-playlist/internal/repository"
	"context"
	"sort"
)

// CandidateSupplier hands out the next clip not in exclude, or false when
// the candidates are exhausted.
type CandidateSupplier func(ctx context.Context, exclude map[string]struct{}) (domain.VideoClip, bool)

// Resolver picks clips for (exercise, kind, archetype) following the
// archetype fallback chain. It holds no cache; every call reads the repository.
type Resolver struct {
	repo     repository.ClipRepository
	fallback map[domain.Archetype][]domain.Archetype
	log      *logger.Logger
}

func NewResolver(repo repository.ClipRepository, fallback map[domain.Archetype][]domain.Archetype, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{
		repo:     repo,
		fallback: domain.CloneFallbackOrder(fallback),
		log:      log.With("component", "ClipResolver"),
	}
}

// Resolve returns the best clip, or false if none exists.
func (r *Resolver) Resolve(ctx context.Context, exerciseID string, kind domain.VideoKind, archetype domain.Archetype) (domain.VideoClip, bool) {
	candidates := r.Candidates(ctx, exerciseID, kind, archetype)
	if len(candidates) == 0 {
		return domain.VideoClip{}, false
	}
	return candidates[0], true
}

// Candidates lists every eligible clip in resolution order: exact archetype,
// generic, then the remaining archetypes of the fallback chain. An empty
// exerciseID resolves global clips.
func (r *Resolver) Candidates(ctx context.Context, exerciseID string, kind domain.VideoKind, archetype domain.Archetype) []domain.VideoClip {
	clips, err := r.repo.ListActiveClips(ctx, repository.ClipFilter{
		ExerciseID: exerciseID,
		Kind:       kind,
		GlobalOnly: exerciseID == "",
	})
	if err != nil {
		r.log.Warn("clip lookup failed", "exercise", exerciseID, "kind", string(kind), "error", err)
		metrics.ClipResolutions.WithLabelValues(string(kind), "miss").Inc()
		return nil
	}

	byArchetype := make(map[domain.Archetype][]domain.VideoClip)
	for _, c := range clips {
		if c.Kind != kind || c.ExerciseID != exerciseID {
			continue
		}
		byArchetype[c.Archetype] = append(byArchetype[c.Archetype], c)
	}

	var out []domain.VideoClip
	for _, level := range r.levels(archetype) {
		list := byArchetype[level]
		sortCandidates(list)
		out = append(out, list...)
	}

	metrics.ClipResolutions.WithLabelValues(string(kind), resolutionLevel(out, archetype)).Inc()
	return out
}

// Supplier evaluates Candidates lazily, at most once.
func (r *Resolver) Supplier(exerciseID string, kind domain.VideoKind, archetype domain.Archetype) CandidateSupplier {
	var (
		loaded     bool
		candidates []domain.VideoClip
	)
	return func(ctx context.Context, exclude map[string]struct{}) (domain.VideoClip, bool) {
		if !loaded {
			candidates = r.Candidates(ctx, exerciseID, kind, archetype)
			loaded = true
		}
		return nextCandidate(candidates, exclude)
	}
}

// SupplierFrom serves an already resolved candidate list.
func SupplierFrom(candidates []domain.VideoClip) CandidateSupplier {
	return func(_ context.Context, exclude map[string]struct{}) (domain.VideoClip, bool) {
		return nextCandidate(candidates, exclude)
	}
}

func nextCandidate(candidates []domain.VideoClip, exclude map[string]struct{}) (domain.VideoClip, bool) {
	for _, c := range candidates {
		if _, skip := exclude[c.ID]; !skip {
			return c, true
		}
	}
	return domain.VideoClip{}, false
}

// levels is the archetype visiting order; "" stands for generic clips.
func (r *Resolver) levels(archetype domain.Archetype) []domain.Archetype {
	if archetype == "" {
		return []domain.Archetype{""}
	}
	levels := []domain.Archetype{archetype, ""}
	for _, a := range r.fallback[archetype] {
		if a != archetype && a != "" {
			levels = append(levels, a)
		}
	}
	return levels
}

func sortCandidates(clips []domain.VideoClip) {
	sort.SliceStable(clips, func(i, j int) bool {
		a, b := clips[i], clips[j]
		if a.IsActive != b.IsActive {
			return a.IsActive
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func resolutionLevel(candidates []domain.VideoClip, archetype domain.Archetype) string {
	if len(candidates) == 0 {
		return "miss"
	}
	switch first := candidates[0]; {
	case first.Archetype == archetype && archetype != "":
		return "exact"
	case first.IsGeneric():
		return "generic"
	default:
		return "fallback"
	}
}
