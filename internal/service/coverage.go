package service

import (
	"alcyxob/workout-playlist/internal/domain"
	"alcyxob/workout-playlist/internal/logger"
	"alcyxob/workout-playlist/internal/metrics"
	"alcyxob/workout-playlist/internal/repository"
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const anyArchetypeKey = "any"

type coverageEntry struct {
	slugs     map[string]struct{}
	expiresAt time.Time
}

// CoverageService decides which exercises have enough video content to be
// used, and caches that decision per archetype.
type CoverageService struct {
	repo  repository.ClipRepository
	kinds []domain.VideoKind
	ttl   time.Duration
	now   func() time.Time
	log   *logger.Logger

	mu      sync.RWMutex
	entries map[string]coverageEntry
	gen     uint64
	group   singleflight.Group
}

func NewCoverageService(repo repository.ClipRepository, kinds []domain.VideoKind, ttl time.Duration, log *logger.Logger) *CoverageService {
	if log == nil {
		log = logger.Nop()
	}
	return &CoverageService{
		repo:    repo,
		kinds:   append([]domain.VideoKind(nil), kinds...),
		ttl:     ttl,
		now:     time.Now,
		log:     log.With("component", "CoverageService"),
		entries: make(map[string]coverageEntry),
	}
}

func coverageKey(archetype domain.Archetype) string {
	if archetype == "" {
		return "allowed:" + anyArchetypeKey
	}
	return "allowed:" + string(archetype)
}

// AllowedSlugs returns the exercises that have an active, stored clip for
// every coverage kind. An empty archetype accepts clips of any archetype;
// otherwise clips of that archetype and generic clips count.
// The returned set is shared and must not be modified.
func (s *CoverageService) AllowedSlugs(ctx context.Context, archetype domain.Archetype) map[string]struct{} {
	key := coverageKey(archetype)

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if ok && s.now().Before(entry.expiresAt) {
		return entry.slugs
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		s.mu.RLock()
		gen := s.gen
		s.mu.RUnlock()

		slugs, err := s.compute(ctx, archetype)
		if err != nil {
			metrics.CacheRefreshes.WithLabelValues("coverage", "error").Inc()
			return nil, err
		}

		s.mu.Lock()
		if s.gen == gen {
			s.entries[key] = coverageEntry{slugs: slugs, expiresAt: s.now().Add(s.ttl)}
		}
		s.mu.Unlock()
		metrics.CacheRefreshes.WithLabelValues("coverage", "ok").Inc()
		return slugs, nil
	})
	if err != nil {
		s.log.Error("could not compute allowed exercises", "archetype", string(archetype), "error", err)
		return map[string]struct{}{}
	}
	return v.(map[string]struct{})
}

// Invalidate clears every cached key at once.
func (s *CoverageService) Invalidate() {
	s.mu.Lock()
	s.gen++
	s.entries = make(map[string]coverageEntry)
	s.mu.Unlock()

	s.group.Forget(coverageKey(""))
	for _, a := range domain.AllArchetypes {
		s.group.Forget(coverageKey(a))
	}
	metrics.CacheInvalidations.WithLabelValues("coverage").Inc()
}

func (s *CoverageService) compute(ctx context.Context, archetype domain.Archetype) (map[string]struct{}, error) {
	exercises, clips, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	present := presentKinds(clips, archetype)

	allowed := make(map[string]struct{})
	for _, ex := range exercises {
		if !ex.IsActive {
			continue
		}
		have := present[ex.ID]
		complete := true
		for _, k := range s.kinds {
			if !have[k] {
				complete = false
				break
			}
		}
		if complete {
			allowed[ex.ID] = struct{}{}
		}
	}
	s.log.Debug("allowed exercises computed", "archetype", string(archetype), "allowed", len(allowed), "exercises", len(exercises))
	return allowed, nil
}

// fetch loads exercises and all active clips concurrently.
func (s *CoverageService) fetch(ctx context.Context) ([]domain.Exercise, []domain.VideoClip, error) {
	var (
		exercises []domain.Exercise
		clips     []domain.VideoClip
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		exercises, err = s.repo.ListActiveExercises(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		clips, err = s.repo.ListActiveClips(gctx, repository.ClipFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return exercises, clips, nil
}

// presentKinds maps exercise id to the kinds it has usable clips for.
func presentKinds(clips []domain.VideoClip, archetype domain.Archetype) map[string]map[domain.VideoKind]bool {
	present := make(map[string]map[domain.VideoKind]bool)
	for _, c := range clips {
		if !usableForCoverage(c, archetype) {
			continue
		}
		if present[c.ExerciseID] == nil {
			present[c.ExerciseID] = make(map[domain.VideoKind]bool)
		}
		present[c.ExerciseID][c.Kind] = true
	}
	return present
}

func usableForCoverage(c domain.VideoClip, archetype domain.Archetype) bool {
	if !c.IsActive || c.ExerciseID == "" || c.Storage.IsEmpty() {
		return false
	}
	return archetype == "" || c.IsGeneric() || c.Archetype == archetype
}

// Report aggregates per-exercise coverage. It always reads the repository
// and does not touch the cache.
func (s *CoverageService) Report(ctx context.Context, archetype domain.Archetype) (domain.CoverageReport, error) {
	exercises, clips, err := s.fetch(ctx)
	if err != nil {
		return domain.CoverageReport{}, err
	}
	present := presentKinds(clips, archetype)

	counts := make(map[string]int)
	for _, c := range clips {
		if usableForCoverage(c, archetype) {
			counts[c.ExerciseID]++
		}
	}

	report := domain.CoverageReport{Exercises: make([]domain.ExerciseCoverage, 0, len(exercises))}
	for _, ex := range exercises {
		if !ex.IsActive {
			continue
		}
		have := present[ex.ID]
		row := domain.ExerciseCoverage{
			ExerciseID: ex.ID,
			Present:    []domain.VideoKind{},
			Missing:    []domain.VideoKind{},
			ClipCount:  counts[ex.ID],
		}
		for _, k := range domain.AllVideoKinds {
			if have[k] {
				row.Present = append(row.Present, k)
			}
		}
		covered := 0
		for _, k := range s.kinds {
			if have[k] {
				covered++
			} else {
				row.Missing = append(row.Missing, k)
			}
		}
		switch {
		case len(row.Missing) == 0:
			row.Status = domain.CoverageComplete
			report.Complete++
		case covered == 0:
			row.Status = domain.CoverageNone
			report.None++
		default:
			row.Status = domain.CoveragePartial
			report.Partial++
		}
		report.Exercises = append(report.Exercises, row)
	}
	sort.SliceStable(report.Exercises, func(i, j int) bool {
		return report.Exercises[i].ExerciseID < report.Exercises[j].ExerciseID
	})
	report.Total = len(report.Exercises)
	return report, nil
}
