package service

import (
	"alcyxob/workout-playlist/internal/domain"
	"alcyxob/workout-playlist/internal/logger"
	"alcyxob/workout-playlist/internal/metrics"
	"alcyxob/workout-playlist/internal/repository"
	"context"
	"maps"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Similarity base costs. Attribute costs are divided by the attribute's
// priority rank; flag mismatches cost a flat penalty.
const (
	muscleGroupCost  = 100.0
	equipmentCost    = 50.0
	difficultyCost   = 25.0
	flagMismatchCost = 10.0
)

// catalogSnapshot is an immutable view of the exercise library with its indexes.
type catalogSnapshot struct {
	exercises     map[string]domain.Exercise
	order         []string // repository order, the tie-break for similarity
	byMuscleGroup map[string][]string
	byEquipment   map[string][]string
	byDifficulty  map[domain.Difficulty][]string
	loadedAt      time.Time
}

func newCatalogSnapshot(list []domain.Exercise, loadedAt time.Time) *catalogSnapshot {
	s := &catalogSnapshot{
		exercises:     make(map[string]domain.Exercise, len(list)),
		order:         make([]string, 0, len(list)),
		byMuscleGroup: make(map[string][]string),
		byEquipment:   make(map[string][]string),
		byDifficulty:  make(map[domain.Difficulty][]string),
		loadedAt:      loadedAt,
	}
	for _, ex := range list {
		if ex.ID == "" || !ex.IsActive {
			continue
		}
		if _, dup := s.exercises[ex.ID]; dup {
			continue
		}
		s.exercises[ex.ID] = ex
		s.order = append(s.order, ex.ID)
		s.byMuscleGroup[ex.MuscleGroup] = append(s.byMuscleGroup[ex.MuscleGroup], ex.ID)
		s.byEquipment[ex.Equipment] = append(s.byEquipment[ex.Equipment], ex.ID)
		s.byDifficulty[ex.Difficulty] = append(s.byDifficulty[ex.Difficulty], ex.ID)
	}
	return s
}

var emptyCatalogSnapshot = newCatalogSnapshot(nil, time.Time{})

// Catalog caches exercise attributes as a whole snapshot. Readers always see
// a complete snapshot; refreshes build a new one and swap it in.
type Catalog struct {
	repo repository.ClipRepository
	ttl  time.Duration
	now  func() time.Time
	log  *logger.Logger

	snap  atomic.Pointer[catalogSnapshot]
	mu    sync.Mutex // guards generation changes against snapshot publication
	gen   uint64
	group singleflight.Group
}

// NewCatalog creates an empty catalog; the first read loads it.
func NewCatalog(repo repository.ClipRepository, ttl time.Duration, log *logger.Logger) *Catalog {
	if log == nil {
		log = logger.Nop()
	}
	return &Catalog{
		repo: repo,
		ttl:  ttl,
		now:  time.Now,
		log:  log.With("component", "ExerciseCatalog"),
	}
}

// Invalidate drops the current snapshot. A load already in flight will not
// publish its result.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.snap.Store(nil)
	c.mu.Unlock()
	c.group.Forget("catalog")
	metrics.CacheInvalidations.WithLabelValues("catalog").Inc()
}

func (c *Catalog) snapshot(ctx context.Context) (*catalogSnapshot, error) {
	current := c.snap.Load()
	if current != nil && c.now().Sub(current.loadedAt) < c.ttl {
		return current, nil
	}

	v, err, _ := c.group.Do("catalog", func() (interface{}, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		if current != nil {
			c.log.Warn("catalog refresh failed, serving previous snapshot", "error", err, "age", c.now().Sub(current.loadedAt).String())
			return current, nil
		}
		c.log.Error("catalog load failed", "error", err)
		return emptyCatalogSnapshot, err
	}
	return v.(*catalogSnapshot), nil
}

func (c *Catalog) refresh(ctx context.Context) (*catalogSnapshot, error) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	list, err := c.repo.ListActiveExercises(ctx)
	if err != nil {
		metrics.CacheRefreshes.WithLabelValues("catalog", "error").Inc()
		return nil, err
	}
	s := newCatalogSnapshot(list, c.now())

	c.mu.Lock()
	if c.gen == gen {
		c.snap.Store(s)
	}
	c.mu.Unlock()

	metrics.CacheRefreshes.WithLabelValues("catalog", "ok").Inc()
	c.log.Debug("catalog loaded", "exercises", len(s.order))
	return s, nil
}

// Load returns the current exercise map, loading it if needed.
func (c *Catalog) Load(ctx context.Context) (map[string]domain.Exercise, error) {
	s, err := c.snapshot(ctx)
	return maps.Clone(s.exercises), err
}

// GetAttributes looks up one exercise. false means the slug is unknown
// (or the catalog could not be loaded).
func (c *Catalog) GetAttributes(ctx context.Context, id string) (domain.Exercise, bool) {
	s, _ := c.snapshot(ctx)
	ex, ok := s.exercises[id]
	return ex, ok
}

// ExerciseQuery filters exercises by indexed attributes. Empty fields match all.
type ExerciseQuery struct {
	MuscleGroup string
	Equipment   string
	Difficulty  domain.Difficulty
}

// ExercisesBy returns exercise ids matching every set field, in catalog order.
func (c *Catalog) ExercisesBy(ctx context.Context, q ExerciseQuery) []string {
	s, _ := c.snapshot(ctx)

	var lists [][]string
	if q.MuscleGroup != "" {
		lists = append(lists, s.byMuscleGroup[q.MuscleGroup])
	}
	if q.Equipment != "" {
		lists = append(lists, s.byEquipment[q.Equipment])
	}
	if q.Difficulty != "" {
		lists = append(lists, s.byDifficulty[q.Difficulty])
	}
	if len(lists) == 0 {
		return append([]string(nil), s.order...)
	}

	counts := make(map[string]int)
	for _, l := range lists {
		for _, id := range l {
			counts[id]++
		}
	}
	var out []string
	for _, id := range s.order {
		if counts[id] == len(lists) {
			out = append(out, id)
		}
	}
	return out
}

// FindSimilar ranks exercises by similarity to sourceID, most similar first.
// Candidates come from allowed (nil means every catalog exercise); the
// source itself is never returned. Equal scores keep catalog order.
// maxResults <= 0 returns every candidate.
func (c *Catalog) FindSimilar(ctx context.Context, sourceID string, allowed map[string]struct{}, weights SimilarityWeights, maxResults int) []string {
	s, _ := c.snapshot(ctx)
	source, ok := s.exercises[sourceID]
	if !ok {
		return nil
	}
	weights = weights.normalized()

	type scored struct {
		id    string
		score float64
	}
	var candidates []scored
	for _, id := range s.order {
		if id == sourceID {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[id]; !ok {
				continue
			}
		}
		candidates = append(candidates, scored{id: id, score: similarityScore(source, s.exercises[id], weights)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score < candidates[j].score
	})

	if maxResults > 0 && len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	out := make([]string, len(candidates))
	for i, cand := range candidates {
		out[i] = cand.id
	}
	return out
}

func (w SimilarityWeights) normalized() SimilarityWeights {
	if w.MuscleGroup <= 0 {
		w.MuscleGroup = DefaultSimilarityWeights.MuscleGroup
	}
	if w.Equipment <= 0 {
		w.Equipment = DefaultSimilarityWeights.Equipment
	}
	if w.Difficulty <= 0 {
		w.Difficulty = DefaultSimilarityWeights.Difficulty
	}
	return w
}

// similarityScore is 0 for identical attributes; larger means less similar.
func similarityScore(a, b domain.Exercise, w SimilarityWeights) float64 {
	score := 0.0
	if a.MuscleGroup != b.MuscleGroup {
		score += muscleGroupCost / w.MuscleGroup
	}
	if a.Equipment != b.Equipment {
		score += equipmentCost / w.Equipment
	}
	if a.Difficulty != b.Difficulty {
		score += difficultyCost / w.Difficulty
	}
	if a.IsCompound != b.IsCompound {
		score += flagMismatchCost
	}
	if a.IsCardio != b.IsCardio {
		score += flagMismatchCost
	}
	return score
}
