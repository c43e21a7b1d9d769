package service

import (
	"alcyxob/workout-playlist/internal/config"
	"alcyxob/workout-playlist/internal/domain"
	"errors"
	"fmt"
	"time"
)

// SimilarityWeights are priority ranks for FindSimilar; 1 is the most
// important attribute. A mismatch costs its base cost divided by the rank.
type SimilarityWeights struct {
	MuscleGroup float64
	Equipment   float64
	Difficulty  float64
}

// DefaultSimilarityWeights ranks muscle group first, then equipment, then difficulty.
var DefaultSimilarityWeights = SimilarityWeights{MuscleGroup: 1, Equipment: 2, Difficulty: 3}

// Options is the named-option configuration surface of the playlist engine.
type Options struct {
	ArchetypeFallbackOrder      map[domain.Archetype][]domain.Archetype
	CoverageKinds               []domain.VideoKind // kinds an exercise needs to be allowed
	RequiredVideoKinds          []domain.VideoKind // playlist kinds whose absence fails strict builds
	OptionalVideoKinds          []domain.VideoKind
	MistakeInclusionProbability float64
	StorageRetryBudget          int
	StrictMode                  bool
	CatalogTTL                  time.Duration
	CoverageTTL                 time.Duration
	ProbeTimeout                time.Duration
	SimilarityWeights           SimilarityWeights
	MaxSubstitutes              int
	IncludeWeeklyClips          bool
}

// DefaultOptions returns the stock engine configuration.
func DefaultOptions() Options {
	return Options{
		ArchetypeFallbackOrder:      domain.CloneFallbackOrder(domain.DefaultArchetypeFallbackOrder),
		CoverageKinds:               []domain.VideoKind{domain.KindInstruction, domain.KindTechnique, domain.KindMistake},
		RequiredVideoKinds:          []domain.VideoKind{domain.KindTechnique, domain.KindInstruction},
		OptionalVideoKinds:          optionalKindsExcept(domain.KindTechnique, domain.KindInstruction),
		MistakeInclusionProbability: 0.30,
		StorageRetryBudget:          2,
		CatalogTTL:                  15 * time.Minute,
		CoverageTTL:                 5 * time.Minute,
		ProbeTimeout:                3 * time.Second,
		SimilarityWeights:           DefaultSimilarityWeights,
		MaxSubstitutes:              5,
		IncludeWeeklyClips:          true,
	}
}

func optionalKindsExcept(required ...domain.VideoKind) []domain.VideoKind {
	skip := make(map[domain.VideoKind]bool, len(required))
	for _, k := range required {
		skip[k] = true
	}
	var out []domain.VideoKind
	for _, k := range domain.AllVideoKinds {
		if !skip[k] {
			out = append(out, k)
		}
	}
	return out
}

// Validate rejects option sets the engine can't honor.
func (o Options) Validate() error {
	var errs []error
	if o.MistakeInclusionProbability < 0 || o.MistakeInclusionProbability > 1 {
		errs = append(errs, fmt.Errorf("mistake inclusion probability %v outside [0,1]", o.MistakeInclusionProbability))
	}
	if o.StorageRetryBudget < 0 {
		errs = append(errs, fmt.Errorf("storage retry budget %d is negative", o.StorageRetryBudget))
	}
	if o.MaxSubstitutes < 0 {
		errs = append(errs, fmt.Errorf("max substitutes %d is negative", o.MaxSubstitutes))
	}
	if o.CatalogTTL <= 0 || o.CoverageTTL <= 0 {
		errs = append(errs, errors.New("cache ttls must be positive"))
	}
	if o.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("probe timeout must be positive"))
	}
	if len(o.CoverageKinds) == 0 {
		errs = append(errs, errors.New("coverage kinds must not be empty"))
	}
	w := o.SimilarityWeights
	if w.MuscleGroup <= 0 || w.Equipment <= 0 || w.Difficulty <= 0 {
		errs = append(errs, fmt.Errorf("similarity weights must be positive, got %+v", w))
	}
	for _, a := range domain.AllArchetypes {
		order, ok := o.ArchetypeFallbackOrder[a]
		if !ok {
			errs = append(errs, fmt.Errorf("no fallback order for archetype %s", a))
			continue
		}
		if err := domain.ValidateFallbackOrder(a, order); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OptionsFromConfig converts the loaded configuration into engine options.
func OptionsFromConfig(cfg config.PlaylistConfig) (Options, error) {
	opts := DefaultOptions()
	opts.StrictMode = cfg.StrictMode
	opts.MistakeInclusionProbability = cfg.MistakeInclusionProbability
	opts.StorageRetryBudget = cfg.StorageRetryBudget
	opts.IncludeWeeklyClips = cfg.IncludeWeeklyClips
	opts.MaxSubstitutes = cfg.MaxSubstitutes
	if cfg.CatalogTTL > 0 {
		opts.CatalogTTL = cfg.CatalogTTL
	}
	if cfg.CoverageTTL > 0 {
		opts.CoverageTTL = cfg.CoverageTTL
	}
	if cfg.ProbeTimeout > 0 {
		opts.ProbeTimeout = cfg.ProbeTimeout
	}
	if w := cfg.SimilarityWeights; w != (config.SimilarityWeights{}) {
		opts.SimilarityWeights = SimilarityWeights{MuscleGroup: w.MuscleGroup, Equipment: w.Equipment, Difficulty: w.Difficulty}
	}

	var err error
	if len(cfg.CoverageKinds) > 0 {
		if opts.CoverageKinds, err = parseKinds(cfg.CoverageKinds); err != nil {
			return Options{}, fmt.Errorf("coverage kinds: %w", err)
		}
	}
	if len(cfg.RequiredVideoKinds) > 0 {
		if opts.RequiredVideoKinds, err = parseKinds(cfg.RequiredVideoKinds); err != nil {
			return Options{}, fmt.Errorf("required video kinds: %w", err)
		}
	}
	if len(cfg.OptionalVideoKinds) > 0 {
		if opts.OptionalVideoKinds, err = parseKinds(cfg.OptionalVideoKinds); err != nil {
			return Options{}, fmt.Errorf("optional video kinds: %w", err)
		}
	}

	if len(cfg.ArchetypeFallbackOrder) > 0 {
		order := make(map[domain.Archetype][]domain.Archetype, len(cfg.ArchetypeFallbackOrder))
		for key, list := range cfg.ArchetypeFallbackOrder {
			a, err := domain.ParseArchetype(key)
			if err != nil {
				return Options{}, fmt.Errorf("archetype fallback order: %w", err)
			}
			for _, s := range list {
				fa, err := domain.ParseArchetype(s)
				if err != nil {
					return Options{}, fmt.Errorf("archetype fallback order for %s: %w", a, err)
				}
				order[a] = append(order[a], fa)
			}
		}
		for a, list := range order {
			opts.ArchetypeFallbackOrder[a] = list
		}
	}

	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func parseKinds(in []string) ([]domain.VideoKind, error) {
	out := make([]domain.VideoKind, 0, len(in))
	for _, s := range in {
		k, err := domain.ParseVideoKind(s)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

func kindSet(kinds []domain.VideoKind) map[domain.VideoKind]bool {
	set := make(map[domain.VideoKind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}
