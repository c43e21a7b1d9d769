package service

import (
	"alcyxob/workout-playlist/internal/logger"
	"fmt"
)

// Invalidation scopes accepted by InvalidateScope.
const (
	ScopeCatalog  = "catalog"
	ScopeCoverage = "coverage"
	ScopeAll      = "all"
)

// Invalidator maps library changes onto the caches they affect. It
// implements repository.ChangeListener.
type Invalidator struct {
	catalog  *Catalog
	coverage *CoverageService
	log      *logger.Logger
}

func NewInvalidator(catalog *Catalog, coverage *CoverageService, log *logger.Logger) *Invalidator {
	if log == nil {
		log = logger.Nop()
	}
	return &Invalidator{catalog: catalog, coverage: coverage, log: log.With("component", "Invalidator")}
}

// OnExerciseChanged drops both caches: attributes feed the catalog and the
// active flag feeds coverage.
func (i *Invalidator) OnExerciseChanged(exerciseID string) {
	i.log.Debug("exercise changed", "exercise", exerciseID)
	i.catalog.Invalidate()
	i.coverage.Invalidate()
}

// OnClipChanged drops coverage only; the resolver reads clips uncached.
func (i *Invalidator) OnClipChanged(clipID, exerciseID string) {
	i.log.Debug("clip changed", "clip", clipID, "exercise", exerciseID)
	i.coverage.Invalidate()
}

// InvalidateScope is the manual trigger used by operators.
func (i *Invalidator) InvalidateScope(scope string) error {
	switch scope {
	case ScopeCatalog:
		i.catalog.Invalidate()
	case ScopeCoverage:
		i.coverage.Invalidate()
	case ScopeAll, "":
		i.catalog.Invalidate()
		i.coverage.Invalidate()
	default:
		return fmt.Errorf("unknown invalidation scope %q", scope)
	}
	i.log.Info("caches invalidated", "scope", scope)
	return nil
}
