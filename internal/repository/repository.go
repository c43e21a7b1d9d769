package repository

import (
	"alcyxob/workout-playlist/internal/domain"
	"context"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrInvalid      = RepositoryError("invalid record")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// ClipFilter narrows ListActiveClips. Zero-valued fields don't filter.
type ClipFilter struct {
	ExerciseID string
	Kind       domain.VideoKind
	Archetype  domain.Archetype
	// GlobalOnly restricts the result to clips with no exercise attached.
	GlobalOnly bool
}

// ClipRepository is read-only access to the clip and exercise library.
type ClipRepository interface {
	// ListActiveClips returns active clips matching the filter.
	ListActiveClips(ctx context.Context, filter ClipFilter) ([]domain.VideoClip, error)
	// ListActiveExercises returns active exercises in a stable order.
	ListActiveExercises(ctx context.Context) ([]domain.Exercise, error)
}

// ChangeListener receives write notifications so caches can invalidate.
// Implementations must be safe for concurrent use and must not block.
type ChangeListener interface {
	OnExerciseChanged(exerciseID string)
	OnClipChanged(clipID, exerciseID string)
}

// ChangeListeners fans a notification out to several listeners.
type ChangeListeners []ChangeListener

func (ls ChangeListeners) OnExerciseChanged(exerciseID string) {
	for _, l := range ls {
		l.OnExerciseChanged(exerciseID)
	}
}

func (ls ChangeListeners) OnClipChanged(clipID, exerciseID string) {
	for _, l := range ls {
		l.OnClipChanged(clipID, exerciseID)
	}
}

// ClipWriter persists library changes and notifies listeners afterwards.
type ClipWriter interface {
	UpsertExercise(ctx context.Context, exercise *domain.Exercise) error
	UpsertClip(ctx context.Context, clip *domain.VideoClip) (string, error)
	DeactivateClip(ctx context.Context, clipID string) error
}

// ClipStore is the full clip library: reads for the playlist engine, writes for import tooling.
type ClipStore interface {
	ClipRepository
	ClipWriter
}
