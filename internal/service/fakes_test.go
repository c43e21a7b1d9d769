package service

import (
	"alcyxob/workout-playlist/internal/domain"
	"alcyxob/workout-playlist/internal/repository"
	"context"
	"errors"
	"sync"
	"time"
)

var errRepoDown = errors.New("repository unavailable")

// fakeRepo is an in-memory ClipRepository.
type fakeRepo struct {
	mu            sync.Mutex
	exercises     []domain.Exercise
	clips         []domain.VideoClip
	exerciseErr   error
	clipErr       error
	exerciseCalls int
	clipCalls     int
}

func (f *fakeRepo) ListActiveExercises(_ context.Context) ([]domain.Exercise, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exerciseCalls++
	if f.exerciseErr != nil {
		return nil, f.exerciseErr
	}
	return append([]domain.Exercise(nil), f.exercises...), nil
}

func (f *fakeRepo) ListActiveClips(_ context.Context, filter repository.ClipFilter) ([]domain.VideoClip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clipCalls++
	if f.clipErr != nil {
		return nil, f.clipErr
	}
	var out []domain.VideoClip
	for _, c := range f.clips {
		if !c.IsActive {
			continue
		}
		if filter.GlobalOnly && c.ExerciseID != "" {
			continue
		}
		if filter.ExerciseID != "" && c.ExerciseID != filter.ExerciseID {
			continue
		}
		if filter.Kind != "" && c.Kind != filter.Kind {
			continue
		}
		if filter.Archetype != "" && c.Archetype != filter.Archetype {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRepo) addClip(c domain.VideoClip) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clips = append(f.clips, c)
}

func (f *fakeRepo) calls() (exercises, clips int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exerciseCalls, f.clipCalls
}

// fakeProbe reports every clip as stored unless listed in missing or failing.
type fakeProbe struct {
	mu      sync.Mutex
	missing map[string]bool
	failing map[string]bool
	probed  []string
}

func (p *fakeProbe) Exists(ctx context.Context, clip domain.VideoClip) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, clip.ID)
	if _, ok := ctx.Deadline(); !ok {
		return false, errors.New("probe called without a deadline")
	}
	if p.failing[clip.ID] {
		return false, errors.New("storage timeout")
	}
	return !p.missing[clip.ID], nil
}

func (p *fakeProbe) probes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.probed...)
}

type fakeURLs struct{}

func (fakeURLs) PlaybackURL(_ context.Context, clip domain.VideoClip) (string, error) {
	return "https://cdn.test/" + clip.ID + ".mp4", nil
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func exercise(id, muscle, equipment string, difficulty domain.Difficulty, compound, cardio bool) domain.Exercise {
	return domain.Exercise{
		ID:          id,
		Name:        id,
		MuscleGroup: muscle,
		Equipment:   equipment,
		Difficulty:  difficulty,
		IsCompound:  compound,
		IsCardio:    cardio,
		IsActive:    true,
	}
}

// clip builds an active R2 clip created age hours before baseTime.
func clip(id, exerciseID string, kind domain.VideoKind, archetype domain.Archetype, age int) domain.VideoClip {
	return domain.VideoClip{
		ID:              id,
		ExerciseID:      exerciseID,
		Kind:            kind,
		Archetype:       archetype,
		IsActive:        true,
		Storage:         domain.StorageRef{Provider: domain.ProviderR2, Key: "clips/" + id + ".mp4"},
		DurationSeconds: 30,
		CreatedAt:       baseTime.Add(-time.Duration(age) * time.Hour),
	}
}

// fullCoverage returns instruction, technique and mistake clips for an exercise.
func fullCoverage(exerciseID string, archetype domain.Archetype) []domain.VideoClip {
	prefix := exerciseID + "-" + string(archetype)
	if archetype == "" {
		prefix = exerciseID + "-generic"
	}
	return []domain.VideoClip{
		clip(prefix+"-instruction", exerciseID, domain.KindInstruction, archetype, 1),
		clip(prefix+"-technique", exerciseID, domain.KindTechnique, archetype, 1),
		clip(prefix+"-mistake", exerciseID, domain.KindMistake, archetype, 1),
	}
}

func clipIDs(clips []domain.VideoClip) []string {
	ids := make([]string, len(clips))
	for i, c := range clips {
		ids[i] = c.ID
	}
	return ids
}
