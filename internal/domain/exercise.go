// internal/domain/exercise.go
package domain

import "time"

// Difficulty is the closed set of exercise difficulty levels.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ParseDifficulty normalizes a stored difficulty value.
// Unknown values map to "" so similarity scoring treats them as their own bucket.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return Difficulty(s)
	}
	return ""
}

// Exercise is a single entry of the exercise library as seen by the playlist engine.
// ID is the stable slug used by workout plans (e.g. "push-ups").
type Exercise struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	MuscleGroup string     `json:"muscle_group,omitempty"` // e.g. "chest", "legs", "full_body"
	Equipment   string     `json:"equipment,omitempty"`    // e.g. "bodyweight", "dumbbell"
	Difficulty  Difficulty `json:"difficulty,omitempty"`
	IsCompound  bool       `json:"is_compound"`
	IsCardio    bool       `json:"is_cardio"`
	IsActive    bool       `json:"is_active"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
