package domain

import (
	"fmt"
	"time"
)

// VideoKind is the closed set of clip kinds.
type VideoKind string

const (
	KindTechnique   VideoKind = "technique"
	KindInstruction VideoKind = "instruction"
	KindMistake     VideoKind = "mistake"
	KindIntro       VideoKind = "intro"
	KindWeekly      VideoKind = "weekly"
	KindClosing     VideoKind = "closing"
	KindReminder    VideoKind = "reminder"

	// Contextual kinds, selected by workout context rather than by exercise.
	KindContextualIntro   VideoKind = "contextual_intro"
	KindContextualOutro   VideoKind = "contextual_outro"
	KindMidWorkout        VideoKind = "mid_workout"
	KindThemeBased        VideoKind = "theme_based"
	KindMotivationalBreak VideoKind = "motivational_break"
)

// AllVideoKinds lists every known kind in declaration order.
var AllVideoKinds = []VideoKind{
	KindTechnique, KindInstruction, KindMistake, KindIntro, KindWeekly, KindClosing, KindReminder,
	KindContextualIntro, KindContextualOutro, KindMidWorkout, KindThemeBased, KindMotivationalBreak,
}

// ParseVideoKind validates a kind string.
func ParseVideoKind(s string) (VideoKind, error) {
	for _, k := range AllVideoKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown video kind %q", s)
}

// StorageProvider discriminates where a clip's bytes live.
type StorageProvider string

const (
	ProviderR2       StorageProvider = "r2"
	ProviderStream   StorageProvider = "stream"
	ProviderExternal StorageProvider = "external"
)

// ParseStorageProvider maps the stored provider field to the typed provider.
// An empty value is treated as R2, which is where uploaded clips land by default.
func ParseStorageProvider(s string) (StorageProvider, bool) {
	switch StorageProvider(s) {
	case "", ProviderR2:
		return ProviderR2, true
	case ProviderStream:
		return ProviderStream, true
	case ProviderExternal:
		return ProviderExternal, true
	}
	return "", false
}

// StorageRef is the opaque pointer to a clip's media.
// For R2 Key is the object key, for Stream it is the video UID, for External URL is set.
type StorageRef struct {
	Provider StorageProvider `json:"provider"`
	Key      string          `json:"key,omitempty"`
	URL      string          `json:"url,omitempty"`
}

// IsEmpty reports whether the reference cannot point at any media.
func (r StorageRef) IsEmpty() bool {
	switch r.Provider {
	case ProviderR2, ProviderStream:
		return r.Key == ""
	case ProviderExternal:
		return r.URL == ""
	}
	return true
}

// VideoClip is a single video asset.
// ExerciseID is empty for global clips (weekly, intro, closing).
// Archetype is empty for archetype-agnostic content.
type VideoClip struct {
	ID              string     `json:"id"`
	ExerciseID      string     `json:"exercise_id,omitempty"`
	Kind            VideoKind  `json:"kind"`
	Archetype       Archetype  `json:"archetype,omitempty"`
	Variant         string     `json:"variant,omitempty"` // model/take tag
	IsActive        bool       `json:"is_active"`
	Storage         StorageRef `json:"storage"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsGeneric reports whether the clip carries no archetype.
func (c VideoClip) IsGeneric() bool {
	return c.Archetype == ""
}
