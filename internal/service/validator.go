package service

import (
	"alcyxob/workout-playlist/internal/domain"
	"alcyxob/workout-playlist/internal/metrics"
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is the machine-readable category of a validation failure.
type ErrorCode string

const (
	CodeExerciseSlugEmpty   ErrorCode = "EXERCISE_SLUG_EMPTY"
	CodeExerciseSlugUnknown ErrorCode = "EXERCISE_SLUG_UNKNOWN"
	CodeVideoMissing        ErrorCode = "VIDEO_MISSING"
	CodeVideoFileMissing    ErrorCode = "VIDEO_FILE_MISSING"
	CodePlaylistIncomplete  ErrorCode = "PLAYLIST_INCOMPLETE"

	// Warning-only codes.
	CodeBlockTypeUnknown    ErrorCode = "BLOCK_TYPE_UNKNOWN"
	CodeExerciseSubstituted ErrorCode = "EXERCISE_SUBSTITUTED"
)

// ValidationError is raised by strict builds.
type ValidationError struct {
	Code    ErrorCode
	Message string
}

func (e *ValidationError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// CodeOf returns the validation code carried by err, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// ExerciseLookup is the catalog surface the validator needs.
type ExerciseLookup interface {
	GetAttributes(ctx context.Context, id string) (domain.Exercise, bool)
}

// Validator applies the strict/lenient policy for a single build and
// collects what it found.
type Validator struct {
	strict   bool
	catalog  ExerciseLookup
	required map[domain.VideoKind]bool

	Issues   []domain.Issue
	Warnings []domain.Issue
}

func NewValidator(strict bool, catalog ExerciseLookup, requiredKinds []domain.VideoKind) *Validator {
	return &Validator{
		strict:   strict,
		catalog:  catalog,
		required: kindSet(requiredKinds),
	}
}

// Strict reports the mode the validator runs in.
func (v *Validator) Strict() bool { return v.strict }

// Warn records a warning regardless of mode.
func (v *Validator) Warn(code ErrorCode, message string) {
	v.Warnings = append(v.Warnings, domain.Issue{Code: string(code), Message: message})
	metrics.PlaylistWarnings.WithLabelValues(string(code)).Inc()
}

// fail raises in strict mode and downgrades to a warning otherwise.
func (v *Validator) fail(code ErrorCode, message string) error {
	if v.strict {
		v.Issues = append(v.Issues, domain.Issue{Code: string(code), Message: message})
		return &ValidationError{Code: code, Message: message}
	}
	v.Warn(code, message)
	return nil
}

// ValidateExerciseExists reports whether slug names a known exercise.
// false with a nil error means the exercise should be skipped.
func (v *Validator) ValidateExerciseExists(ctx context.Context, slug string) (bool, error) {
	if strings.TrimSpace(slug) == "" {
		return false, v.fail(CodeExerciseSlugEmpty, "exercise slug is empty")
	}
	if _, ok := v.catalog.GetAttributes(ctx, slug); !ok {
		return false, v.fail(CodeExerciseSlugUnknown, fmt.Sprintf("exercise %q is not in the catalog", slug))
	}
	return true, nil
}

// ValidateVideoAvailability applies policy to a resolution outcome. Required
// kinds fail strict builds; optional kinds only ever warn.
func (v *Validator) ValidateVideoAvailability(slug string, kind domain.VideoKind, archetype domain.Archetype, status AvailabilityStatus) error {
	var (
		code ErrorCode
		msg  string
	)
	switch status {
	case StatusAvailable:
		return nil
	case StatusFileMissing:
		code = CodeVideoFileMissing
		msg = fmt.Sprintf("no stored %s video for %q (archetype %s)", kind, slug, archetype)
	default:
		code = CodeVideoMissing
		msg = fmt.Sprintf("no %s video for %q (archetype %s)", kind, slug, archetype)
	}
	if slug == "" {
		msg = strings.Replace(msg, ` for ""`, "", 1)
	}

	if v.required[kind] {
		return v.fail(code, msg)
	}
	v.Warn(code, msg)
	return nil
}

// ValidatePlaylistCompleteness requires at least one instruction entry for
// a training day.
func (v *Validator) ValidatePlaylistCompleteness(entries []domain.PlaylistEntry, isRestDay bool) error {
	if isRestDay {
		return nil
	}
	for _, e := range entries {
		if e.Type == domain.EntryVideo && e.Kind == domain.KindInstruction {
			return nil
		}
	}
	return v.fail(CodePlaylistIncomplete, "training day has no instruction video")
}
