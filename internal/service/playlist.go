package service

import (
	"alcyxob/workout-playlist/internal/domain"
	"alcyxob/workout-playlist/internal/logger"
	"alcyxob/workout-playlist/internal/metrics"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRequest is returned for build requests that can't be processed
// at all (bad archetype, missing workout id, no plan).
var ErrInvalidRequest = errors.New("invalid playlist request")

// PlaybackURLer turns a clip into something a player can open.
type PlaybackURLer interface {
	PlaybackURL(ctx context.Context, clip domain.VideoClip) (string, error)
}

// BuildRequest is the input of a single playlist build. Plan takes
// precedence over PlanJSON. Strict overrides the configured mode when set.
type BuildRequest struct {
	WorkoutID string
	Archetype domain.Archetype
	Plan      *domain.Plan
	PlanJSON  []byte
	Strict    *bool
}

// BuildResult is the rendered playlist with what the validator recorded.
type BuildResult struct {
	BuildID   string                 `json:"build_id"`
	WorkoutID string                 `json:"workout_id"`
	Archetype domain.Archetype       `json:"archetype"`
	Strict    bool                   `json:"strict"`
	Entries   []domain.PlaylistEntry `json:"entries"`
	Warnings  []domain.Issue         `json:"warnings"`
	Issues    []domain.Issue         `json:"issues"`
}

// PlaylistBuilder renders workout plans into ordered playlists.
type PlaylistBuilder struct {
	catalog  *Catalog
	coverage *CoverageService
	resolver *Resolver
	checker  *AvailabilityChecker
	urls     PlaybackURLer
	opts     Options
	log      *logger.Logger
}

func NewPlaylistBuilder(catalog *Catalog, coverage *CoverageService, resolver *Resolver, checker *AvailabilityChecker, urls PlaybackURLer, opts Options, log *logger.Logger) *PlaylistBuilder {
	if log == nil {
		log = logger.Nop()
	}
	return &PlaylistBuilder{
		catalog:  catalog,
		coverage: coverage,
		resolver: resolver,
		checker:  checker,
		urls:     urls,
		opts:     opts,
		log:      log.With("component", "PlaylistBuilder"),
	}
}

// buildRun carries the state of one Build call.
type buildRun struct {
	b         *PlaylistBuilder
	workoutID string
	archetype domain.Archetype
	v         *Validator
	entries   []domain.PlaylistEntry
	log       *logger.Logger
}

// Build walks the plan week by week and day by day and emits the playlist.
// In strict mode the first validation failure aborts the build; the
// returned result then carries the issue and the error is a *ValidationError.
func (b *PlaylistBuilder) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	start := time.Now()
	strict := b.opts.StrictMode
	if req.Strict != nil {
		strict = *req.Strict
	}
	mode := "lenient"
	if strict {
		mode = "strict"
	}

	plan, err := b.validateRequest(req)
	if err != nil {
		metrics.PlaylistBuilds.WithLabelValues(mode, "input_error").Inc()
		return nil, err
	}

	run := &buildRun{
		b:         b,
		workoutID: req.WorkoutID,
		archetype: req.Archetype,
		v:         NewValidator(strict, b.catalog, b.opts.RequiredVideoKinds),
	}
	result := &BuildResult{
		BuildID:   uuid.NewString(),
		WorkoutID: req.WorkoutID,
		Archetype: req.Archetype,
		Strict:    strict,
	}
	run.log = b.log.With("build_id", result.BuildID, "workout_id", req.WorkoutID, "archetype", string(req.Archetype))

	err = run.walk(ctx, plan)
	metrics.PlaylistBuildDuration.Observe(time.Since(start).Seconds())

	result.Entries = run.entries
	result.Warnings = run.v.Warnings
	result.Issues = run.v.Issues
	if result.Entries == nil {
		result.Entries = []domain.PlaylistEntry{}
	}
	if result.Warnings == nil {
		result.Warnings = []domain.Issue{}
	}
	if result.Issues == nil {
		result.Issues = []domain.Issue{}
	}

	if err != nil {
		label := "error"
		if CodeOf(err) != "" {
			label = "validation_error"
		}
		metrics.PlaylistBuilds.WithLabelValues(mode, label).Inc()
		run.log.Warn("playlist build failed", "error", err, "entries", len(result.Entries))
		if label == "validation_error" {
			return result, err
		}
		return nil, err
	}

	metrics.PlaylistBuilds.WithLabelValues(mode, "ok").Inc()
	run.log.Info("playlist built", "entries", len(result.Entries), "warnings", len(result.Warnings), "duration", time.Since(start).String())
	return result, nil
}

func (b *PlaylistBuilder) validateRequest(req BuildRequest) (*domain.Plan, error) {
	if strings.TrimSpace(req.WorkoutID) == "" {
		return nil, fmt.Errorf("%w: workout id is required", ErrInvalidRequest)
	}
	if _, err := domain.ParseArchetype(string(req.Archetype)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.Plan != nil {
		return req.Plan, nil
	}
	if len(req.PlanJSON) == 0 {
		return nil, fmt.Errorf("%w: plan is required", ErrInvalidRequest)
	}
	return domain.ParsePlan(req.PlanJSON)
}

func (r *buildRun) walk(ctx context.Context, plan *domain.Plan) error {
	for _, week := range plan.Weeks {
		for di, day := range week.Days {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.buildDay(ctx, week.WeekNumber, day, di == 0); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *buildRun) buildDay(ctx context.Context, week int, day domain.PlanDay, firstOfWeek bool) error {
	rng := dayRand(r.workoutID, week, day.DayNumber, r.archetype)
	var dayEntries []domain.PlaylistEntry

	if firstOfWeek && r.b.opts.IncludeWeeklyClips {
		clip, status, _ := r.resolveAvailable(ctx, "", domain.KindWeekly, r.probeAllowance())
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.v.ValidateVideoAvailability("", domain.KindWeekly, r.archetype, status); err != nil {
			return err
		}
		if status == StatusAvailable {
			entry := r.videoEntry(ctx, clip, week, day.DayNumber, "", 0)
			dayEntries = append(dayEntries, entry)
		}
	}

	// Block indexes start at 1; 0 is reserved for the weekly clip.
	for bi, block := range day.Blocks {
		blockIndex := bi + 1
		switch {
		case block.Type.IsExerciseBlock():
			for _, ex := range block.Exercises {
				if err := ctx.Err(); err != nil {
					return err
				}
				// One draw per slot, whatever happens to the slot afterwards.
				includeMistake := rng.Float64() < r.b.opts.MistakeInclusionProbability
				entries, err := r.exerciseSlot(ctx, week, day.DayNumber, block.Type, blockIndex, ex, includeMistake)
				if err != nil {
					return err
				}
				dayEntries = append(dayEntries, entries...)
			}
		case block.Type == domain.BlockConfidenceTask:
			dayEntries = append(dayEntries, domain.PlaylistEntry{
				Type:        domain.EntryText,
				Week:        week,
				Day:         day.DayNumber,
				Block:       block.Type,
				BlockIndex:  blockIndex,
				Text:        block.Text,
				Description: block.Description,
			})
		default:
			r.v.Warn(CodeBlockTypeUnknown, fmt.Sprintf("week %d day %d: skipped block of unknown type %q", week, day.DayNumber, block.Type))
		}
	}

	if err := r.v.ValidatePlaylistCompleteness(dayEntries, day.IsRestDay); err != nil {
		return err
	}
	r.entries = append(r.entries, dayEntries...)
	return nil
}

// exerciseSlot emits instruction, technique and, when drawn, mistake
// entries for one plan exercise.
func (r *buildRun) exerciseSlot(ctx context.Context, week, day int, blockType domain.BlockType, blockIndex int, ex domain.PlanExercise, includeMistake bool) ([]domain.PlaylistEntry, error) {
	ok, err := r.v.ValidateExerciseExists(ctx, ex.Slug)
	if err != nil || !ok {
		return nil, err
	}

	target := ex.Slug
	substitutedFrom := ""
	// Substitution shares the instruction slot's probe allowance.
	allowance := r.probeAllowance()
	clip, status, used := r.resolveAvailable(ctx, target, domain.KindInstruction, allowance)
	if status != StatusAvailable && ctx.Err() == nil {
		if sub, subClip, found := r.substitute(ctx, ex.Slug, allowance-used); found {
			r.v.Warn(CodeExerciseSubstituted, fmt.Sprintf("%q has no playable instruction video, using %q", ex.Slug, sub))
			target, clip, status, substitutedFrom = sub, subClip, StatusAvailable, ex.Slug
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.v.ValidateVideoAvailability(ex.Slug, domain.KindInstruction, r.archetype, status); err != nil {
		return nil, err
	}

	name := ex.Name
	if substitutedFrom != "" || name == "" {
		if attrs, ok := r.b.catalog.GetAttributes(ctx, target); ok {
			name = attrs.Name
		}
	}
	slotEntry := func(clip domain.VideoClip) domain.PlaylistEntry {
		e := r.videoEntry(ctx, clip, week, day, blockType, blockIndex)
		e.ExerciseID = target
		e.ExerciseName = name
		e.Sets = ex.Sets
		e.Reps = ex.Reps
		e.SubstitutedFrom = substitutedFrom
		return e
	}

	var entries []domain.PlaylistEntry
	if status == StatusAvailable {
		entries = append(entries, slotEntry(clip))
	}

	kinds := []domain.VideoKind{domain.KindTechnique}
	if includeMistake {
		kinds = append(kinds, domain.KindMistake)
	}
	for _, kind := range kinds {
		clip, status, _ := r.resolveAvailable(ctx, target, kind, r.probeAllowance())
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.v.ValidateVideoAvailability(target, kind, r.archetype, status); err != nil {
			return nil, err
		}
		if status == StatusAvailable {
			entries = append(entries, slotEntry(clip))
		}
	}
	return entries, nil
}

// substitute looks for the most similar allowed exercise that has a
// playable instruction clip, probing storage at most maxProbes times.
func (r *buildRun) substitute(ctx context.Context, slug string, maxProbes int) (string, domain.VideoClip, bool) {
	if r.b.opts.MaxSubstitutes <= 0 || r.b.coverage == nil || maxProbes <= 0 {
		return "", domain.VideoClip{}, false
	}
	allowed := r.b.coverage.AllowedSlugs(ctx, "")
	similar := r.b.catalog.FindSimilar(ctx, slug, allowed, r.b.opts.SimilarityWeights, r.b.opts.MaxSubstitutes)
	for _, candidate := range similar {
		if maxProbes <= 0 || ctx.Err() != nil {
			break
		}
		clip, status, used := r.resolveAvailable(ctx, candidate, domain.KindInstruction, maxProbes)
		maxProbes -= used
		if status == StatusAvailable {
			metrics.ExerciseSubstitutions.WithLabelValues("found").Inc()
			r.log.Info("exercise substituted", "exercise", slug, "substitute", candidate)
			return candidate, clip, true
		}
	}
	metrics.ExerciseSubstitutions.WithLabelValues("none").Inc()
	return "", domain.VideoClip{}, false
}

// probeAllowance is the number of storage probes one slot may make.
func (r *buildRun) probeAllowance() int {
	if r.b.opts.StorageRetryBudget < 0 {
		return 1
	}
	return r.b.opts.StorageRetryBudget + 1
}

// resolveAvailable returns the first stored candidate and the number of
// probes spent finding it.
func (r *buildRun) resolveAvailable(ctx context.Context, exerciseID string, kind domain.VideoKind, maxProbes int) (domain.VideoClip, AvailabilityStatus, int) {
	candidates := r.b.resolver.Candidates(ctx, exerciseID, kind, r.archetype)
	if len(candidates) == 0 {
		return domain.VideoClip{}, StatusMissing, 0
	}
	return r.b.checker.ensureWithin(ctx, candidates[0], SupplierFrom(candidates), maxProbes)
}

func (r *buildRun) videoEntry(ctx context.Context, clip domain.VideoClip, week, day int, blockType domain.BlockType, blockIndex int) domain.PlaylistEntry {
	archetype := clip.Archetype
	if archetype == "" {
		archetype = r.archetype
	}
	entry := domain.PlaylistEntry{
		Type:       domain.EntryVideo,
		Week:       week,
		Day:        day,
		Block:      blockType,
		BlockIndex: blockIndex,
		Kind:       clip.Kind,
		ExerciseID: clip.ExerciseID,
		ClipID:     clip.ID,
		Archetype:  archetype,
		Duration:   clip.DurationSeconds,
	}
	if r.b.urls != nil {
		url, err := r.b.urls.PlaybackURL(ctx, clip)
		if err != nil {
			r.log.Warn("could not build playback url", "clip", clip.ID, "error", err)
		} else {
			entry.PlaybackURL = url
		}
	}
	return entry
}
