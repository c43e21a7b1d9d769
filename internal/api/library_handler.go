package api

import (
	"alcyxob/workout-playlist/internal/domain"
	"alcyxob/workout-playlist/internal/logger"
	"alcyxob/workout-playlist/internal/repository"
	"alcyxob/workout-playlist/internal/service"
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Coverage is what the handler needs from service.CoverageService.
type Coverage interface {
	AllowedSlugs(ctx context.Context, archetype domain.Archetype) map[string]struct{}
	Report(ctx context.Context, archetype domain.Archetype) (domain.CoverageReport, error)
}

// ExerciseCatalog is what the handler needs from service.Catalog.
type ExerciseCatalog interface {
	GetAttributes(ctx context.Context, id string) (domain.Exercise, bool)
	ExercisesBy(ctx context.Context, q service.ExerciseQuery) []string
	FindSimilar(ctx context.Context, sourceID string, allowed map[string]struct{}, weights service.SimilarityWeights, maxResults int) []string
}

// CacheInvalidator is implemented by service.Invalidator.
type CacheInvalidator interface {
	InvalidateScope(scope string) error
}

// ScopePublisher announces operator invalidations to other workers.
type ScopePublisher interface {
	PublishScope(ctx context.Context, scope string) error
}

// LibraryHandler serves the exercise library, its coverage and cache control.
type LibraryHandler struct {
	catalog     ExerciseCatalog
	coverage    Coverage
	writer      repository.ClipWriter
	invalidator CacheInvalidator
	publisher   ScopePublisher // nil without a bus
	weights     service.SimilarityWeights
	log         *logger.Logger
}

// NewLibraryHandler creates a new LibraryHandler.
func NewLibraryHandler(catalog ExerciseCatalog, coverage Coverage, writer repository.ClipWriter, invalidator CacheInvalidator, publisher ScopePublisher, weights service.SimilarityWeights, log *logger.Logger) *LibraryHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &LibraryHandler{
		catalog:     catalog,
		coverage:    coverage,
		writer:      writer,
		invalidator: invalidator,
		publisher:   publisher,
		weights:     weights,
		log:         log,
	}
}

// --- DTOs ---

// UpsertExerciseRequest is the body of PUT /exercises/:id.
type UpsertExerciseRequest struct {
	Name        string `json:"name" binding:"required"`
	MuscleGroup string `json:"muscle_group"`
	Equipment   string `json:"equipment"`
	Difficulty  string `json:"difficulty" binding:"omitempty,oneof=beginner intermediate advanced"`
	IsCompound  bool   `json:"is_compound"`
	IsCardio    bool   `json:"is_cardio"`
	IsActive    *bool  `json:"is_active"`
}

// CreateClipRequest is the body of POST /clips.
type CreateClipRequest struct {
	ExerciseID      string `json:"exercise_id"`
	Kind            string `json:"kind" binding:"required"`
	Archetype       string `json:"archetype"`
	Variant         string `json:"variant"`
	Provider        string `json:"provider"`
	Key             string `json:"key"`
	URL             string `json:"url" binding:"omitempty,url"`
	DurationSeconds int    `json:"duration_seconds" binding:"gte=0"`
}

func parseArchetypeQuery(c *gin.Context) (domain.Archetype, bool) {
	raw := c.Query("archetype")
	if raw == "" {
		return "", true
	}
	a, err := domain.ParseArchetype(raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return "", false
	}
	return a, true
}

// GetCoverageReport handles GET /api/v1/coverage
func (h *LibraryHandler) GetCoverageReport(c *gin.Context) {
	archetype, ok := parseArchetypeQuery(c)
	if !ok {
		return
	}
	report, err := h.coverage.Report(c.Request.Context(), archetype)
	if err != nil {
		h.log.Error("coverage report failed", "error", err)
		abortWithError(c, http.StatusServiceUnavailable, "Coverage report unavailable")
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetAllowedExercises handles GET /api/v1/coverage/allowed
func (h *LibraryHandler) GetAllowedExercises(c *gin.Context) {
	archetype, ok := parseArchetypeQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"archetype": archetype, "exercises": sortedKeys(h.coverage.AllowedSlugs(c.Request.Context(), archetype))})
}

// ListExercises handles GET /api/v1/exercises
func (h *LibraryHandler) ListExercises(c *gin.Context) {
	q := service.ExerciseQuery{
		MuscleGroup: c.Query("muscle_group"),
		Equipment:   c.Query("equipment"),
		Difficulty:  domain.Difficulty(c.Query("difficulty")),
	}
	ctx := c.Request.Context()
	exercises := make([]domain.Exercise, 0)
	for _, id := range h.catalog.ExercisesBy(ctx, q) {
		if ex, ok := h.catalog.GetAttributes(ctx, id); ok {
			exercises = append(exercises, ex)
		}
	}
	c.JSON(http.StatusOK, exercises)
}

// GetSimilarExercises handles GET /api/v1/exercises/:id/similar
func (h *LibraryHandler) GetSimilarExercises(c *gin.Context) {
	id := c.Param("id")
	archetype, ok := parseArchetypeQuery(c)
	if !ok {
		return
	}
	limit := 5
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			abortWithError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	if _, ok := h.catalog.GetAttributes(ctx, id); !ok {
		abortWithError(c, http.StatusNotFound, "Exercise not found")
		return
	}
	allowed := h.coverage.AllowedSlugs(ctx, archetype)
	similar := h.catalog.FindSimilar(ctx, id, allowed, h.weights, limit)
	if similar == nil {
		similar = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"exercise_id": id, "similar": similar})
}

// UpsertExercise handles PUT /api/v1/exercises/:id
func (h *LibraryHandler) UpsertExercise(c *gin.Context) {
	var req UpsertExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	ex := &domain.Exercise{
		ID:          c.Param("id"),
		Name:        req.Name,
		MuscleGroup: req.MuscleGroup,
		Equipment:   req.Equipment,
		Difficulty:  domain.ParseDifficulty(req.Difficulty),
		IsCompound:  req.IsCompound,
		IsCardio:    req.IsCardio,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := h.writer.UpsertExercise(c.Request.Context(), ex); err != nil {
		h.writeRepoError(c, "upsert exercise", err)
		return
	}
	c.JSON(http.StatusOK, ex)
}

// CreateClip handles POST /api/v1/clips
func (h *LibraryHandler) CreateClip(c *gin.Context) {
	var req CreateClipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	kind, err := domain.ParseVideoKind(req.Kind)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	var archetype domain.Archetype
	if req.Archetype != "" {
		if archetype, err = domain.ParseArchetype(req.Archetype); err != nil {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	provider, ok := domain.ParseStorageProvider(req.Provider)
	if !ok {
		abortWithError(c, http.StatusBadRequest, "Unknown storage provider")
		return
	}

	clip := &domain.VideoClip{
		ExerciseID:      req.ExerciseID,
		Kind:            kind,
		Archetype:       archetype,
		Variant:         req.Variant,
		IsActive:        true,
		Storage:         domain.StorageRef{Provider: provider, Key: req.Key, URL: req.URL},
		DurationSeconds: req.DurationSeconds,
	}
	if clip.Storage.IsEmpty() {
		abortWithError(c, http.StatusBadRequest, "Storage reference is empty")
		return
	}
	if _, err := h.writer.UpsertClip(c.Request.Context(), clip); err != nil {
		h.writeRepoError(c, "create clip", err)
		return
	}
	c.JSON(http.StatusCreated, clip)
}

// DeactivateClip handles DELETE /api/v1/clips/:id
func (h *LibraryHandler) DeactivateClip(c *gin.Context) {
	if err := h.writer.DeactivateClip(c.Request.Context(), c.Param("id")); err != nil {
		h.writeRepoError(c, "deactivate clip", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// InvalidateCache handles POST /api/v1/cache/invalidate
func (h *LibraryHandler) InvalidateCache(c *gin.Context) {
	var req struct {
		Scope string `json:"scope"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}
	if req.Scope == "" {
		req.Scope = service.ScopeAll
	}
	if err := h.invalidator.InvalidateScope(req.Scope); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	published := false
	if h.publisher != nil {
		if err := h.publisher.PublishScope(c.Request.Context(), req.Scope); err != nil {
			h.log.Warn("could not publish invalidation", "scope", req.Scope, "error", err)
		} else {
			published = true
		}
	}
	c.JSON(http.StatusOK, gin.H{"scope": req.Scope, "published": published})
}

func (h *LibraryHandler) writeRepoError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrInvalid):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		h.log.Error(op+" failed", "error", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to "+op)
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
