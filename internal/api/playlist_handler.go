package api

import (
	"alcyxob/workout-playlist/internal/domain"
	"alcyxob/workout-playlist/internal/logger"
	"alcyxob/workout-playlist/internal/service"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// PlaylistBuilder is what the handler needs from service.PlaylistBuilder.
type PlaylistBuilder interface {
	Build(ctx context.Context, req service.BuildRequest) (*service.BuildResult, error)
}

// PlaylistHandler serves playlist builds.
type PlaylistHandler struct {
	builder      PlaylistBuilder
	buildTimeout time.Duration
	log          *logger.Logger
}

// NewPlaylistHandler creates a new PlaylistHandler.
func NewPlaylistHandler(builder PlaylistBuilder, buildTimeout time.Duration, log *logger.Logger) *PlaylistHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &PlaylistHandler{builder: builder, buildTimeout: buildTimeout, log: log}
}

// --- DTOs ---

// BuildPlaylistRequest is the JSON body of POST /playlists.
type BuildPlaylistRequest struct {
	WorkoutID string          `json:"workout_id"`
	Archetype string          `json:"archetype"`
	Strict    *bool           `json:"strict,omitempty"`
	Plan      json.RawMessage `json:"plan"`
}

// ValidationErrorResponse is returned with 422 when a strict build fails.
type ValidationErrorResponse struct {
	Error    string         `json:"error"`
	Code     string         `json:"code"`
	Issues   []domain.Issue `json:"issues"`
	Warnings []domain.Issue `json:"warnings"`
}

// BuildPlaylist handles POST /api/v1/playlists
func (h *PlaylistHandler) BuildPlaylist(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Could not read request body")
		return
	}
	var req BuildPlaylistRequest
	if err := json.Unmarshal(body, &req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.WorkoutID) == "" || req.Archetype == "" || len(req.Plan) == 0 {
		abortWithError(c, http.StatusBadRequest, "workout_id, archetype and plan are required")
		return
	}

	ctx := c.Request.Context()
	if h.buildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.buildTimeout)
		defer cancel()
	}

	result, err := h.builder.Build(ctx, service.BuildRequest{
		WorkoutID: req.WorkoutID,
		Archetype: domain.Archetype(req.Archetype),
		PlanJSON:  req.Plan,
		Strict:    req.Strict,
	})
	if err != nil {
		h.writeBuildError(c, result, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *PlaylistHandler) writeBuildError(c *gin.Context, result *service.BuildResult, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidPlan):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		abortWithError(c, http.StatusGatewayTimeout, "Playlist build timed out")
	case service.CodeOf(err) != "":
		resp := ValidationErrorResponse{Error: err.Error(), Code: string(service.CodeOf(err))}
		if result != nil {
			resp.Issues = result.Issues
			resp.Warnings = result.Warnings
		}
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, resp)
	default:
		h.log.Error("playlist build failed", "error", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to build playlist")
	}
}
