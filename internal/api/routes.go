package api

import (
	"alcyxob/workout-playlist/internal/domain" // Needed for RoleMiddleware
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	playlistHandler *PlaylistHandler,
	libraryHandler *LibraryHandler,
) {
	authMiddleware := AuthMiddleware(jwtSecret)
	adminOnly := RoleMiddleware(domain.RoleAdmin)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := router.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role})
		})

		// POST /api/v1/playlists
		protected.POST("/playlists", playlistHandler.BuildPlaylist)

		// --- Exercise library ---
		exerciseGroup := protected.Group("/exercises")
		{
			exerciseGroup.GET("", libraryHandler.ListExercises)
			exerciseGroup.GET("/:id/similar", libraryHandler.GetSimilarExercises)
			exerciseGroup.PUT("/:id", adminOnly, libraryHandler.UpsertExercise)
		}

		clipGroup := protected.Group("/clips")
		clipGroup.Use(adminOnly)
		{
			clipGroup.POST("", libraryHandler.CreateClip)
			clipGroup.DELETE("/:id", libraryHandler.DeactivateClip)
		}

		// --- Coverage ---
		protected.GET("/coverage", adminOnly, libraryHandler.GetCoverageReport)
		protected.GET("/coverage/allowed", libraryHandler.GetAllowedExercises)

		// POST /api/v1/cache/invalidate
		protected.POST("/cache/invalidate", adminOnly, libraryHandler.InvalidateCache)
	}
}
