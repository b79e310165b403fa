// Package api exposes a read-only HTTP surface for browsing
// intermediate task storage.
package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/fileflow/fileflow/internal/api/handlers"
	"github.com/fileflow/fileflow/internal/api/middleware"
	"github.com/fileflow/fileflow/internal/storage"
)

// NewRouter builds the browse router over the given backend.
func NewRouter(backend storage.Backend) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Logger(),
		middleware.Recovery(),
		cors.Default(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		h := handlers.NewArtifactHandler(backend)
		v1.GET("/workflows/:workflow/steps/:step/artifacts", h.List)
		v1.GET("/workflows/:workflow/steps/:step/artifacts/:date", h.Get)
	}

	return router
}
