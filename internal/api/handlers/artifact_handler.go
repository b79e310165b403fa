package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fileflow/fileflow/internal/storage"
)

// ArtifactHandler serves read-only views over intermediate storage.
type ArtifactHandler struct {
	backend storage.Backend
}

func NewArtifactHandler(backend storage.Backend) *ArtifactHandler {
	return &ArtifactHandler{backend: backend}
}

// List returns the artifact names stored under a step's container.
func (h *ArtifactHandler) List(c *gin.Context) {
	workflow := c.Param("workflow")
	step := c.Param("step")

	names, err := h.backend.ListFilenamesInTask(c.Request.Context(), workflow, step)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if names == nil {
		names = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"workflow":  workflow,
		"step":      step,
		"locator":   h.backend.GetPath(workflow, step),
		"artifacts": names,
	})
}

// Get streams one artifact's payload. The :date segment must be a
// YYYY-MM-DD run date.
func (h *ArtifactHandler) Get(c *gin.Context) {
	workflow := c.Param("workflow")
	step := c.Param("step")

	runDate, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	data, err := h.backend.Read(c.Request.Context(), workflow, step, runDate)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}
