package api

import (
	"errors"
	"log"
	"net/http"
	"path/filepath"

	"slidecast/jobs"
	"slidecast/types"

	"github.com/gin-gonic/gin"
)

type exportsController struct {
	jobs *jobs.Manager
}

// RegisterExportRoutes registers the export job routes.
func RegisterExportRoutes(r *gin.Engine, jm *jobs.Manager) {
	c := &exportsController{jobs: jm}
	g := r.Group("/api/exports")
	g.POST("", c.handleCreate)
	g.GET("", c.handleList)
	g.GET("/:id", c.handleGet)
	g.GET("/:id/download", c.handleDownload)
}

// handleCreate queues an export. Relative asset references resolve against base_url.
func (ec *exportsController) handleCreate(c *gin.Context) {
	var req types.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := ec.jobs.Submit(req, "")
	switch {
	case errors.Is(err, jobs.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Printf("📥 Export %s queued (%d slides)", id, len(req.Manifest.Slides))
	c.JSON(http.StatusAccepted, gin.H{
		"id":         id,
		"state":      types.StateQueued,
		"status_url": "/api/exports/" + id,
	})
}

func (ec *exportsController) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, ec.jobs.List())
}

func (ec *exportsController) handleGet(c *gin.Context) {
	st, err := ec.jobs.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, jobs.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (ec *exportsController) handleDownload(c *gin.Context) {
	id := c.Param("id")
	path, err := ec.jobs.Output(id)
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, jobs.ErrNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
