package handlers

import (
	"context"
	"errors"
	"net/http"

	"spiresync/internal/inventory"
	"spiresync/internal/logger"
	"spiresync/internal/models"
	"spiresync/internal/progress"

	"github.com/gin-gonic/gin"
)

type SyncScheduler interface {
	Schedule(ctx context.Context, runKey string) (*models.SyncRun, error)
	Progress(ctx context.Context, runKey string) (*models.SyncRun, error)
}

type SyncHandler struct {
	scheduler SyncScheduler
	logger    *logger.Logger
}

func NewSyncHandler(scheduler SyncScheduler, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

type syncRequest struct {
	Brand string `json:"brand"`
}

// Inventory schedules an inventory sync for one brand and returns as soon as
// it is dispatched.
func (h *SyncHandler) Inventory(c *gin.Context) {
	var req syncRequest
	_ = c.ShouldBindJSON(&req)

	run, err := h.scheduler.Schedule(c.Request.Context(), req.Brand)
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrMissingRunKey), errors.Is(err, inventory.ErrMissingCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": userMessage(err)})
		default:
			h.logger.Error("Failed to schedule sync for %s: %v", req.Brand, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"success": true, "data": run})
}

func (h *SyncHandler) Progress(c *gin.Context) {
	run, err := h.scheduler.Progress(c.Request.Context(), c.Param("brand"))
	if err != nil {
		switch {
		case errors.Is(err, progress.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": userMessage(err)})
		case errors.Is(err, inventory.ErrMissingRunKey):
			c.JSON(http.StatusBadRequest, gin.H{"error": userMessage(err)})
		default:
			h.logger.Error("Failed to read sync progress: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read sync progress"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": run})
}
