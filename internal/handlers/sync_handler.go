package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/scheduler"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

type JobRunner interface {
	RunNow(ctx context.Context, name string) (*scheduler.RunResult, error)
	Jobs() []string
	Spec(name string) string
}

type SyncHandler struct {
	runner JobRunner
}

func NewSyncHandler(runner JobRunner) *SyncHandler {
	return &SyncHandler{runner: runner}
}

func (h *SyncHandler) ListJobs(c *gin.Context) {
	jobs := make([]gin.H, 0)
	for _, name := range h.runner.Jobs() {
		jobs = append(jobs, gin.H{"job": name, "schedule": h.runner.Spec(name)})
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// RunJob runs one reconciliation pass now under the job's lock.
func (h *SyncHandler) RunJob(c *gin.Context) {
	job := c.Param("job")

	result, err := h.runner.RunNow(c.Request.Context(), job)
	if errors.Is(err, scheduler.ErrUnknownJob) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown sync job", "job": job})
		return
	}
	if err != nil {
		telemetry.Logger.Error("Error running sync job", zap.String("job", job), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run sync job", "job": job})
		return
	}

	if result.Skipped {
		c.JSON(http.StatusConflict, gin.H{"status": "skipped", "job": job})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "completed",
		"job":      job,
		"duration": result.Duration.String(),
	})
}
