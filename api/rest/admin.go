package rest

import (
	"context"
	"net/http"

	"github.com/fitquest/server/jobs"
	"github.com/fitquest/server/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdaptationRunner runs the adaptation job synchronously.
type AdaptationRunner interface {
	Run(ctx context.Context) (*jobs.Summary, error)
}

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	sched      *scheduler.Scheduler
	adaptation AdaptationRunner
	logger     *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(sched *scheduler.Scheduler, adaptation AdaptationRunner, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{sched: sched, adaptation: adaptation, logger: logger}
}

// Scheduler returns the status of every registered task.
// GET /api/admin/scheduler
func (h *AdminHandler) Scheduler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.Status()})
}

// RunAdaptation runs the adaptation job and returns its summary.
// POST /api/admin/adaptation/run
func (h *AdminHandler) RunAdaptation(c *gin.Context) {
	sum, err := h.adaptation.Run(c.Request.Context())
	if err != nil {
		h.logger.Error("admin adaptation run failed", zap.Error(err))
		respondError(c, err)
		return
	}
	h.logger.Info("admin adaptation run", zap.Int("users", sum.Users), zap.Int("adapted", sum.Adapted))
	c.JSON(http.StatusOK, sum)
}
