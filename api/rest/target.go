package rest

import (
	"net/http"

	"github.com/fitquest/server/game/target"
	mw "github.com/fitquest/server/middleware"
	"github.com/gin-gonic/gin"
)

// TargetHandler exposes adaptive targets.
type TargetHandler struct {
	cal *target.Calibrator
}

func NewTargetHandler(cal *target.Calibrator) *TargetHandler {
	return &TargetHandler{cal: cal}
}

// Get returns the user's target for a template, creating it on first read.
// GET /api/targets/:template_id
func (h *TargetHandler) Get(c *gin.Context) {
	tid, ok := paramID(c, "template_id")
	if !ok {
		return
	}
	at, err := h.cal.GetAdaptedTarget(c.Request.Context(), mw.GetUserID(c), tid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"target": at})
}

// Adapt recalibrates one target now.
// POST /api/targets/:template_id/adapt
func (h *TargetHandler) Adapt(c *gin.Context) {
	tid, ok := paramID(c, "template_id")
	if !ok {
		return
	}
	res, err := h.cal.AdaptTarget(c.Request.Context(), mw.GetUserID(c), tid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"adaptation": res})
}

type manualTargetRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

// SetManual pins a target to a user-chosen value.
// PUT /api/targets/:template_id/manual
func (h *TargetHandler) SetManual(c *gin.Context) {
	tid, ok := paramID(c, "template_id")
	if !ok {
		return
	}
	var req manualTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	at, err := h.cal.SetManualTarget(c.Request.Context(), mw.GetUserID(c), tid, *req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"target": at})
}

// ClearManual hands the target back to the calibrator.
// DELETE /api/targets/:template_id/manual
func (h *TargetHandler) ClearManual(c *gin.Context) {
	tid, ok := paramID(c, "template_id")
	if !ok {
		return
	}
	at, err := h.cal.ClearManualOverride(c.Request.Context(), mw.GetUserID(c), tid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"target": at})
}

// Cycle recalibrates all of the user's targets.
// POST /api/targets/cycle
func (h *TargetHandler) Cycle(c *gin.Context) {
	res, err := h.cal.RunAdaptationCycle(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
