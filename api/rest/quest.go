package rest

import (
	"net/http"

	"github.com/fitquest/server/game/quest"
	"github.com/fitquest/server/game/rotation"
	mw "github.com/fitquest/server/middleware"
	"github.com/gin-gonic/gin"
)

// QuestHandler handles the daily quest board.
type QuestHandler struct {
	quests   *quest.Manager
	selector *rotation.Selector
}

func NewQuestHandler(quests *quest.Manager, selector *rotation.Selector) *QuestHandler {
	return &QuestHandler{quests: quests, selector: selector}
}

// Today instantiates the day on first call and returns its quests.
// GET /api/quests/today
func (h *QuestHandler) Today(c *gin.Context) {
	uid := mw.GetUserID(c)
	views, err := h.quests.StartDay(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	summary, err := h.quests.DailySummary(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quests": views, "summary": summary})
}

// Rotating returns today's rotating quest, or null while rotation is locked.
// GET /api/quests/rotating
func (h *QuestHandler) Rotating(c *gin.Context) {
	view, err := h.selector.GetTodayRotatingQuest(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": view, "available": view != nil})
}

// Activate opts the user into a bonus quest for today and future days.
// POST /api/quests/:template_id/activate
func (h *QuestHandler) Activate(c *gin.Context) {
	tid, ok := paramID(c, "template_id")
	if !ok {
		return
	}
	view, err := h.quests.ActivateQuest(c.Request.Context(), mw.GetUserID(c), tid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"quest": view})
}

// Deactivate opts out of a bonus quest.
// DELETE /api/quests/:template_id
func (h *QuestHandler) Deactivate(c *gin.Context) {
	tid, ok := paramID(c, "template_id")
	if !ok {
		return
	}
	if err := h.quests.DeactivateQuestByTemplate(c.Request.Context(), mw.GetUserID(c), tid); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type progressRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

// Progress sets the absolute value reached on a quest log.
// POST /api/quest-logs/:id/progress
func (h *QuestHandler) Progress(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.quests.UpdateProgress(c.Request.Context(), mw.GetUserID(c), id, *req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Complete finishes a quest log, partially when the template allows it.
// POST /api/quest-logs/:id/complete
func (h *QuestHandler) Complete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.quests.CompleteQuest(c.Request.Context(), mw.GetUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Reset reverts a completed quest log to active.
// POST /api/quest-logs/:id/reset
func (h *QuestHandler) Reset(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	view, err := h.quests.ResetQuest(c.Request.Context(), mw.GetUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": view})
}

// Remove deletes today's non-core quest log.
// DELETE /api/quest-logs/:id
func (h *QuestHandler) Remove(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.quests.RemoveQuest(c.Request.Context(), mw.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
