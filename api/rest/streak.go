package rest

import (
	"net/http"

	"github.com/fitquest/server/game/streak"
	mw "github.com/fitquest/server/middleware"
	"github.com/gin-gonic/gin"
)

// StreakHandler serves streak and bonus reads.
type StreakHandler struct {
	streaks *streak.Service
}

func NewStreakHandler(streaks *streak.Service) *StreakHandler {
	return &StreakHandler{streaks: streaks}
}

// Get returns the cached streak info.
// GET /api/streak
func (h *StreakHandler) Get(c *gin.Context) {
	info, err := h.streaks.GetStreakInfo(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Recalculate recomputes the streak from daily logs.
// POST /api/streak/recalculate
func (h *StreakHandler) Recalculate(c *gin.Context) {
	info, err := h.streaks.UpdateUserStreak(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Bonus returns the XP bonus tier for the current streak.
// GET /api/bonus
func (h *StreakHandler) Bonus(c *gin.Context) {
	info, err := h.streaks.GetStreakInfo(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"current_streak":       info.CurrentStreak,
		"bonus":                info.Bonus,
		"days_until_next_tier": info.DaysUntilNextTier,
	})
}
