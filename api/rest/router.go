// Package rest is the HTTP surface of the progression engine.
package rest

import (
	"net/http"

	mw "github.com/fitquest/server/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers groups everything Register wires.
type Handlers struct {
	Quests  *QuestHandler
	Targets *TargetHandler
	Streaks *StreakHandler
	Admin   *AdminHandler
}

// Register mounts all routes. user routes are behind JWT auth and limiter
// (which may be nil); admin routes behind the admin key.
func Register(r gin.IRouter, h Handlers, jwtSecret, adminKey string, limiter gin.HandlerFunc) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", mw.Auth(jwtSecret))
	if limiter != nil {
		api.Use(limiter)
	}
	{
		api.GET("/quests/today", h.Quests.Today)
		api.GET("/quests/rotating", h.Quests.Rotating)
		api.POST("/quests/:template_id/activate", h.Quests.Activate)
		api.DELETE("/quests/:template_id", h.Quests.Deactivate)

		api.POST("/quest-logs/:id/progress", h.Quests.Progress)
		api.POST("/quest-logs/:id/complete", h.Quests.Complete)
		api.POST("/quest-logs/:id/reset", h.Quests.Reset)
		api.DELETE("/quest-logs/:id", h.Quests.Remove)

		api.POST("/targets/cycle", h.Targets.Cycle)
		api.GET("/targets/:template_id", h.Targets.Get)
		api.POST("/targets/:template_id/adapt", h.Targets.Adapt)
		api.PUT("/targets/:template_id/manual", h.Targets.SetManual)
		api.DELETE("/targets/:template_id/manual", h.Targets.ClearManual)

		api.GET("/streak", h.Streaks.Get)
		api.POST("/streak/recalculate", h.Streaks.Recalculate)
		api.GET("/bonus", h.Streaks.Bonus)
	}

	admin := r.Group("/api/admin", mw.AdminAuth(adminKey))
	{
		admin.GET("/scheduler", h.Admin.Scheduler)
		admin.POST("/adaptation/run", h.Admin.RunAdaptation)
	}
}
