package rest_test

import (
	"net/http"
	"testing"

	"github.com/fitquest/server/game/clock"
	"github.com/fitquest/server/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStreak_RecalculateAndBonus(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 7; i++ {
		testutil.SeedDailyLog(t, e.db, e.user.ID, clock.AddDays("2026-06-10", -i), 1, 1, true)
	}

	w := e.do(http.MethodPost, "/api/streak/recalculate", nil)
	statusOK(t, w, http.StatusOK)
	body := decode(t, w)
	assert.Equal(t, 7.0, body["current_streak"])
	assert.Equal(t, 7.0, body["perfect_streak"])

	w = e.do(http.MethodGet, "/api/bonus", nil)
	statusOK(t, w, http.StatusOK)
	body = decode(t, w)
	assert.Equal(t, "bronze", body["bonus"].(map[string]interface{})["tier"])
	assert.Equal(t, 7.0, body["days_until_next_tier"])

	w = e.do(http.MethodGet, "/api/streak", nil)
	statusOK(t, w, http.StatusOK)
	assert.Equal(t, 7.0, decode(t, w)["longest_streak"])
}
