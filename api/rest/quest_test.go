package rest_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/fitquest/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	e := newEnv(t)
	w := e.doWith(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQuests_RequireAuth(t *testing.T) {
	e := newEnv(t)
	w := e.doWith(http.MethodGet, "/api/quests/today", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQuests_TodayAndComplete(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/quests/today", nil)
	statusOK(t, w, http.StatusOK)
	body := decode(t, w)
	quests := body["quests"].([]interface{})
	require.Len(t, quests, 1)
	log := quests[0].(map[string]interface{})["log"].(map[string]interface{})
	logID := int64(log["id"].(float64))
	assert.Equal(t, 10000.0, log["target_value"])

	w = e.do(http.MethodPost, fmt.Sprintf("/api/quest-logs/%d/progress", logID), map[string]float64{"value": 10000})
	statusOK(t, w, http.StatusOK)
	res := decode(t, w)
	assert.Equal(t, true, res["completed"])
	assert.Equal(t, 100.0, res["xp_awarded"])

	// Completing again is a conflict.
	w = e.do(http.MethodPost, fmt.Sprintf("/api/quest-logs/%d/complete", logID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "conflict", decode(t, w)["kind"])

	// Core quests cannot be removed.
	w = e.do(http.MethodDelete, fmt.Sprintf("/api/quest-logs/%d", logID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, fmt.Sprintf("/api/quest-logs/%d/reset", logID), nil)
	statusOK(t, w, http.StatusOK)
	var u model.User
	require.NoError(t, e.db.First(&u, e.user.ID).Error)
	assert.Equal(t, int64(0), u.TotalXP)
}

func TestQuests_ProgressValidation(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/api/quest-logs/1/progress", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/api/quest-logs/abc/progress", map[string]float64{"value": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/api/quest-logs/999/progress", map[string]float64{"value": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuests_ActivateAndDeactivate(t *testing.T) {
	e := newEnv(t)
	path := fmt.Sprintf("/api/quests/%d/activate", e.yoga.ID)

	w := e.do(http.MethodPost, path, nil)
	statusOK(t, w, http.StatusCreated)

	w = e.do(http.MethodPost, path, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodDelete, fmt.Sprintf("/api/quests/%d", e.yoga.ID), nil)
	statusOK(t, w, http.StatusNoContent)

	var n int64
	e.db.Model(&model.QuestLog{}).Where("user_id = ? AND template_id = ?", e.user.ID, e.yoga.ID).Count(&n)
	assert.Zero(t, n)
}

func TestQuests_RotatingLocked(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodGet, "/api/quests/rotating", nil)
	statusOK(t, w, http.StatusOK)
	body := decode(t, w)
	assert.Nil(t, body["quest"])
	assert.Equal(t, false, body["available"])
}
