package model_test

import (
	"testing"
	"time"

	"github.com/fitquest/server/game/requirement"
	"github.com/fitquest/server/model"
	"github.com/fitquest/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	u := &model.User{Name: "runner", Timezone: "Europe/Berlin"}
	require.NoError(t, db.Create(u).Error)
	assert.Greater(t, u.ID, int64(0))

	var found model.User
	require.NoError(t, db.First(&found, u.ID).Error)
	assert.Equal(t, 1, found.Level)
	assert.Equal(t, 10, found.Str)

	require.NoError(t, db.Create(&model.BaselineAssessment{UserID: u.ID, DailyStepsBaseline: 6000}).Error)

	tpl := testutil.SeedTemplate(t, db, "core_steps",
		requirement.Numeric{Metric: "steps", Value: 10000}, testutil.TemplateOpts{IsCore: true})
	ql := testutil.SeedQuestLog(t, db, u.ID, tpl.ID, "2026-06-10", model.QuestStatusActive, 0, 10000)
	assert.Greater(t, ql.ID, int64(0))
	testutil.SeedDailyLog(t, db, u.ID, "2026-06-10", 0, 1, false)

	require.NoError(t, db.Create(&model.UserQuestToggle{UserID: u.ID, TemplateID: tpl.ID, Enabled: true}).Error)
	require.NoError(t, db.Create(&model.AdaptedTarget{UserID: u.ID, TemplateID: tpl.ID, Metric: "steps", BaseTarget: 10000, Target: 8400}).Error)
	require.NoError(t, db.Create(&model.XPEvent{UserID: u.ID, Source: "quest_complete", Amount: 50}).Error)
	require.NoError(t, db.Create(&model.AuditLog{TraceID: "trace-001", Action: "quest.activate", CreatedAt: time.Now()}).Error)
}

func TestQuestLog_UniquePerDay(t *testing.T) {
	db := testutil.SetupTestDB(t)
	u := testutil.SeedUser(t, db, time.Now())
	tpl := testutil.SeedTemplate(t, db, "core_sleep",
		requirement.Numeric{Metric: "sleep_hours", Value: 8}, testutil.TemplateOpts{IsCore: true})
	testutil.SeedQuestLog(t, db, u.ID, tpl.ID, "2026-06-10", model.QuestStatusActive, 0, 8)

	dup := &model.QuestLog{UserID: u.ID, TemplateID: tpl.ID, Date: "2026-06-10", Status: model.QuestStatusActive}
	assert.Error(t, db.Create(dup).Error)
}

func TestQuestTemplate_Req(t *testing.T) {
	db := testutil.SetupTestDB(t)
	tpl := testutil.SeedTemplate(t, db, "bonus_yoga",
		requirement.Numeric{Metric: "yoga_minutes", Value: 20}, testutil.TemplateOpts{})

	var loaded model.QuestTemplate
	require.NoError(t, db.First(&loaded, tpl.ID).Error)
	assert.Equal(t, "yoga_minutes", requirement.MetricOf(loaded.Req()))
	assert.Equal(t, 20.0, requirement.TargetOf(loaded.Req()))
}
