package daylog

import (
	"testing"
	"time"

	"github.com/fitquest/server/game/requirement"
	"github.com/fitquest/server/model"
	"github.com/fitquest/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = "2026-05-06"

func TestEnsure_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a, err := Ensure(db, 1, day)
	require.NoError(t, err)
	b, err := Ensure(db, 1, day)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	var n int64
	db.Model(&model.DailyLog{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestInsertQuestLog_Unique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ok, err := InsertQuestLog(db, &model.QuestLog{UserID: 1, TemplateID: 2, Date: day, Status: model.QuestStatusActive})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = InsertQuestLog(db, &model.QuestLog{UserID: 1, TemplateID: 2, Date: day, Status: model.QuestStatusActive})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = InsertQuestLog(db, &model.QuestLog{UserID: 1, TemplateID: 2, Date: "2026-05-07", Status: model.QuestStatusActive})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompletionCounters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	require.NoError(t, AddCoreTotal(db, 1, day, 2))
	require.NoError(t, RecordCompletion(db, 1, day, true, 50))
	require.NoError(t, RecordCompletion(db, 1, day, false, 20))

	dl, err := Ensure(db, 1, day)
	require.NoError(t, err)
	assert.Equal(t, 1, dl.CoreQuestsCompleted)
	assert.Equal(t, 2, dl.CoreQuestsTotal)
	assert.Equal(t, 1, dl.BonusQuestsCompleted)
	assert.Equal(t, 70, dl.XPEarned)

	require.NoError(t, RevertCompletion(db, 1, day, true, 50))
	require.NoError(t, RevertCompletion(db, 1, day, true, 50))
	dl, _ = Ensure(db, 1, day)
	assert.Equal(t, 0, dl.CoreQuestsCompleted)
	assert.Equal(t, 20, dl.XPEarned)
}

func TestRecomputePerfect(t *testing.T) {
	db := testutil.SetupTestDB(t)
	u := testutil.SeedUser(t, db, time.Now())
	core := testutil.SeedTemplate(t, db, "core", requirement.Numeric{Metric: "steps", Value: 100}, testutil.TemplateOpts{IsCore: true})
	bonus := testutil.SeedTemplate(t, db, "bonus", requirement.Boolean{Metric: "stretch", Value: true}, testutil.TemplateOpts{})

	testutil.SeedQuestLog(t, db, u.ID, core.ID, day, model.QuestStatusCompleted, 100, 100)
	b := testutil.SeedQuestLog(t, db, u.ID, bonus.ID, day, model.QuestStatusActive, 0, 1)
	require.NoError(t, AddCoreTotal(db, u.ID, day, 1))
	require.NoError(t, RecordCompletion(db, u.ID, day, true, 50))

	perfect, err := RecomputePerfect(db, u.ID, day)
	require.NoError(t, err)
	assert.False(t, perfect, "unfinished bonus quest blocks a perfect day")

	require.NoError(t, db.Model(b).Update("status", model.QuestStatusCompleted).Error)
	perfect, err = RecomputePerfect(db, u.ID, day)
	require.NoError(t, err)
	assert.True(t, perfect)

	dl, _ := Ensure(db, u.ID, day)
	assert.True(t, dl.IsPerfectDay)
	assert.LessOrEqual(t, dl.CoreQuestsCompleted, dl.CoreQuestsTotal)
}

func TestRecomputePerfect_NoCoreQuests(t *testing.T) {
	db := testutil.SetupTestDB(t)
	perfect, err := RecomputePerfect(db, 1, day)
	require.NoError(t, err)
	assert.False(t, perfect)
}
