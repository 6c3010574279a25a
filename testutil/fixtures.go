package testutil

import (
	"testing"
	"time"

	"github.com/fitquest/server/game/requirement"
	"github.com/fitquest/server/model"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SeedUser creates a user whose account was created createdAt.
func SeedUser(t *testing.T, db *gorm.DB, createdAt time.Time) *model.User {
	t.Helper()
	u := &model.User{Name: "tester", Timezone: "UTC", CreatedAt: createdAt}
	require.NoError(t, db.Create(u).Error, "seed user")
	return u
}

// TemplateOpts tweaks a seeded template.
type TemplateOpts struct {
	Type              string
	IsCore            bool
	IsRotating        bool
	Inactive          bool
	Stat              string
	BaseXP            int
	AllowPartial      bool
	MinPartialPercent int
}

// SeedTemplate creates a quest template with the given requirement.
func SeedTemplate(t *testing.T, db *gorm.DB, key string, req requirement.Requirement, opts TemplateOpts) *model.QuestTemplate {
	t.Helper()
	data, err := requirement.Encode(req)
	require.NoError(t, err, "encode requirement")
	typ := opts.Type
	if typ == "" {
		typ = model.QuestTypeDaily
	}
	xp := opts.BaseXP
	if xp == 0 {
		xp = 50
	}
	tpl := &model.QuestTemplate{
		Key:               key,
		Name:              key,
		Category:          "test",
		Type:              typ,
		Requirement:       datatypes.JSON(data),
		BaseXP:            xp,
		Stat:              opts.Stat,
		IsCore:            opts.IsCore,
		IsRotating:        opts.IsRotating,
		IsActive:          !opts.Inactive,
		AllowPartial:      opts.AllowPartial,
		MinPartialPercent: opts.MinPartialPercent,
	}
	require.NoError(t, db.Create(tpl).Error, "seed template")
	return tpl
}

// SeedQuestLog inserts a quest log row directly.
func SeedQuestLog(t *testing.T, db *gorm.DB, userID, templateID int64, date, status string, current, target float64) *model.QuestLog {
	t.Helper()
	ql := &model.QuestLog{
		UserID:       userID,
		TemplateID:   templateID,
		Date:         date,
		Status:       status,
		CurrentValue: current,
		TargetValue:  target,
	}
	require.NoError(t, db.Create(ql).Error, "seed quest log")
	return ql
}

// SeedDailyLog inserts a daily aggregate row directly.
func SeedDailyLog(t *testing.T, db *gorm.DB, userID int64, date string, coreDone, coreTotal int, perfect bool) *model.DailyLog {
	t.Helper()
	dl := &model.DailyLog{
		UserID:              userID,
		Date:                date,
		CoreQuestsCompleted: coreDone,
		CoreQuestsTotal:     coreTotal,
		IsPerfectDay:        perfect,
	}
	require.NoError(t, db.Create(dl).Error, "seed daily log")
	return dl
}
