// Package daylog maintains the per-day aggregate row that the streak walk reads.
// Every helper takes the caller's transaction.
package daylog

import (
	"github.com/fitquest/server/apperr"
	"github.com/fitquest/server/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ensure returns the (user, date) aggregate, creating an empty one if needed.
func Ensure(tx *gorm.DB, userID int64, date string) (*model.DailyLog, error) {
	row := &model.DailyLog{UserID: userID, Date: date}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
		return nil, apperr.Internal("create daily log", err)
	}
	var dl model.DailyLog
	if err := tx.Where("user_id = ? AND date = ?", userID, date).First(&dl).Error; err != nil {
		return nil, apperr.Internal("load daily log", err)
	}
	return &dl, nil
}

// InsertQuestLog creates ql unless a log for the same (user, template, date)
// exists. It reports whether the row was inserted.
func InsertQuestLog(tx *gorm.DB, ql *model.QuestLog) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(ql)
	if res.Error != nil {
		return false, apperr.Internal("create quest log", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AddCoreTotal counts n more core quests on the user's day.
func AddCoreTotal(tx *gorm.DB, userID int64, date string, n int) error {
	if n == 0 {
		return nil
	}
	if _, err := Ensure(tx, userID, date); err != nil {
		return err
	}
	err := tx.Model(&model.DailyLog{}).
		Where("user_id = ? AND date = ?", userID, date).
		UpdateColumn("core_quests_total", gorm.Expr("core_quests_total + ?", n)).Error
	if err != nil {
		return apperr.Internal("update daily log", err)
	}
	return nil
}

// RecordCompletion books one completed quest and its XP on the user's day.
func RecordCompletion(tx *gorm.DB, userID int64, date string, core bool, xp int) error {
	dl, err := Ensure(tx, userID, date)
	if err != nil {
		return err
	}
	if core {
		dl.CoreQuestsCompleted++
		if dl.CoreQuestsCompleted > dl.CoreQuestsTotal {
			dl.CoreQuestsTotal = dl.CoreQuestsCompleted
		}
	} else {
		dl.BonusQuestsCompleted++
	}
	dl.XPEarned += xp
	return save(tx, dl)
}

// RevertCompletion undoes RecordCompletion. Counters never go below zero.
func RevertCompletion(tx *gorm.DB, userID int64, date string, core bool, xp int) error {
	dl, err := Ensure(tx, userID, date)
	if err != nil {
		return err
	}
	if core {
		dl.CoreQuestsCompleted = max(0, dl.CoreQuestsCompleted-1)
		dl.IsPerfectDay = false
	} else {
		dl.BonusQuestsCompleted = max(0, dl.BonusQuestsCompleted-1)
	}
	dl.XPEarned = max(0, dl.XPEarned-xp)
	return save(tx, dl)
}

// RecomputePerfect re-derives is_perfect_day: every core quest done and no
// quest log of the day left uncompleted.
func RecomputePerfect(tx *gorm.DB, userID int64, date string) (bool, error) {
	dl, err := Ensure(tx, userID, date)
	if err != nil {
		return false, err
	}
	var pending int64
	if err := tx.Model(&model.QuestLog{}).
		Where("user_id = ? AND date = ? AND status <> ?", userID, date, model.QuestStatusCompleted).
		Count(&pending).Error; err != nil {
		return false, apperr.Internal("count pending quests", err)
	}
	perfect := dl.CoreQuestsTotal > 0 &&
		dl.CoreQuestsCompleted >= dl.CoreQuestsTotal &&
		pending == 0
	if perfect == dl.IsPerfectDay {
		return perfect, nil
	}
	if err := tx.Model(&model.DailyLog{}).Where("id = ?", dl.ID).
		UpdateColumn("is_perfect_day", perfect).Error; err != nil {
		return false, apperr.Internal("update perfect day", err)
	}
	return perfect, nil
}

func save(tx *gorm.DB, dl *model.DailyLog) error {
	err := tx.Model(&model.DailyLog{}).Where("id = ?", dl.ID).Updates(map[string]any{
		"core_quests_completed":  dl.CoreQuestsCompleted,
		"core_quests_total":      dl.CoreQuestsTotal,
		"bonus_quests_completed": dl.BonusQuestsCompleted,
		"xp_earned":              dl.XPEarned,
		"is_perfect_day":         dl.IsPerfectDay,
	}).Error
	if err != nil {
		return apperr.Internal("update daily log", err)
	}
	return nil
}
