package quest

import (
	"context"
	"errors"

	"github.com/fitquest/server/apperr"
	"github.com/fitquest/server/audit"
	"github.com/fitquest/server/game/daylog"
	"github.com/fitquest/server/game/player"
	"github.com/fitquest/server/game/requirement"
	"github.com/fitquest/server/game/xp"
	"github.com/fitquest/server/hook"
	"github.com/fitquest/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivateQuest starts a DAILY template for the user today and opts the user
// into it on future days.
func (m *Manager) ActivateQuest(ctx context.Context, userID, templateID int64) (*model.QuestView, error) {
	u, err := m.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	tpl, err := m.loadTemplate(m.db.WithContext(ctx), templateID)
	if err != nil {
		return nil, err
	}
	if tpl.Type != model.QuestTypeDaily {
		return nil, apperr.Conflict("quest type %s cannot be activated as a daily quest", tpl.Type)
	}
	if !tpl.IsActive {
		return nil, apperr.Conflict("quest template %s is not active", tpl.Key)
	}
	if tpl.IsRotating {
		return nil, apperr.Conflict("rotating quest %s is chosen by the daily rotation", tpl.Key)
	}
	date := m.today(u)
	ql := &model.QuestLog{
		UserID:      userID,
		TemplateID:  tpl.ID,
		Date:        date,
		Status:      model.QuestStatusActive,
		TargetValue: requirement.TargetOf(tpl.Req()),
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := daylog.Ensure(tx, userID, date); err != nil {
			return err
		}
		ok, err := daylog.InsertQuestLog(tx, ql)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("quest already active")
		}
		if tpl.IsCore {
			if err := daylog.AddCoreTotal(tx, userID, date, 1); err != nil {
				return err
			}
		} else if err := setToggle(tx, userID, tpl.ID, true); err != nil {
			return err
		}
		_, err = daylog.RecomputePerfect(tx, userID, date)
		return err
	})
	m.audit.Record(ctx, userID, audit.ActionQuestActivate, map[string]any{"template_id": templateID, "date": date}, err)
	if err != nil {
		return nil, err
	}
	m.logger.Info("quest activated",
		zap.Int64("user_id", userID),
		zap.String("template", tpl.Key),
		zap.String("date", date))
	m.emit(ctx, hook.QuestActivated, userID, map[string]any{"log_id": ql.ID, "template_id": tpl.ID})
	return view(ql, tpl), nil
}

// ResetQuest reverts a completed quest to ACTIVE. Awarded XP is taken back
// through a ledger removal event.
func (m *Manager) ResetQuest(ctx context.Context, userID, logID int64) (*model.QuestView, error) {
	if m.db == nil {
		return nil, apperr.ErrStoreUnavailable
	}
	ql, tpl, err := m.loadLog(m.db.WithContext(ctx), userID, logID)
	if err != nil {
		return nil, err
	}
	if ql.Status != model.QuestStatusCompleted {
		return nil, apperr.Conflict("only completed quests can be reset")
	}
	awarded := ql.XPAwarded
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.QuestLog{}).
			Where("id = ? AND status = ?", ql.ID, model.QuestStatusCompleted).
			Updates(map[string]any{
				"status":             model.QuestStatusActive,
				"current_value":      0,
				"completion_percent": 0,
				"completed_at":       nil,
				"xp_awarded":         0,
			})
		if res.Error != nil {
			return apperr.Internal("reset quest log", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("only completed quests can be reset")
		}
		if awarded > 0 {
			if _, err := xp.CreateRemovalEvent(tx, xp.Entry{
				UserID:      userID,
				Source:      xp.SourceQuestReset,
				SourceID:    ql.ID,
				Amount:      awarded,
				Description: "Reset quest: " + tpl.Name,
			}); err != nil {
				return err
			}
		}
		if err := player.AddStat(tx, userID, tpl.Stat, -tpl.StatBonus); err != nil {
			return err
		}
		if err := daylog.RevertCompletion(tx, userID, ql.Date, tpl.IsCore, awarded); err != nil {
			return err
		}
		_, err := daylog.RecomputePerfect(tx, userID, ql.Date)
		return err
	})
	m.audit.Record(ctx, userID, audit.ActionQuestReset, map[string]any{"log_id": logID, "xp_removed": awarded}, err)
	if err != nil {
		return nil, err
	}
	ql.Status = model.QuestStatusActive
	ql.CurrentValue = 0
	ql.CompletionPercent = 0
	ql.CompletedAt = nil
	ql.XPAwarded = 0
	m.logger.Info("quest reset",
		zap.Int64("user_id", userID),
		zap.Int64("log_id", logID),
		zap.Int("xp_removed", awarded))
	m.emit(ctx, hook.QuestReset, userID, map[string]any{"log_id": logID, "xp_removed": awarded})
	return view(ql, tpl), nil
}

func removable(ql *model.QuestLog, tpl *model.QuestTemplate) error {
	if tpl.IsCore {
		return apperr.Conflict("core quests cannot be removed")
	}
	if ql != nil && ql.Status == model.QuestStatusCompleted {
		return apperr.Conflict("completed quests must be reset before removal")
	}
	return nil
}

// RemoveQuest hard-deletes a non-core, non-completed quest log.
func (m *Manager) RemoveQuest(ctx context.Context, userID, logID int64) error {
	if m.db == nil {
		return apperr.ErrStoreUnavailable
	}
	ql, tpl, err := m.loadLog(m.db.WithContext(ctx), userID, logID)
	if err != nil {
		return err
	}
	if err := removable(ql, tpl); err != nil {
		return err
	}
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteLog(tx, ql)
	})
	m.audit.Record(ctx, userID, audit.ActionQuestRemove, map[string]any{"log_id": logID}, err)
	if err != nil {
		return err
	}
	m.logger.Info("quest removed", zap.Int64("user_id", userID), zap.Int64("log_id", logID))
	m.emit(ctx, hook.QuestRemoved, userID, map[string]any{"log_id": logID, "template_id": tpl.ID})
	return nil
}

// DeactivateQuestByTemplate opts the user out of a bonus template and drops
// today's log for it, if any.
func (m *Manager) DeactivateQuestByTemplate(ctx context.Context, userID, templateID int64) error {
	u, err := m.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	tpl, err := m.loadTemplate(m.db.WithContext(ctx), templateID)
	if err != nil {
		return err
	}
	date := m.today(u)
	var ql *model.QuestLog
	var row model.QuestLog
	err = m.db.WithContext(ctx).
		Where("user_id = ? AND template_id = ? AND date = ?", userID, templateID, date).
		First(&row).Error
	switch {
	case err == nil:
		ql = &row
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.Internal("load quest log", err)
	}
	if err := removable(ql, tpl); err != nil {
		return err
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := setToggle(tx, userID, templateID, false); err != nil {
			return err
		}
		if ql == nil {
			return nil
		}
		return deleteLog(tx, ql)
	})
	m.audit.Record(ctx, userID, audit.ActionQuestRemove, map[string]any{"template_id": templateID, "date": date}, err)
	if err != nil {
		return err
	}
	m.logger.Info("quest deactivated", zap.Int64("user_id", userID), zap.String("template", tpl.Key))
	if ql != nil {
		m.emit(ctx, hook.QuestRemoved, userID, map[string]any{"log_id": ql.ID, "template_id": templateID})
	}
	return nil
}

func deleteLog(tx *gorm.DB, ql *model.QuestLog) error {
	res := tx.Where("id = ? AND status <> ?", ql.ID, model.QuestStatusCompleted).Delete(&model.QuestLog{})
	if res.Error != nil {
		return apperr.Internal("delete quest log", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("completed quests must be reset before removal")
	}
	_, err := daylog.RecomputePerfect(tx, ql.UserID, ql.Date)
	return err
}

func setToggle(tx *gorm.DB, userID, templateID int64, enabled bool) error {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "template_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_at"}),
	}).Create(&model.UserQuestToggle{UserID: userID, TemplateID: templateID, Enabled: enabled}).Error
	if err != nil {
		return apperr.Internal("update quest toggle", err)
	}
	return nil
}
