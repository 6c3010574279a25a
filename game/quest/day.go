package quest

import (
	"context"
	"sort"

	"github.com/fitquest/server/apperr"
	"github.com/fitquest/server/game/daylog"
	"github.com/fitquest/server/game/requirement"
	"github.com/fitquest/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StartDay creates today's quest logs: every active core template with the
// user's adapted target, every bonus template the user opted into, and the
// rotating slot. Calling it again the same day only fills what is missing.
func (m *Manager) StartDay(ctx context.Context, userID int64) ([]*model.QuestView, error) {
	u, err := m.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	date := m.today(u)
	db := m.db.WithContext(ctx)

	var core []*model.QuestTemplate
	if err := db.Where("is_core = ? AND is_active = ? AND type = ?", true, true, model.QuestTypeDaily).
		Order("id").Find(&core).Error; err != nil {
		return nil, apperr.Internal("list core templates", err)
	}
	var bonus []*model.QuestTemplate
	if err := db.Joins("JOIN user_quest_toggles ON user_quest_toggles.template_id = quest_templates.id").
		Where("user_quest_toggles.user_id = ? AND user_quest_toggles.enabled = ?", userID, true).
		Where("quest_templates.is_core = ? AND quest_templates.is_rotating = ? AND quest_templates.is_active = ? AND quest_templates.type = ?",
			false, false, true, model.QuestTypeDaily).
		Order("quest_templates.id").Find(&bonus).Error; err != nil {
		return nil, apperr.Internal("list toggled templates", err)
	}

	// Targets come from the calibrator before the transaction opens.
	logs := make([]*model.QuestLog, 0, len(core)+len(bonus))
	isCore := make(map[int64]bool, len(core))
	for _, tpl := range core {
		tv := requirement.TargetOf(tpl.Req())
		if m.calibrator != nil {
			at, err := m.calibrator.GetAdaptedTarget(ctx, userID, tpl.ID)
			if err != nil {
				return nil, err
			}
			tv = at.Target
		}
		isCore[tpl.ID] = true
		logs = append(logs, newLog(userID, tpl.ID, date, tv))
	}
	for _, tpl := range bonus {
		logs = append(logs, newLog(userID, tpl.ID, date, requirement.TargetOf(tpl.Req())))
	}

	created := 0
	err = db.Transaction(func(tx *gorm.DB) error {
		if _, err := daylog.Ensure(tx, userID, date); err != nil {
			return err
		}
		newCore := 0
		for _, ql := range logs {
			ok, err := daylog.InsertQuestLog(tx, ql)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			created++
			if isCore[ql.TemplateID] {
				newCore++
			}
		}
		if err := daylog.AddCoreTotal(tx, userID, date, newCore); err != nil {
			return err
		}
		_, err := daylog.RecomputePerfect(tx, userID, date)
		return err
	})
	if err != nil {
		return nil, err
	}
	if m.selector != nil {
		if _, err := m.selector.GetTodayRotatingQuest(ctx, userID); err != nil {
			return nil, err
		}
	}
	if created > 0 {
		m.logger.Info("day started",
			zap.Int64("user_id", userID),
			zap.String("date", date),
			zap.Int("created", created))
	}
	return m.Today(ctx, userID)
}

func newLog(userID, templateID int64, date string, targetValue float64) *model.QuestLog {
	return &model.QuestLog{
		UserID:      userID,
		TemplateID:  templateID,
		Date:        date,
		Status:      model.QuestStatusActive,
		TargetValue: targetValue,
	}
}

// Today lists the user's quest logs for today: core quests first, then by id.
func (m *Manager) Today(ctx context.Context, userID int64) ([]*model.QuestView, error) {
	u, err := m.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	db := m.db.WithContext(ctx)
	var logs []*model.QuestLog
	if err := db.Where("user_id = ? AND date = ?", userID, m.today(u)).Order("id").Find(&logs).Error; err != nil {
		return nil, apperr.Internal("list quest logs", err)
	}
	if len(logs) == 0 {
		return []*model.QuestView{}, nil
	}
	ids := make([]int64, len(logs))
	for i, ql := range logs {
		ids[i] = ql.TemplateID
	}
	var tpls []*model.QuestTemplate
	if err := db.Where("id IN ?", ids).Find(&tpls).Error; err != nil {
		return nil, apperr.Internal("load templates", err)
	}
	byID := make(map[int64]*model.QuestTemplate, len(tpls))
	for _, t := range tpls {
		byID[t.ID] = t
	}
	out := make([]*model.QuestView, 0, len(logs))
	for _, ql := range logs {
		if tpl, ok := byID[ql.TemplateID]; ok {
			out = append(out, view(ql, tpl))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Template.IsCore && !out[j].Template.IsCore
	})
	return out, nil
}

// DailySummary returns the aggregate row for the user's today.
func (m *Manager) DailySummary(ctx context.Context, userID int64) (*model.DailyLog, error) {
	u, err := m.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return daylog.Ensure(m.db.WithContext(ctx), userID, m.today(u))
}
