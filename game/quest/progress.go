package quest

import (
	"context"
	"math"

	"github.com/fitquest/server/apperr"
	"github.com/fitquest/server/audit"
	"github.com/fitquest/server/game/bonus"
	"github.com/fitquest/server/game/daylog"
	"github.com/fitquest/server/game/player"
	"github.com/fitquest/server/game/requirement"
	"github.com/fitquest/server/game/xp"
	"github.com/fitquest/server/hook"
	"github.com/fitquest/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Completion is the outcome of finishing a quest.
type Completion struct {
	Quest     *model.QuestView `json:"quest"`
	Completed bool             `json:"completed"`
	Partial   bool             `json:"partial"`
	XPAwarded int              `json:"xp_awarded"`
	Bonus     bonus.Bonus      `json:"streak_bonus"`
	TotalXP   int64            `json:"total_xp"`
	Level     int              `json:"level"`
	LeveledUp bool             `json:"leveled_up"`
}

// Percent is min(100, 100*value/target); a non-positive target counts as done
// once any progress exists.
func Percent(value, targetValue float64) float64 {
	if targetValue <= 0 {
		if value > 0 {
			return 100
		}
		return 0
	}
	return math.Min(100, 100*value/targetValue)
}

// PercentFor is Percent with the requirement's comparator applied: a met
// requirement is 100, and overshooting an upper bound scales as target/value.
func PercentFor(r requirement.Requirement, value, targetValue float64) float64 {
	if requirement.Met(r, value, targetValue) {
		return 100
	}
	if cmp := requirement.ComparatorOf(r); cmp != requirement.AtLeast && value > targetValue && value > 0 {
		return 100 * math.Max(targetValue, 0) / value
	}
	return Percent(value, targetValue)
}

// UpdateProgress records the absolute value reached on an active quest and
// completes it once the requirement is met.
func (m *Manager) UpdateProgress(ctx context.Context, userID, logID int64, value float64) (*Completion, error) {
	if m.db == nil {
		return nil, apperr.ErrStoreUnavailable
	}
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, apperr.Validation("progress value must be a non-negative number")
	}
	ql, tpl, err := m.loadLog(m.db.WithContext(ctx), userID, logID)
	if err != nil {
		return nil, err
	}
	if ql.Status != model.QuestStatusActive {
		return nil, apperr.Conflict("quest is %s, not ACTIVE", ql.Status)
	}
	if requirement.Met(tpl.Req(), value, ql.TargetValue) {
		ql.CurrentValue = value
		return m.complete(ctx, ql, tpl, false)
	}
	pct := PercentFor(tpl.Req(), value, ql.TargetValue)
	res := m.db.WithContext(ctx).Model(&model.QuestLog{}).
		Where("id = ? AND status = ?", ql.ID, model.QuestStatusActive).
		Updates(map[string]any{"current_value": value, "completion_percent": pct})
	if res.Error != nil {
		return nil, apperr.Internal("update progress", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Conflict("quest is no longer ACTIVE")
	}
	ql.CurrentValue = value
	ql.CompletionPercent = pct
	return &Completion{Quest: view(ql, tpl)}, nil
}

// CompleteQuest finishes an active quest. Below target it needs a template
// that allows partial completion and enough progress, and pays partial XP.
func (m *Manager) CompleteQuest(ctx context.Context, userID, logID int64) (*Completion, error) {
	if m.db == nil {
		return nil, apperr.ErrStoreUnavailable
	}
	ql, tpl, err := m.loadLog(m.db.WithContext(ctx), userID, logID)
	if err != nil {
		return nil, err
	}
	if ql.Status != model.QuestStatusActive {
		return nil, apperr.Conflict("quest is %s, not ACTIVE", ql.Status)
	}
	if requirement.Met(tpl.Req(), ql.CurrentValue, ql.TargetValue) {
		return m.complete(ctx, ql, tpl, false)
	}
	pct := PercentFor(tpl.Req(), ql.CurrentValue, ql.TargetValue)
	if !tpl.AllowPartial {
		return nil, apperr.Conflict("quest target not reached")
	}
	if pct < float64(tpl.MinPartialPercent) {
		return nil, apperr.Conflict("partial completion needs %d%%, reached %.0f%%", tpl.MinPartialPercent, pct)
	}
	return m.complete(ctx, ql, tpl, true)
}

func (m *Manager) complete(ctx context.Context, ql *model.QuestLog, tpl *model.QuestTemplate, partial bool) (*Completion, error) {
	userID := ql.UserID
	pct := 100.0
	base := tpl.BaseXP
	if partial {
		pct = PercentFor(tpl.Req(), ql.CurrentValue, ql.TargetValue)
		base = int(math.Floor(float64(tpl.BaseXP) * pct / 100))
	}
	now := m.resolver.Now()
	out := &Completion{Completed: true, Partial: partial}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := player.LoadUser(tx, userID)
		if err != nil {
			return err
		}
		out.Bonus = bonus.ForStreak(u.CurrentStreak)
		award := bonus.Apply(base, u.CurrentStreak)

		res := tx.Model(&model.QuestLog{}).
			Where("id = ? AND status = ?", ql.ID, model.QuestStatusActive).
			Updates(map[string]any{
				"status":             model.QuestStatusCompleted,
				"current_value":      ql.CurrentValue,
				"completion_percent": pct,
				"completed_at":       &now,
				"xp_awarded":         award,
			})
		if res.Error != nil {
			return apperr.Internal("complete quest log", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("quest is no longer ACTIVE")
		}
		if award > 0 {
			booked, err := xp.Award(tx, xp.Entry{
				UserID:      userID,
				Source:      xp.SourceQuestComplete,
				SourceID:    ql.ID,
				Amount:      award,
				Description: "Completed quest: " + tpl.Name,
				Metadata: map[string]any{
					"base_xp":      base,
					"streak_bonus": out.Bonus.Percent,
					"partial":      partial,
					"template_key": tpl.Key,
				},
			})
			if err != nil {
				return err
			}
			out.TotalXP, out.Level, out.LeveledUp = booked.TotalXP, booked.NewLevel, booked.LeveledUp()
		} else {
			out.TotalXP, out.Level = u.TotalXP, u.Level
		}
		if err := player.AddStat(tx, userID, tpl.Stat, tpl.StatBonus); err != nil {
			return err
		}
		if err := daylog.RecordCompletion(tx, userID, ql.Date, tpl.IsCore, award); err != nil {
			return err
		}
		_, err = daylog.RecomputePerfect(tx, userID, ql.Date)
		ql.Status = model.QuestStatusCompleted
		ql.CompletionPercent = pct
		ql.CompletedAt = &now
		ql.XPAwarded = award
		out.XPAwarded = award
		return err
	})
	m.audit.Record(ctx, userID, audit.ActionQuestComplete, map[string]any{
		"log_id": ql.ID, "xp": out.XPAwarded, "partial": partial,
	}, err)
	if err != nil {
		return nil, err
	}
	out.Quest = view(ql, tpl)
	m.logger.Info("quest completed",
		zap.Int64("user_id", userID),
		zap.String("template", tpl.Key),
		zap.Int("xp", out.XPAwarded),
		zap.Bool("partial", partial))
	m.emit(ctx, hook.QuestCompleted, userID, map[string]any{"log_id": ql.ID, "xp": out.XPAwarded})
	if out.LeveledUp {
		m.emit(ctx, hook.PlayerLevelUp, userID, map[string]any{"level": out.Level})
	}
	return out, nil
}
