package rotation

import (
	"context"
	"errors"

	"github.com/fitquest/server/apperr"
	"github.com/fitquest/server/game/clock"
	"github.com/fitquest/server/game/daylog"
	"github.com/fitquest/server/game/player"
	"github.com/fitquest/server/game/requirement"
	"github.com/fitquest/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Selector fills the user's rotating slot once per day.
type Selector struct {
	db       *gorm.DB
	resolver *clock.Resolver
	tables   Tables
	rand     Rand
	logger   *zap.Logger
}

// NewSelector creates a Selector. A nil r uses DefaultRand.
func NewSelector(db *gorm.DB, resolver *clock.Resolver, tables Tables, r Rand, logger *zap.Logger) *Selector {
	if resolver == nil {
		resolver = clock.NewResolver(nil, "UTC")
	}
	if r == nil {
		r = DefaultRand
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{db: db, resolver: resolver, tables: tables, rand: r, logger: logger}
}

// Tables returns the active tuning.
func (s *Selector) Tables() Tables { return s.tables }

// existing returns today's rotating log, if one was already created.
func (s *Selector) existing(ctx context.Context, userID int64, date string) (*model.QuestView, error) {
	var ql model.QuestLog
	err := s.db.WithContext(ctx).
		Joins("JOIN quest_templates ON quest_templates.id = quest_logs.template_id").
		Where("quest_logs.user_id = ? AND quest_logs.date = ? AND quest_templates.is_rotating = ?", userID, date, true).
		Order("quest_logs.id").
		First(&ql).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("load rotating quest", err)
	}
	var tpl model.QuestTemplate
	if err := s.db.WithContext(ctx).First(&tpl, ql.TemplateID).Error; err != nil {
		return nil, apperr.Internal("load template", err)
	}
	return &model.QuestView{Log: &ql, Template: &tpl, IsRotating: true}, nil
}

// Candidates lists the active rotating DAILY templates in id order.
func (s *Selector) Candidates(ctx context.Context) ([]*model.QuestTemplate, error) {
	var out []*model.QuestTemplate
	if err := s.db.WithContext(ctx).
		Where("is_rotating = ? AND is_active = ? AND is_core = ? AND type = ?", true, true, false, model.QuestTypeDaily).
		Order("id").
		Find(&out).Error; err != nil {
		return nil, apperr.Internal("list rotating templates", err)
	}
	return out, nil
}

// recent returns the rotating templates the user had in the days before date.
func (s *Selector) recent(ctx context.Context, userID int64, date string) (map[int64]bool, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).Model(&model.QuestLog{}).
		Joins("JOIN quest_templates ON quest_templates.id = quest_logs.template_id").
		Where("quest_logs.user_id = ? AND quest_logs.date BETWEEN ? AND ? AND quest_templates.is_rotating = ?",
			userID, clock.AddDays(date, -s.tables.RecentDays), clock.AddDays(date, -1), true).
		Distinct().
		Pluck("quest_logs.template_id", &ids).Error; err != nil {
		return nil, apperr.Internal("load recent rotating quests", err)
	}
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// GetTodayRotatingQuest returns the user's rotating quest for today, choosing
// and creating it on the first call of the day. It returns nil when the user
// has not unlocked rotation or no rotating templates exist.
func (s *Selector) GetTodayRotatingQuest(ctx context.Context, userID int64) (*model.QuestView, error) {
	if s.db == nil {
		return nil, apperr.ErrStoreUnavailable
	}
	u, err := player.LoadUser(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	today := s.resolver.Today(u.Timezone)

	if view, err := s.existing(ctx, userID, today); err != nil || view != nil {
		return view, err
	}
	if !s.tables.IsUnlocked(u.CreatedAt, s.resolver.Now()) {
		return nil, nil
	}
	candidates, err := s.Candidates(ctx)
	if err != nil || len(candidates) == 0 {
		return nil, err
	}
	recent, err := s.recent(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	wc := Context{
		Recent:  recent,
		Weakest: WeakestStat(player.StatsOf(u)),
		Weekday: s.resolver.Weekday(u.Timezone),
	}
	weights := make([]float64, len(candidates))
	for i, tpl := range candidates {
		weights[i] = s.tables.Weight(tpl, wc)
	}
	chosen := Select(candidates, weights, s.rand)

	ql := &model.QuestLog{
		UserID:      userID,
		TemplateID:  chosen.ID,
		Date:        today,
		Status:      model.QuestStatusActive,
		TargetValue: requirement.TargetOf(chosen.Req()),
	}
	var inserted bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := daylog.Ensure(tx, userID, today); err != nil {
			return err
		}
		ok, err := daylog.InsertQuestLog(tx, ql)
		if err != nil {
			return err
		}
		inserted = ok
		if !ok {
			return nil
		}
		_, err = daylog.RecomputePerfect(tx, userID, today)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return s.existing(ctx, userID, today)
	}
	s.logger.Info("rotating quest selected",
		zap.Int64("user_id", userID),
		zap.String("template", chosen.Key),
		zap.String("weakest_stat", string(wc.Weakest)),
		zap.Int("candidates", len(candidates)))
	return &model.QuestView{Log: ql, Template: chosen, IsRotating: true}, nil
}
