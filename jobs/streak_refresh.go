package jobs

import (
	"context"
	"time"

	"github.com/fitquest/server/audit"
	"github.com/fitquest/server/game/clock"
	"github.com/fitquest/server/game/streak"
	"github.com/fitquest/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const StreakRefreshTaskName = "streak_refresh"

// StreakRefreshJob recomputes the streak of users active in the last two days
// and of users still holding a streak, so that streaks broken by inactivity
// drop to zero without waiting for the user's next action.
type StreakRefreshJob struct {
	db       *gorm.DB
	streaks  *streak.Service
	resolver *clock.Resolver
	audit    *audit.Service
	logger   *zap.Logger
	pageSize int
}

func NewStreakRefreshJob(db *gorm.DB, streaks *streak.Service, resolver *clock.Resolver,
	auditSvc *audit.Service, logger *zap.Logger) *StreakRefreshJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = clock.NewResolver(nil, "UTC")
	}
	return &StreakRefreshJob{db: db, streaks: streaks, resolver: resolver, audit: auditSvc, logger: logger, pageSize: defaultPageSize}
}

// candidates pages user ids due for a refresh. The two-day window is taken
// in the fallback zone, wide enough to cover every user's local "yesterday".
func (j *StreakRefreshJob) candidates(ctx context.Context, after int64) ([]int64, error) {
	since := clock.AddDays(j.resolver.Today(""), -2)
	recent := j.db.Model(&model.DailyLog{}).Select("user_id").Where("date >= ?", since)
	var ids []int64
	err := j.db.WithContext(ctx).Model(&model.User{}).
		Where("id > ?", after).
		Where("current_streak > 0 OR perfect_streak > 0 OR id IN (?)", recent).
		Order("id").
		Limit(j.pageSize).
		Pluck("id", &ids).Error
	return ids, err
}

func (j *StreakRefreshJob) Task() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := j.Run(ctx)
		return err
	}
}

// Run returns the number of users refreshed.
func (j *StreakRefreshJob) Run(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "jobs.streak_refresh")
	defer span.End()

	start := time.Now()
	var after int64
	refreshed, failed := 0, 0
	var runErr error
	for {
		ids, err := j.candidates(ctx, after)
		if err != nil {
			runErr = err
			break
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				runErr = err
				break
			}
			if _, err := j.streaks.UpdateUserStreak(ctx, id); err != nil {
				failed++
				j.logger.Warn("streak refresh failed", zap.Int64("user_id", id), zap.Error(err))
				continue
			}
			refreshed++
		}
		if runErr != nil || len(ids) < j.pageSize {
			break
		}
		after = ids[len(ids)-1]
	}

	j.audit.Record(ctx, 0, audit.ActionStreakRefresh,
		map[string]int{"refreshed": refreshed, "failed": failed}, runErr)
	j.logger.Info("streak refresh finished",
		zap.Int("refreshed", refreshed),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(runErr))
	return refreshed, runErr
}
