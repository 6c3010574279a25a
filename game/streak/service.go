package streak

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fitquest/server/apperr"
	"github.com/fitquest/server/cache"
	"github.com/fitquest/server/game/bonus"
	"github.com/fitquest/server/game/clock"
	"github.com/fitquest/server/game/player"
	"github.com/fitquest/server/hook"
	"github.com/fitquest/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const infoTTL = 10 * time.Minute

// Info is the read model returned to clients.
type Info struct {
	CurrentStreak     int         `json:"current_streak"`
	LongestStreak     int         `json:"longest_streak"`
	PerfectStreak     int         `json:"perfect_streak"`
	StreakStart       *string     `json:"streak_start_date"`
	Bonus             bonus.Bonus `json:"bonus"`
	DaysUntilNextTier *int        `json:"days_until_next_tier"`
}

// Service recomputes and caches streak state.
type Service struct {
	db       *gorm.DB
	cache    cache.Cache
	hooks    *hook.Center
	resolver *clock.Resolver
	lookback int
	logger   *zap.Logger
}

// NewService creates a streak Service. cache and hooks may be nil.
func NewService(db *gorm.DB, c cache.Cache, hooks *hook.Center, resolver *clock.Resolver, lookback int, logger *zap.Logger) *Service {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if resolver == nil {
		resolver = clock.NewResolver(nil, "UTC")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, cache: c, hooks: hooks, resolver: resolver, lookback: lookback, logger: logger}
}

// RegisterHooks keeps streak state current: completions and resets
// recompute it, other quest changes only drop the cached info.
func (svc *Service) RegisterHooks(hc *hook.Center) {
	invalidate := func(ctx context.Context, ev hook.Event) error {
		return svc.Invalidate(ctx, ev.UserID)
	}
	recompute := func(ctx context.Context, ev hook.Event) error {
		_, err := svc.UpdateUserStreak(ctx, ev.UserID)
		return err
	}
	for _, ev := range []string{hook.QuestActivated, hook.QuestRemoved} {
		hc.Register(ev, 0, "streak.cache", invalidate)
	}
	for _, ev := range []string{hook.QuestCompleted, hook.QuestReset} {
		hc.Register(ev, 0, "streak.recompute", recompute)
	}
}

func infoKey(userID int64) string { return fmt.Sprintf("streak:info:%d", userID) }

// CalculateStreak derives the user's streak from stored daily logs.
func (svc *Service) CalculateStreak(ctx context.Context, userID int64) (Result, error) {
	if svc.db == nil {
		return Result{}, apperr.ErrStoreUnavailable
	}
	u, err := player.LoadUser(svc.db.WithContext(ctx), userID)
	if err != nil {
		return Result{}, err
	}
	var logs []model.DailyLog
	if err := svc.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Limit(svc.lookback).
		Find(&logs).Error; err != nil {
		return Result{}, apperr.Internal("load daily logs", err)
	}
	return Calculate(logs, svc.resolver.Today(u.Timezone)), nil
}

// UpdateUserStreak recomputes and stores the streak. LongestStreak never
// decreases.
func (svc *Service) UpdateUserStreak(ctx context.Context, userID int64) (*Info, error) {
	res, err := svc.CalculateStreak(ctx, userID)
	if err != nil {
		return nil, err
	}
	var info *Info
	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := player.LoadUser(tx, userID)
		if err != nil {
			return err
		}
		longest := max(u.LongestStreak, res.CurrentStreak)
		if err := tx.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]any{
			"current_streak":    res.CurrentStreak,
			"perfect_streak":    res.PerfectStreak,
			"longest_streak":    longest,
			"streak_start_date": res.StreakStart,
		}).Error; err != nil {
			return apperr.Internal("update streak", err)
		}
		info = newInfo(res.CurrentStreak, longest, res.PerfectStreak, res.StreakStart)
		return nil
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("streak updated",
		zap.Int64("user_id", userID),
		zap.Int("current", info.CurrentStreak),
		zap.Int("longest", info.LongestStreak),
		zap.Int("perfect", info.PerfectStreak))
	svc.hooks.Emit(ctx, hook.Event{Name: hook.StreakUpdated, UserID: userID, Payload: map[string]any{
		"current_streak": info.CurrentStreak,
		"longest_streak": info.LongestStreak,
	}})
	_ = svc.Invalidate(ctx, userID)
	return info, nil
}

// GetStreakInfo returns the stored streak state with its bonus tier. Results
// are cached for ten minutes.
func (svc *Service) GetStreakInfo(ctx context.Context, userID int64) (*Info, error) {
	if svc.db == nil {
		return nil, apperr.ErrStoreUnavailable
	}
	if svc.cache != nil {
		if raw, err := svc.cache.Get(ctx, infoKey(userID)); err == nil {
			var info Info
			if json.Unmarshal([]byte(raw), &info) == nil {
				return &info, nil
			}
		}
	}
	u, err := player.LoadUser(svc.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	info := newInfo(u.CurrentStreak, u.LongestStreak, u.PerfectStreak, u.StreakStartDate)
	if svc.cache != nil {
		if raw, err := json.Marshal(info); err == nil {
			if err := svc.cache.Set(ctx, infoKey(userID), string(raw), infoTTL); err != nil {
				svc.logger.Debug("streak cache write failed", zap.Int64("user_id", userID), zap.Error(err))
			}
		}
	}
	return info, nil
}

// Invalidate drops the cached info for userID.
func (svc *Service) Invalidate(ctx context.Context, userID int64) error {
	if svc.cache == nil {
		return nil
	}
	return svc.cache.Del(ctx, infoKey(userID))
}

func newInfo(current, longest, perfect int, start *string) *Info {
	return &Info{
		CurrentStreak:     current,
		LongestStreak:     longest,
		PerfectStreak:     perfect,
		StreakStart:       start,
		Bonus:             bonus.ForStreak(current),
		DaysUntilNextTier: bonus.DaysUntilNextTier(current),
	}
}
