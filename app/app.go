// Package app builds the progression engine's service graph from config. The
// HTTP server and the operator CLI share it.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/fitquest/server/audit"
	"github.com/fitquest/server/cache"
	"github.com/fitquest/server/catalog"
	"github.com/fitquest/server/config"
	dbadapter "github.com/fitquest/server/db"
	"github.com/fitquest/server/game/clock"
	"github.com/fitquest/server/game/quest"
	"github.com/fitquest/server/game/rotation"
	"github.com/fitquest/server/game/streak"
	"github.com/fitquest/server/game/target"
	"github.com/fitquest/server/hook"
	"github.com/fitquest/server/jobs"
	"github.com/fitquest/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds every long-lived service.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *gorm.DB
	Cache    cache.Cache
	Audit    *audit.Service
	Hooks    *hook.Center
	Resolver *clock.Resolver

	Calibrator *target.Calibrator
	Selector   *rotation.Selector
	Streaks    *streak.Service
	Quests     *quest.Manager

	Adaptation    *jobs.AdaptationJob
	StreakRefresh *jobs.StreakRefreshJob
}

// New opens the database, migrates it, syncs the catalog when configured and
// wires the engine services.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := dbadapter.Open(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	if cfg.Catalog.SyncOnStart {
		cat, err := catalog.LoadFile(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		if _, err := catalog.Sync(ctx, db, cat, logger); err != nil {
			return nil, err
		}
	}

	c, err := cache.NewCache(cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	a := &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Cache:    c,
		Audit:    audit.New(db, logger),
		Hooks:    hook.NewCenter(logger),
		Resolver: clock.NewResolver(clock.Real{}, cfg.Server.DefaultTimezone),
	}
	prog := cfg.Progression

	a.Calibrator = target.NewCalibrator(db, a.Resolver, logger,
		target.WithBounds(target.BoundsFromConfig(prog.MetricBounds)),
		target.WithThresholds(target.ThresholdsFromConfig(prog.Calibration)),
		target.WithHooks(a.Hooks),
		target.WithAudit(a.Audit),
	)
	a.Selector = rotation.NewSelector(db, a.Resolver, rotation.TablesFromConfig(prog.Rotation), rotation.DefaultRand, logger)
	a.Streaks = streak.NewService(db, c, a.Hooks, a.Resolver, prog.StreakLookback, logger)
	a.Streaks.RegisterHooks(a.Hooks)
	a.Quests = quest.NewManager(db, a.Resolver, a.Calibrator, a.Selector, a.Hooks, a.Audit, logger)

	a.Adaptation = jobs.NewAdaptationJob(db, a.Calibrator, c, a.Audit, cfg.Scheduler, logger)
	a.StreakRefresh = jobs.NewStreakRefreshJob(db, a.Streaks, a.Resolver, a.Audit, logger)
	return a, nil
}

// Close flushes the audit queue and releases the cache and DB.
func (a *App) Close(ctx context.Context) {
	a.Audit.Stop(ctx)
	if closer, ok := a.Cache.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.Logger.Warn("cache close", zap.Error(err))
		}
	} else if closer, ok := a.Cache.(interface{ Close() }); ok {
		closer.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
