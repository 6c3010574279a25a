// Package jobs holds the periodic progression tasks run by the scheduler.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fitquest/server/audit"
	"github.com/fitquest/server/cache"
	"github.com/fitquest/server/config"
	"github.com/fitquest/server/game/target"
	"github.com/fitquest/server/model"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	AdaptationTaskName = "adaptation"
	defaultPageSize    = 200
)

var tracer = otel.Tracer("github.com/fitquest/server/jobs")

// Summary totals one run over all users.
type Summary struct {
	Users     int `json:"users"`
	Skipped   int `json:"skipped"`
	Adapted   int `json:"adapted"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

func (s *Summary) add(r *target.CycleResult) {
	s.Users++
	s.Adapted += r.Adapted
	s.Unchanged += r.Unchanged
	s.Failed += r.Failed
}

// AdaptationJob runs the calibration cycle for every user holding adapted
// targets. Each user is guarded by a cache lock so concurrent instances never
// adapt the same user twice.
type AdaptationJob struct {
	db          *gorm.DB
	calibrator  *target.Calibrator
	locks       cache.Cache
	audit       *audit.Service
	logger      *zap.Logger
	concurrency int
	lockTTL     time.Duration
	pageSize    int
}

// NewAdaptationJob creates the job. locks and auditSvc may be nil.
func NewAdaptationJob(db *gorm.DB, cal *target.Calibrator, locks cache.Cache, auditSvc *audit.Service,
	cfg config.SchedulerConfig, logger *zap.Logger) *AdaptationJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &AdaptationJob{
		db:          db,
		calibrator:  cal,
		locks:       locks,
		audit:       auditSvc,
		logger:      logger,
		concurrency: cfg.AdaptationConcurrency,
		lockTTL:     cfg.AdaptationLockTTL,
		pageSize:    defaultPageSize,
	}
	if j.concurrency <= 0 {
		j.concurrency = 1
	}
	if j.lockTTL <= 0 {
		j.lockTTL = 10 * time.Minute
	}
	return j
}

func lockKey(userID int64) string { return fmt.Sprintf("lock:adapt:%d", userID) }

// Task adapts the job to the scheduler.
func (j *AdaptationJob) Task() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := j.Run(ctx)
		return err
	}
}

// Run walks users in id order, page by page.
func (j *AdaptationJob) Run(ctx context.Context) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "jobs.adaptation")
	defer span.End()

	start := time.Now()
	sum := &Summary{}
	var mu sync.Mutex
	var after int64
	var runErr error
	for {
		ids, err := targetUsers(ctx, j.db, after, j.pageSize)
		if err != nil {
			runErr = err
			break
		}
		if len(ids) == 0 {
			break
		}
		after = ids[len(ids)-1]

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(j.concurrency)
		for _, id := range ids {
			g.Go(func() error {
				res, skipped, err := j.runUser(gctx, id)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil:
					sum.Failed++
				case skipped:
					sum.Skipped++
				default:
					sum.add(res)
				}
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if len(ids) < j.pageSize {
			break
		}
	}

	span.SetAttributes(
		attribute.Int("users", sum.Users),
		attribute.Int("adapted", sum.Adapted),
		attribute.Int("failed", sum.Failed),
	)
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
	}
	j.audit.Record(ctx, 0, audit.ActionAdaptationRun, sum, runErr)
	j.logger.Info("adaptation job finished",
		zap.Int("users", sum.Users),
		zap.Int("skipped", sum.Skipped),
		zap.Int("adapted", sum.Adapted),
		zap.Int("unchanged", sum.Unchanged),
		zap.Int("failed", sum.Failed),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(runErr))
	return sum, runErr
}

// runUser reports skipped=true when another worker holds the user's lock.
func (j *AdaptationJob) runUser(ctx context.Context, userID int64) (*target.CycleResult, bool, error) {
	ctx, span := tracer.Start(ctx, "jobs.adaptation.user",
		trace.WithAttributes(attribute.Int64("user_id", userID)))
	defer span.End()

	if j.locks != nil {
		token := uuid.NewString()
		ok, err := j.locks.SetNX(ctx, lockKey(userID), token, j.lockTTL)
		if err != nil {
			j.logger.Warn("adaptation lock failed", zap.Int64("user_id", userID), zap.Error(err))
			return nil, false, err
		}
		if !ok {
			span.SetAttributes(attribute.Bool("skipped", true))
			return nil, true, nil
		}
		defer func() {
			if _, err := j.locks.DelIfEquals(context.WithoutCancel(ctx), lockKey(userID), token); err != nil {
				j.logger.Warn("adaptation unlock failed", zap.Int64("user_id", userID), zap.Error(err))
			}
		}()
	}

	res, err := j.calibrator.RunAdaptationCycle(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		j.logger.Warn("adaptation cycle failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, false, err
	}
	return res, false, nil
}

// targetUsers returns up to limit distinct ids above after of users holding
// adapted targets.
func targetUsers(ctx context.Context, db *gorm.DB, after int64, limit int) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Model(&model.AdaptedTarget{}).
		Distinct("user_id").
		Where("user_id > ?", after).
		Order("user_id").
		Limit(limit).
		Pluck("user_id", &ids).Error
	return ids, err
}
