package target

import (
	"context"
	"testing"
	"time"

	"github.com/fitquest/server/apperr"
	"github.com/fitquest/server/game/clock"
	"github.com/fitquest/server/game/requirement"
	"github.com/fitquest/server/hook"
	"github.com/fitquest/server/model"
	"github.com/fitquest/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const today = "2026-06-10"

type fixture struct {
	db    *gorm.DB
	cal   *Calibrator
	user  *model.User
	steps *model.QuestTemplate
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	fake := clock.NewFake(time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC))
	cal := NewCalibrator(db, clock.NewResolver(fake, "UTC"), zap.NewNop(), opts...)
	u := testutil.SeedUser(t, db, fake.Now().AddDate(0, -1, 0))
	steps := testutil.SeedTemplate(t, db, "core_steps",
		requirement.Numeric{Metric: MetricSteps, Value: 10000, Comparator: requirement.AtLeast},
		testutil.TemplateOpts{IsCore: true})
	return &fixture{db: db, cal: cal, user: u, steps: steps}
}

// seedWindow writes n logs in the calibration window, completed of them
// COMPLETED, each reaching ratio of a 10000 target.
func (f *fixture) seedWindow(t *testing.T, n, completed int, ratio float64) {
	t.Helper()
	for i := 0; i < n; i++ {
		status := model.QuestStatusActive
		if i < completed {
			status = model.QuestStatusCompleted
		}
		testutil.SeedQuestLog(t, f.db, f.user.ID, f.steps.ID, clock.AddDays(today, -(i+1)), status, 10000*ratio, 10000)
	}
}

func TestGetAdaptedTarget_LazyFromBaseline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.Create(&model.BaselineAssessment{UserID: f.user.ID, DailyStepsBaseline: 7000}).Error)

	at, err := f.cal.GetAdaptedTarget(ctx, f.user.ID, f.steps.ID)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, at.BaseTarget)
	assert.Equal(t, 8400.0, at.Target)
	assert.Equal(t, MetricSteps, at.Metric)

	again, err := f.cal.GetAdaptedTarget(ctx, f.user.ID, f.steps.ID)
	require.NoError(t, err)
	assert.Equal(t, at.ID, again.ID)

	var n int64
	f.db.Model(&model.AdaptedTarget{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestGetAdaptedTarget_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.cal.GetAdaptedTarget(context.Background(), f.user.ID, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.cal.GetAdaptedTarget(context.Background(), 999, f.steps.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAdaptTarget_Raise(t *testing.T) {
	hc := hook.NewCenter(zap.NewNop())
	var emitted []hook.Event
	hc.Register(hook.TargetAdapted, 0, "test", func(_ context.Context, ev hook.Event) error {
		emitted = append(emitted, ev)
		return nil
	})
	f := newFixture(t, WithHooks(hc))
	ctx := context.Background()
	f.seedWindow(t, 14, 12, 1.4)

	res, err := f.cal.AdaptTarget(ctx, f.user.ID, f.steps.ID)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, res.OldTarget)
	assert.Equal(t, 11000.0, res.NewTarget)
	assert.Contains(t, res.Reason, ReasonRaised)

	at, err := f.cal.GetAdaptedTarget(ctx, f.user.ID, f.steps.ID)
	require.NoError(t, err)
	assert.Equal(t, 11000.0, at.Target)
	assert.InDelta(t, 12.0/14.0, at.CompletionRate, 1e-9)
	assert.InDelta(t, 1.4, at.AverageAchievement, 1e-9)
	assert.NotNil(t, at.LastAdaptedAt)
	assert.Equal(t, int64(1), at.Version)
	require.Len(t, emitted, 1)
	assert.Equal(t, f.user.ID, emitted[0].UserID)
}

func TestAdaptTarget_Lower(t *testing.T) {
	f := newFixture(t)
	// 4 of 14 completed (29%), achievement 0.6.
	f.seedWindow(t, 14, 4, 0.6)

	res, err := f.cal.AdaptTarget(context.Background(), f.user.ID, f.steps.ID)
	require.NoError(t, err)
	assert.Equal(t, 9000.0, res.NewTarget)
	assert.Contains(t, res.Reason, ReasonLowered)
}

func TestAdaptTarget_IgnoresTodayAndOlderThanWindow(t *testing.T) {
	f := newFixture(t)
	testutil.SeedQuestLog(t, f.db, f.user.ID, f.steps.ID, today, model.QuestStatusCompleted, 20000, 10000)
	for i := 15; i < 25; i++ {
		testutil.SeedQuestLog(t, f.db, f.user.ID, f.steps.ID, clock.AddDays(today, -i), model.QuestStatusCompleted, 20000, 10000)
	}
	res, err := f.cal.AdaptTarget(context.Background(), f.user.ID, f.steps.ID)
	require.NoError(t, err)
	assert.Equal(t, ReasonInsufficientData, res.Reason)
}

func TestAdaptTarget_InsufficientData(t *testing.T) {
	f := newFixture(t)
	f.seedWindow(t, 6, 6, 2)

	res, err := f.cal.AdaptTarget(context.Background(), f.user.ID, f.steps.ID)
	require.NoError(t, err)
	assert.Equal(t, ReasonInsufficientData, res.Reason)
	assert.Equal(t, res.OldTarget, res.NewTarget)
}

func TestAdaptTarget_ManualOverrideIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedWindow(t, 14, 14, 2)

	_, err := f.cal.SetManualTarget(ctx, f.user.ID, f.steps.ID, 12345)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		res, err := f.cal.AdaptTarget(ctx, f.user.ID, f.steps.ID)
		require.NoError(t, err)
		assert.Equal(t, ReasonManualOverride, res.Reason)
		assert.Equal(t, 12345.0, res.OldTarget)
		assert.Equal(t, 12345.0, res.NewTarget)
	}

	at, err := f.cal.ClearManualOverride(ctx, f.user.ID, f.steps.ID)
	require.NoError(t, err)
	assert.False(t, at.ManualOverride)
	res, err := f.cal.AdaptTarget(ctx, f.user.ID, f.steps.ID)
	require.NoError(t, err)
	assert.Equal(t, 13580.0, res.NewTarget)
}

func TestSetManualTarget_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cal.SetManualTarget(ctx, f.user.ID, f.steps.ID, 20000)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.cal.SetManualTarget(ctx, f.user.ID, f.steps.ID, 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	var n int64
	f.db.Model(&model.AdaptedTarget{}).Count(&n)
	assert.Equal(t, int64(0), n, "validation runs before any write")
}

func TestClearManualOverride_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.cal.ClearManualOverride(context.Background(), f.user.ID, f.steps.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSave_StaleVersionConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at, err := f.cal.GetAdaptedTarget(ctx, f.user.ID, f.steps.ID)
	require.NoError(t, err)

	require.NoError(t, f.cal.save(ctx, at, map[string]any{"adapted_target": 9000.0}))
	err = f.cal.save(ctx, at, map[string]any{"adapted_target": 8000.0})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestRunAdaptationCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sleep := testutil.SeedTemplate(t, f.db, "core_sleep",
		requirement.Numeric{Metric: MetricSleepHours, Value: 8}, testutil.TemplateOpts{IsCore: true})
	f.seedWindow(t, 14, 12, 1.4)
	_, err := f.cal.GetAdaptedTarget(ctx, f.user.ID, sleep.ID)
	require.NoError(t, err)

	out, err := f.cal.RunAdaptationCycle(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Unchanged)
	assert.Equal(t, 0, out.Adapted, "steps target does not exist yet")

	_, err = f.cal.GetAdaptedTarget(ctx, f.user.ID, f.steps.ID)
	require.NoError(t, err)
	out, err = f.cal.RunAdaptationCycle(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Adapted)
	assert.Equal(t, 1, out.Unchanged)
	require.Len(t, out.Results, 2)
	assert.Equal(t, f.steps.ID, out.Results[0].TemplateID)
}

func TestCalibrator_NilDB(t *testing.T) {
	cal := NewCalibrator(nil, nil, nil)
	_, err := cal.GetAdaptedTarget(context.Background(), 1, 1)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	_, err = cal.RunAdaptationCycle(context.Background(), 1)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}
