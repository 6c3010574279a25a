package target

import (
	"context"
	"errors"

	"github.com/fitquest/server/apperr"
	"github.com/fitquest/server/audit"
	"github.com/fitquest/server/game/clock"
	"github.com/fitquest/server/game/player"
	"github.com/fitquest/server/game/requirement"
	"github.com/fitquest/server/hook"
	"github.com/fitquest/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Adaptation is the outcome of one recalibration.
type Adaptation struct {
	TemplateID int64   `json:"template_id"`
	Metric     string  `json:"metric"`
	OldTarget  float64 `json:"old_target"`
	NewTarget  float64 `json:"new_target"`
	Reason     string  `json:"reason"`
	Error      string  `json:"error,omitempty"`
}

// Changed reports whether the target moved.
func (a Adaptation) Changed() bool { return a.NewTarget != a.OldTarget }

// CycleResult summarizes RunAdaptationCycle for one user.
type CycleResult struct {
	UserID    int64        `json:"user_id"`
	Adapted   int          `json:"adapted"`
	Unchanged int          `json:"unchanged"`
	Failed    int          `json:"failed"`
	Results   []Adaptation `json:"results"`
}

// Calibrator owns AdaptedTarget rows.
type Calibrator struct {
	db         *gorm.DB
	players    *player.Store
	resolver   *clock.Resolver
	bounds     BoundsTable
	thresholds Thresholds
	hooks      *hook.Center
	audit      *audit.Service
	logger     *zap.Logger
}

// Option customizes a Calibrator.
type Option func(*Calibrator)

// WithBounds replaces the metric bounds table.
func WithBounds(b BoundsTable) Option { return func(c *Calibrator) { c.bounds = b } }

// WithThresholds replaces the recalibration rule set.
func WithThresholds(t Thresholds) Option { return func(c *Calibrator) { c.thresholds = t } }

// WithHooks emits target.adapted events to hc.
func WithHooks(hc *hook.Center) Option { return func(c *Calibrator) { c.hooks = hc } }

// WithAudit records manual target changes to svc.
func WithAudit(svc *audit.Service) Option { return func(c *Calibrator) { c.audit = svc } }

// NewCalibrator creates a Calibrator with the default tables.
func NewCalibrator(db *gorm.DB, resolver *clock.Resolver, logger *zap.Logger, opts ...Option) *Calibrator {
	if resolver == nil {
		resolver = clock.NewResolver(nil, "UTC")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Calibrator{
		db:         db,
		players:    player.NewStore(db),
		resolver:   resolver,
		bounds:     DefaultBounds(),
		thresholds: DefaultThresholds(),
		logger:     logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Bounds returns the active bounds table.
func (c *Calibrator) Bounds() BoundsTable { return c.bounds }

func (c *Calibrator) loadTemplate(ctx context.Context, templateID int64) (*model.QuestTemplate, error) {
	var tpl model.QuestTemplate
	if err := c.db.WithContext(ctx).First(&tpl, templateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("quest template %d not found", templateID)
		}
		return nil, apperr.Internal("load template", err)
	}
	return &tpl, nil
}

func (c *Calibrator) findTarget(ctx context.Context, userID, templateID int64) (*model.AdaptedTarget, error) {
	var at model.AdaptedTarget
	err := c.db.WithContext(ctx).
		Where("user_id = ? AND template_id = ?", userID, templateID).
		First(&at).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("load adapted target", err)
	}
	return &at, nil
}

// GetAdaptedTarget returns the user's target for a template, creating it from
// the baseline assessment on first use.
func (c *Calibrator) GetAdaptedTarget(ctx context.Context, userID, templateID int64) (*model.AdaptedTarget, error) {
	if c.db == nil {
		return nil, apperr.ErrStoreUnavailable
	}
	at, err := c.findTarget(ctx, userID, templateID)
	if err != nil || at != nil {
		return at, err
	}
	tpl, err := c.loadTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if _, err := c.players.User(ctx, userID); err != nil {
		return nil, err
	}
	baseline, err := c.players.Baseline(ctx, userID)
	if err != nil {
		return nil, err
	}
	req := tpl.Req()
	metric := requirement.MetricOf(req)
	def := requirement.TargetOf(req)
	row := &model.AdaptedTarget{
		UserID:     userID,
		TemplateID: templateID,
		Metric:     metric,
		BaseTarget: def,
		Target:     InitialTarget(metric, baseline, def, c.bounds),
	}
	if err := c.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
		return nil, apperr.Internal("create adapted target", err)
	}
	at, err = c.findTarget(ctx, userID, templateID)
	if err != nil {
		return nil, err
	}
	if at == nil {
		return nil, apperr.Internal("create adapted target", errors.New("row missing after insert"))
	}
	c.logger.Debug("adapted target initialized",
		zap.Int64("user_id", userID),
		zap.Int64("template_id", templateID),
		zap.String("metric", metric),
		zap.Float64("target", at.Target))
	return at, nil
}

// window returns the calibration window: the WindowDays days before today.
func (c *Calibrator) window(ctx context.Context, userID int64) (from, to string, err error) {
	tz, err := c.players.Timezone(ctx, userID)
	if err != nil {
		return "", "", err
	}
	today := c.resolver.Today(tz)
	return clock.AddDays(today, -c.thresholds.WindowDays), clock.AddDays(today, -1), nil
}

// AdaptTarget recalibrates one target from the trailing window of quest logs.
// Skipped targets report a reason and are not written.
func (c *Calibrator) AdaptTarget(ctx context.Context, userID, templateID int64) (*Adaptation, error) {
	at, err := c.GetAdaptedTarget(ctx, userID, templateID)
	if err != nil {
		return nil, err
	}
	res := &Adaptation{TemplateID: templateID, Metric: at.Metric, OldTarget: at.Target, NewTarget: at.Target}
	if at.ManualOverride {
		res.Reason = ReasonManualOverride
		return res, nil
	}

	from, to, err := c.window(ctx, userID)
	if err != nil {
		return nil, err
	}
	var logs []model.QuestLog
	if err := c.db.WithContext(ctx).
		Where("user_id = ? AND template_id = ? AND date BETWEEN ? AND ?", userID, templateID, from, to).
		Order("date DESC").
		Find(&logs).Error; err != nil {
		return nil, apperr.Internal("load quest logs", err)
	}
	if len(logs) < c.thresholds.MinSamples {
		res.Reason = ReasonInsufficientData
		c.logger.Debug("adaptation skipped",
			zap.Int64("user_id", userID),
			zap.Int64("template_id", templateID),
			zap.Int("samples", len(logs)))
		return res, nil
	}

	perf := Measure(logs)
	next, reason := Decide(at.Metric, at.Target, perf, c.thresholds, c.bounds)
	res.NewTarget = next
	res.Reason = reason
	if !res.Changed() {
		return res, nil
	}

	now := c.resolver.Now()
	if err := c.save(ctx, at, map[string]any{
		"adapted_target":      next,
		"completion_rate":     perf.CompletionRate,
		"average_achievement": perf.AverageAchievement,
		"last_adapted_at":     &now,
	}); err != nil {
		return nil, err
	}
	c.logger.Info("target adapted",
		zap.Int64("user_id", userID),
		zap.Int64("template_id", templateID),
		zap.String("metric", at.Metric),
		zap.Float64("old", res.OldTarget),
		zap.Float64("new", next))
	c.hooks.Emit(ctx, hook.Event{Name: hook.TargetAdapted, UserID: userID, Payload: map[string]any{
		"template_id": templateID,
		"old_target":  res.OldTarget,
		"new_target":  next,
	}})
	return res, nil
}

// save writes fields guarded by the row version.
func (c *Calibrator) save(ctx context.Context, at *model.AdaptedTarget, fields map[string]any) error {
	fields["version"] = gorm.Expr("version + 1")
	fields["updated_at"] = c.resolver.Now()
	tx := c.db.WithContext(ctx).Model(&model.AdaptedTarget{}).
		Where("id = ? AND version = ?", at.ID, at.Version).
		Updates(fields)
	if tx.Error != nil {
		return apperr.Internal("update adapted target", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return apperr.Conflict("adapted target modified concurrently")
	}
	return nil
}

// SetManualTarget pins a target and pauses recalibration. value must lie
// within the metric's bounds.
func (c *Calibrator) SetManualTarget(ctx context.Context, userID, templateID int64, value float64) (*model.AdaptedTarget, error) {
	if c.db == nil {
		return nil, apperr.ErrStoreUnavailable
	}
	tpl, err := c.loadTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	metric := requirement.MetricOf(tpl.Req())
	if value <= 0 {
		return nil, apperr.Validation("target must be positive, got %g", value)
	}
	if !c.bounds.Contains(metric, value) {
		b, _ := c.bounds.Lookup(metric)
		return nil, apperr.Validation("target %g outside %s bounds [%g, %g]", value, metric, b.Min, b.Max)
	}
	at, err := c.GetAdaptedTarget(ctx, userID, templateID)
	if err != nil {
		return nil, err
	}
	err = c.save(ctx, at, map[string]any{"adapted_target": value, "manual_override": true})
	c.audit.Record(ctx, userID, audit.ActionTargetManual, map[string]any{
		"template_id": templateID, "old_target": at.Target, "new_target": value,
	}, err)
	if err != nil {
		return nil, err
	}
	c.logger.Info("manual target set",
		zap.Int64("user_id", userID),
		zap.Int64("template_id", templateID),
		zap.Float64("target", value))
	return c.findTarget(ctx, userID, templateID)
}

// ClearManualOverride resumes automatic recalibration. The pinned value stays
// until the next adaptation.
func (c *Calibrator) ClearManualOverride(ctx context.Context, userID, templateID int64) (*model.AdaptedTarget, error) {
	if c.db == nil {
		return nil, apperr.ErrStoreUnavailable
	}
	at, err := c.findTarget(ctx, userID, templateID)
	if err != nil {
		return nil, err
	}
	if at == nil {
		return nil, apperr.NotFound("adapted target for template %d not found", templateID)
	}
	if !at.ManualOverride {
		return at, nil
	}
	err = c.save(ctx, at, map[string]any{"manual_override": false})
	c.audit.Record(ctx, userID, audit.ActionTargetClear, map[string]any{"template_id": templateID}, err)
	if err != nil {
		return nil, err
	}
	return c.findTarget(ctx, userID, templateID)
}

// RunAdaptationCycle adapts every target the user has, one after another.
// A failing target is counted and the cycle moves on.
func (c *Calibrator) RunAdaptationCycle(ctx context.Context, userID int64) (*CycleResult, error) {
	if c.db == nil {
		return nil, apperr.ErrStoreUnavailable
	}
	var ids []int64
	if err := c.db.WithContext(ctx).Model(&model.AdaptedTarget{}).
		Where("user_id = ?", userID).
		Order("template_id").
		Pluck("template_id", &ids).Error; err != nil {
		return nil, apperr.Internal("list adapted targets", err)
	}
	out := &CycleResult{UserID: userID, Results: make([]Adaptation, 0, len(ids))}
	for _, templateID := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := c.AdaptTarget(ctx, userID, templateID)
		if err != nil {
			out.Failed++
			out.Results = append(out.Results, Adaptation{TemplateID: templateID, Error: err.Error()})
			c.logger.Warn("adaptation failed",
				zap.Int64("user_id", userID),
				zap.Int64("template_id", templateID),
				zap.Error(err))
			continue
		}
		if res.Changed() {
			out.Adapted++
		} else {
			out.Unchanged++
		}
		out.Results = append(out.Results, *res)
	}
	return out, nil
}
