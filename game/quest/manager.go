// Package quest owns the quest log lifecycle of a user's day.
package quest

import (
	"context"
	"errors"

	"github.com/fitquest/server/apperr"
	"github.com/fitquest/server/audit"
	"github.com/fitquest/server/game/clock"
	"github.com/fitquest/server/game/player"
	"github.com/fitquest/server/game/rotation"
	"github.com/fitquest/server/game/target"
	"github.com/fitquest/server/hook"
	"github.com/fitquest/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager creates, completes, resets and removes quest logs. Every mutation
// runs in one transaction; hooks and audit entries follow the commit.
type Manager struct {
	db         *gorm.DB
	resolver   *clock.Resolver
	calibrator *target.Calibrator
	selector   *rotation.Selector
	hooks      *hook.Center
	audit      *audit.Service
	logger     *zap.Logger
}

// NewManager wires a Manager. calibrator, selector, hooks and audit may be nil;
// without a calibrator core quests use the template default target, and
// without a selector no rotating quest is created.
func NewManager(db *gorm.DB, resolver *clock.Resolver, calibrator *target.Calibrator,
	selector *rotation.Selector, hooks *hook.Center, auditSvc *audit.Service, logger *zap.Logger) *Manager {
	if resolver == nil {
		resolver = clock.NewResolver(nil, "UTC")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		db:         db,
		resolver:   resolver,
		calibrator: calibrator,
		selector:   selector,
		hooks:      hooks,
		audit:      auditSvc,
		logger:     logger,
	}
}

func (m *Manager) today(u *model.User) string { return m.resolver.Today(u.Timezone) }

func (m *Manager) loadTemplate(db *gorm.DB, templateID int64) (*model.QuestTemplate, error) {
	var tpl model.QuestTemplate
	if err := db.First(&tpl, templateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("quest template %d not found", templateID)
		}
		return nil, apperr.Internal("load template", err)
	}
	return &tpl, nil
}

// loadLog returns the user's quest log with its template.
func (m *Manager) loadLog(db *gorm.DB, userID, logID int64) (*model.QuestLog, *model.QuestTemplate, error) {
	var ql model.QuestLog
	if err := db.Where("id = ? AND user_id = ?", logID, userID).First(&ql).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("quest log %d not found", logID)
		}
		return nil, nil, apperr.Internal("load quest log", err)
	}
	tpl, err := m.loadTemplate(db, ql.TemplateID)
	if err != nil {
		return nil, nil, err
	}
	return &ql, tpl, nil
}

func (m *Manager) loadUser(ctx context.Context, userID int64) (*model.User, error) {
	if m.db == nil {
		return nil, apperr.ErrStoreUnavailable
	}
	return player.LoadUser(m.db.WithContext(ctx), userID)
}

func (m *Manager) emit(ctx context.Context, name string, userID int64, payload map[string]any) {
	m.hooks.Emit(ctx, hook.Event{Name: name, UserID: userID, Payload: payload})
}

func view(ql *model.QuestLog, tpl *model.QuestTemplate) *model.QuestView {
	return &model.QuestView{Log: ql, Template: tpl, IsRotating: tpl.IsRotating}
}
