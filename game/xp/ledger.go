package xp

import (
	"encoding/json"
	"errors"

	"github.com/fitquest/server/apperr"
	"github.com/fitquest/server/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Ledger sources.
const (
	SourceQuestComplete = "quest_complete"
	SourceQuestReset    = "quest_reset"
)

// Entry describes one XP delta. Amount is always positive; the direction is
// chosen by Award or CreateRemovalEvent.
type Entry struct {
	UserID      int64
	Source      string
	SourceID    int64
	Amount      int
	Description string
	Metadata    map[string]any
}

// Result reports the user's progression after an event was applied.
type Result struct {
	Event    *model.XPEvent
	TotalXP  int64
	OldLevel int
	NewLevel int
}

// LeveledUp reports whether the event crossed a level boundary upwards.
func (r *Result) LeveledUp() bool { return r.NewLevel > r.OldLevel }

// XPForLevel returns the cumulative XP needed to reach level.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	l := int64(level)
	return 50 * l * (l - 1)
}

// LevelForXP returns the highest level whose threshold total reaches.
func LevelForXP(total int64) int {
	level := 1
	for XPForLevel(level+1) <= total {
		level++
	}
	return level
}

// Award books a positive XP event inside tx and updates the user's totals.
func Award(tx *gorm.DB, e Entry) (*Result, error) {
	return apply(tx, e, e.Amount)
}

// CreateRemovalEvent books a negative XP event inside tx. The user's total is
// never taken below zero.
func CreateRemovalEvent(tx *gorm.DB, e Entry) (*Result, error) {
	return apply(tx, e, -e.Amount)
}

func apply(tx *gorm.DB, e Entry, amount int) (*Result, error) {
	if tx == nil {
		return nil, apperr.ErrStoreUnavailable
	}
	if e.Amount < 0 {
		return nil, apperr.Validation("xp amount must be positive, got %d", e.Amount)
	}
	var meta datatypes.JSON
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, apperr.Internal("encode xp metadata", err)
		}
		meta = datatypes.JSON(raw)
	}
	ev := &model.XPEvent{
		UserID:      e.UserID,
		Source:      e.Source,
		SourceID:    e.SourceID,
		Amount:      amount,
		Description: e.Description,
		Metadata:    meta,
	}
	if err := tx.Create(ev).Error; err != nil {
		return nil, apperr.Internal("create xp event", err)
	}

	var u model.User
	if err := tx.Select("id", "total_xp", "level").First(&u, e.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user %d not found", e.UserID)
		}
		return nil, apperr.Internal("load user", err)
	}
	total := u.TotalXP + int64(amount)
	if total < 0 {
		total = 0
	}
	level := LevelForXP(total)
	if err := tx.Model(&model.User{}).Where("id = ?", e.UserID).
		Updates(map[string]any{"total_xp": total, "level": level}).Error; err != nil {
		return nil, apperr.Internal("update user xp", err)
	}
	return &Result{Event: ev, TotalXP: total, OldLevel: u.Level, NewLevel: level}, nil
}
