package player

import (
	"context"
	"errors"
	"time"

	"github.com/fitquest/server/apperr"
	"github.com/fitquest/server/model"
	"gorm.io/gorm"
)

// Stats is the user's attribute block. A user without stored stats reads as
// DefaultStats.
type Stats struct {
	Str  int `json:"str"`
	Agi  int `json:"agi"`
	Vit  int `json:"vit"`
	Disc int `json:"disc"`
}

// DefaultStats is the starting attribute block.
var DefaultStats = Stats{Str: 10, Agi: 10, Vit: 10, Disc: 10}

// Store reads player-owned records the progression engine depends on.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store over db. A nil db makes every call fail with
// apperr.ErrStoreUnavailable.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// User loads the user row.
func (s *Store) User(ctx context.Context, userID int64) (*model.User, error) {
	if s.db == nil {
		return nil, apperr.ErrStoreUnavailable
	}
	return LoadUser(s.db.WithContext(ctx), userID)
}

// LoadUser loads the user row through db, which may be a transaction.
func LoadUser(db *gorm.DB, userID int64) (*model.User, error) {
	var u model.User
	if err := db.First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user %d not found", userID)
		}
		return nil, apperr.Internal("load user", err)
	}
	return &u, nil
}

// Stats returns the user's attributes. Zero columns read as the default.
func (s *Store) Stats(ctx context.Context, userID int64) (Stats, error) {
	u, err := s.User(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	return StatsOf(u), nil
}

// StatsOf extracts the attribute block from an already loaded user.
func StatsOf(u *model.User) Stats {
	st := Stats{Str: u.Str, Agi: u.Agi, Vit: u.Vit, Disc: u.Disc}
	if st == (Stats{}) {
		return DefaultStats
	}
	return st
}

// Baseline returns the onboarding assessment, or nil when the user skipped it.
func (s *Store) Baseline(ctx context.Context, userID int64) (*model.BaselineAssessment, error) {
	if s.db == nil {
		return nil, apperr.ErrStoreUnavailable
	}
	var b model.BaselineAssessment
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("load baseline", err)
	}
	return &b, nil
}

// AccountCreatedAt returns when the user signed up.
func (s *Store) AccountCreatedAt(ctx context.Context, userID int64) (time.Time, error) {
	u, err := s.User(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	return u.CreatedAt, nil
}

// Timezone returns the user's IANA zone name; "" lets the resolver fall back.
func (s *Store) Timezone(ctx context.Context, userID int64) (string, error) {
	u, err := s.User(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Timezone, nil
}

// statColumns maps a stat code to its users column.
var statColumns = map[string]string{
	"STR":  "str",
	"AGI":  "agi",
	"VIT":  "vit",
	"DISC": "disc",
}

// AddStat raises one attribute by delta inside tx. Unknown stats and zero
// deltas are ignored.
func AddStat(tx *gorm.DB, userID int64, stat string, delta int) error {
	col, ok := statColumns[stat]
	if !ok || delta == 0 {
		return nil
	}
	err := tx.Model(&model.User{}).Where("id = ?", userID).
		UpdateColumn(col, gorm.Expr(col+" + ?", delta)).Error
	if err != nil {
		return apperr.Internal("update stat", err)
	}
	return nil
}
