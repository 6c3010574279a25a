package model

import (
	"time"

	"gorm.io/datatypes"
)

// XPEvent is an immutable ledger row. Removals carry a negative amount.
type XPEvent struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64          `gorm:"index:idx_xp_user;not null" json:"user_id"`
	Source      string         `gorm:"size:32;not null" json:"source"`
	SourceID    int64          `json:"source_id"`
	Amount      int            `json:"amount"`
	Description string         `gorm:"size:255" json:"description"`
	Metadata    datatypes.JSON `json:"metadata"`
	CreatedAt   time.Time      `gorm:"index:idx_xp_created" json:"created_at"`
}
