package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records engine mutations performed on behalf of a user.
type AuditLog struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID   string         `gorm:"index:idx_audit_trace;size:36" json:"trace_id"`
	UserID    *int64         `gorm:"index:idx_audit_user" json:"user_id"`
	Action    string         `gorm:"size:64;not null" json:"action"`
	Detail    datatypes.JSON `json:"detail"`
	Error     string         `gorm:"type:text" json:"error"`
	CreatedAt time.Time      `gorm:"index:idx_audit_created;autoCreateTime:milli" json:"created_at"`
}
