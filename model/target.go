package model

import "time"

// AdaptedTarget is the personalized goal for one (user, template) pair.
// Version guards read-modify-write updates from concurrent calibration.
type AdaptedTarget struct {
	ID                 int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID             int64      `gorm:"uniqueIndex:idx_target_user_template;not null" json:"user_id"`
	TemplateID         int64      `gorm:"uniqueIndex:idx_target_user_template;not null" json:"template_id"`
	Metric             string     `gorm:"size:32" json:"metric"`
	BaseTarget         float64    `json:"base_target"`
	Target             float64    `gorm:"column:adapted_target" json:"adapted_target"`
	ManualOverride     bool       `json:"manual_override"`
	CompletionRate     float64    `json:"completion_rate"`
	AverageAchievement float64    `json:"average_achievement"`
	LastAdaptedAt      *time.Time `json:"last_adapted_at"`
	Version            int64      `gorm:"not null;default:0" json:"version"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
