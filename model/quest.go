package model

import (
	"time"

	"github.com/fitquest/server/game/requirement"
	"gorm.io/datatypes"
)

// QuestType selects the tracking path for a template.
type QuestType = string

const (
	QuestTypeDaily   QuestType = "DAILY"
	QuestTypeWeekly  QuestType = "WEEKLY"
	QuestTypeDungeon QuestType = "DUNGEON"
	QuestTypeBoss    QuestType = "BOSS"
)

// QuestStatus is the lifecycle state of a quest log.
type QuestStatus = string

const (
	QuestStatusActive    QuestStatus = "ACTIVE"
	QuestStatusCompleted QuestStatus = "COMPLETED"
	QuestStatusFailed    QuestStatus = "FAILED"
	QuestStatusExpired   QuestStatus = "EXPIRED"
)

// QuestTemplate is the seasonal definition a daily quest log is created from.
type QuestTemplate struct {
	ID                int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Key               string         `gorm:"size:64;uniqueIndex;not null" json:"key"`
	Name              string         `gorm:"size:128;not null" json:"name"`
	Category          string         `gorm:"size:32" json:"category"`
	Type              QuestType      `gorm:"size:16;not null" json:"type"`
	Requirement       datatypes.JSON `json:"requirement"`
	BaseXP            int            `json:"base_xp"`
	Stat              string         `gorm:"size:8" json:"stat"`
	StatBonus         int            `json:"stat_bonus"`
	IsCore            bool           `json:"is_core"`
	IsRotating        bool           `json:"is_rotating"`
	IsActive          bool           `json:"is_active"`
	AllowPartial      bool           `json:"allow_partial"`
	MinPartialPercent int            `json:"min_partial_percent"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Req decodes the stored requirement. A malformed column yields nil, which the
// requirement helpers treat as an unknown metric with a zero target.
func (t *QuestTemplate) Req() requirement.Requirement {
	r, err := requirement.Decode(t.Requirement)
	if err != nil {
		return nil
	}
	return r
}

// QuestLog is one user's instance of a template on one calendar date.
type QuestLog struct {
	ID                int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            int64       `gorm:"uniqueIndex:idx_quest_log_day;not null" json:"user_id"`
	TemplateID        int64       `gorm:"uniqueIndex:idx_quest_log_day;not null" json:"template_id"`
	Date              string      `gorm:"uniqueIndex:idx_quest_log_day;size:10;not null" json:"date"`
	Status            QuestStatus `gorm:"size:16;not null" json:"status"`
	CurrentValue      float64     `json:"current_value"`
	TargetValue       float64     `json:"target_value"`
	CompletionPercent float64     `json:"completion_percent"`
	CompletedAt       *time.Time  `json:"completed_at"`
	XPAwarded         int         `json:"xp_awarded"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// DailyLog aggregates one user's day.
type DailyLog struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID               int64     `gorm:"uniqueIndex:idx_daily_log_day;not null" json:"user_id"`
	Date                 string    `gorm:"uniqueIndex:idx_daily_log_day;size:10;not null" json:"date"`
	CoreQuestsCompleted  int       `json:"core_quests_completed"`
	CoreQuestsTotal      int       `json:"core_quests_total"`
	BonusQuestsCompleted int       `json:"bonus_quests_completed"`
	XPEarned             int       `json:"xp_earned"`
	IsPerfectDay         bool      `json:"is_perfect_day"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// UserQuestToggle records whether a user opted into a non-core template.
type UserQuestToggle struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"uniqueIndex:idx_toggle_user_template;not null" json:"user_id"`
	TemplateID int64     `gorm:"uniqueIndex:idx_toggle_user_template;not null" json:"template_id"`
	Enabled    bool      `json:"enabled"`
	UpdatedAt  time.Time `json:"updated_at"`
}
