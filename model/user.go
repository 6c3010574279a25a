package model

import "time"

// User carries the progression state of one account. Authentication lives elsewhere;
// only the fields the engine reads or mutates are stored here.
type User struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"size:64" json:"name"`
	Timezone string `gorm:"size:64" json:"timezone"`

	Level           int     `gorm:"default:1" json:"level"`
	TotalXP         int64   `gorm:"default:0" json:"total_xp"`
	CurrentStreak   int     `gorm:"default:0" json:"current_streak"`
	LongestStreak   int     `gorm:"default:0" json:"longest_streak"`
	PerfectStreak   int     `gorm:"default:0" json:"perfect_streak"`
	StreakStartDate *string `gorm:"size:10" json:"streak_start_date"`

	Str  int `gorm:"default:10" json:"str"`
	Agi  int `gorm:"default:10" json:"agi"`
	Vit  int `gorm:"default:10" json:"vit"`
	Disc int `gorm:"default:10" json:"disc"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BaselineAssessment is the onboarding questionnaire used to seed initial targets.
type BaselineAssessment struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID               int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	DailyStepsBaseline   float64   `json:"daily_steps_baseline"`
	WorkoutsPerWeek      int       `json:"workouts_per_week"`
	ProteinGramsBaseline float64   `json:"protein_grams_baseline"`
	SleepHoursBaseline   float64   `json:"sleep_hours_baseline"`
	CreatedAt            time.Time `json:"created_at"`
}
