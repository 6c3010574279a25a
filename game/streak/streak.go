// Package streak rebuilds a user's streak state from their daily aggregates.
package streak

import (
	"math"

	"github.com/fitquest/server/game/clock"
	"github.com/fitquest/server/model"
)

// DefaultLookback bounds how many daily logs a recompute reads.
const DefaultLookback = 365

// Result is the streak state derived from a history walk.
type Result struct {
	CurrentStreak int     `json:"current_streak"`
	PerfectStreak int     `json:"perfect_streak"`
	StreakStart   *string `json:"streak_start_date"`
}

// coreComplete reports whether every core quest of the day was completed.
func coreComplete(dl model.DailyLog) bool {
	return dl.CoreQuestsTotal > 0 && dl.CoreQuestsCompleted >= dl.CoreQuestsTotal
}

// Calculate walks logs (newest first) back from today. A day where the core
// quests were not all completed ends the walk, as does a gap of more than one
// day. The first non-perfect day freezes the perfect count for the rest of
// the walk.
func Calculate(logs []model.DailyLog, today string) Result {
	if len(logs) == 0 {
		return Result{}
	}
	todayT, err := clock.ParseDate(today)
	if err != nil {
		return Result{}
	}
	newest, err := clock.ParseDate(logs[0].Date)
	if err != nil {
		return Result{}
	}
	if clock.DaysBetween(newest, todayT) > 1 {
		return Result{}
	}

	var res Result
	expected := newest
	perfectOpen := true
	for _, dl := range logs {
		d, err := clock.ParseDate(dl.Date)
		if err != nil {
			break
		}
		if gap := clock.DaysBetween(d, expected); int(math.Abs(float64(gap))) > 1 {
			break
		}
		if !coreComplete(dl) {
			break
		}
		res.CurrentStreak++
		start := dl.Date
		res.StreakStart = &start
		if perfectOpen {
			if dl.IsPerfectDay {
				res.PerfectStreak++
			} else {
				perfectOpen = false
			}
		}
		expected = expected.AddDate(0, 0, -1)
	}
	return res
}
