// Package rotation picks the daily wildcard quest.
package rotation

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fitquest/server/config"
	"github.com/fitquest/server/game/player"
	"github.com/fitquest/server/model"
)

// Stat is one of the four attribute codes.
type Stat string

const (
	StatSTR  Stat = "STR"
	StatAGI  Stat = "AGI"
	StatVIT  Stat = "VIT"
	StatDISC Stat = "DISC"
)

// statOrder breaks ties between equal stats.
var statOrder = []Stat{StatSTR, StatAGI, StatVIT, StatDISC}

// WeakestStat returns the lowest stat; ties go to the earlier of STR<AGI<VIT<DISC.
func WeakestStat(s player.Stats) Stat {
	vals := map[Stat]int{StatSTR: s.Str, StatAGI: s.Agi, StatVIT: s.Vit, StatDISC: s.Disc}
	ordered := append([]Stat(nil), statOrder...)
	sort.SliceStable(ordered, func(i, j int) bool { return vals[ordered[i]] < vals[ordered[j]] })
	return ordered[0]
}

// Tables holds the selection tuning. Keys are template keys.
type Tables struct {
	UnlockDays     int
	RecentDays     int
	RecencyPenalty float64
	WeakStatBoost  float64
	DayBoost       float64
	// BaseWeights maps template key to tier 3 (high), 2 (medium) or 1 (low).
	// Missing keys weigh 1.
	BaseWeights    map[string]int
	DayPreferences map[time.Weekday][]string
}

// DefaultTables returns the built-in tuning matching the default catalog.
func DefaultTables() Tables {
	return Tables{
		UnlockDays:     8,
		RecentDays:     3,
		RecencyPenalty: 0.1,
		WeakStatBoost:  1.5,
		DayBoost:       1.3,
		BaseWeights: map[string]int{
			"rot_active_minutes":   3,
			"rot_long_walk":        3,
			"rot_stretch":          3,
			"rot_hydration":        2,
			"rot_strength_circuit": 2,
			"rot_calorie_burn":     2,
			"rot_meditation":       2,
			"rot_early_bed":        1,
			"rot_recovery_day":     1,
		},
		DayPreferences: map[time.Weekday][]string{
			time.Sunday:    {"rot_recovery_day", "rot_meditation"},
			time.Monday:    {"rot_strength_circuit"},
			time.Tuesday:   {"rot_active_minutes"},
			time.Wednesday: {"rot_long_walk", "rot_hydration"},
			time.Thursday:  {"rot_calorie_burn"},
			time.Friday:    {"rot_stretch"},
			time.Saturday:  {"rot_long_walk", "rot_early_bed"},
		},
	}
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// TablesFromConfig overlays configured values on the defaults. Configured
// weight and preference maps replace the built-in ones wholesale.
func TablesFromConfig(c config.RotationConfig) Tables {
	t := DefaultTables()
	if c.UnlockDays > 0 {
		t.UnlockDays = c.UnlockDays
	}
	if c.RecentDays > 0 {
		t.RecentDays = c.RecentDays
	}
	if c.RecencyPenalty > 0 {
		t.RecencyPenalty = c.RecencyPenalty
	}
	if c.WeakStatBoost > 0 {
		t.WeakStatBoost = c.WeakStatBoost
	}
	if c.DayBoost > 0 {
		t.DayBoost = c.DayBoost
	}
	if len(c.BaseWeights) > 0 {
		t.BaseWeights = c.BaseWeights
	}
	if len(c.DayPreferences) > 0 {
		prefs := make(map[time.Weekday][]string, len(c.DayPreferences))
		for name, keys := range c.DayPreferences {
			if wd, ok := weekdays[strings.ToLower(name)]; ok {
				prefs[wd] = keys
			}
		}
		t.DayPreferences = prefs
	}
	return t
}

// Context is what a weight depends on besides the template.
type Context struct {
	Recent  map[int64]bool
	Weakest Stat
	Weekday time.Weekday
}

// Weight scores one candidate.
func (t Tables) Weight(tpl *model.QuestTemplate, c Context) float64 {
	base, ok := t.BaseWeights[tpl.Key]
	if !ok {
		base = 1
	}
	w := float64(base)
	if c.Recent[tpl.ID] {
		w *= t.RecencyPenalty
	}
	if tpl.Stat != "" && Stat(tpl.Stat) == c.Weakest {
		w *= t.WeakStatBoost
	}
	for _, key := range t.DayPreferences[c.Weekday] {
		if key == tpl.Key {
			w *= t.DayBoost
			break
		}
	}
	return w
}

// IsUnlocked applies the account age gate: ceil(age in days) >= unlockDays.
func (t Tables) IsUnlocked(createdAt, now time.Time) bool {
	days := math.Ceil(now.Sub(createdAt).Hours() / 24)
	return days >= float64(t.UnlockDays)
}
