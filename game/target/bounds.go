// Package target personalizes numeric quest goals and recalibrates them from
// recent performance.
package target

import (
	"math"

	"github.com/fitquest/server/config"
)

// Metric names with known bounds.
const (
	MetricSteps          = "steps"
	MetricWorkoutMinutes = "workout_minutes"
	MetricProteinGrams   = "protein_grams"
	MetricSleepHours     = "sleep_hours"
	MetricActiveMinutes  = "active_minutes"
	MetricCaloriesBurned = "calories_burned"
)

// Bounds is the allowed range of one metric and its default goal.
type Bounds struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// BoundsTable maps metric name to Bounds. Metrics missing from the table are
// unbounded.
type BoundsTable map[string]Bounds

// DefaultBounds returns the built-in bounds table.
func DefaultBounds() BoundsTable {
	return BoundsTable{
		MetricSteps:          {Min: 3000, Max: 15000, Default: 10000},
		MetricWorkoutMinutes: {Min: 10, Max: 90, Default: 30},
		MetricProteinGrams:   {Min: 50, Max: 250, Default: 150},
		MetricSleepHours:     {Min: 5, Max: 10, Default: 8},
		MetricActiveMinutes:  {Min: 15, Max: 120, Default: 30},
		MetricCaloriesBurned: {Min: 100, Max: 1000, Default: 400},
	}
}

// BoundsFromConfig overlays configured bounds on the defaults.
func BoundsFromConfig(overrides map[string]config.MetricBounds) BoundsTable {
	t := DefaultBounds()
	for metric, b := range overrides {
		if b.Max <= 0 || b.Min > b.Max {
			continue
		}
		t[metric] = Bounds{Min: b.Min, Max: b.Max, Default: b.Default}
	}
	return t
}

// Lookup returns the bounds of metric.
func (t BoundsTable) Lookup(metric string) (Bounds, bool) {
	b, ok := t[metric]
	return b, ok
}

// Clamp forces v into the metric's range. Unknown metrics pass through.
func (t BoundsTable) Clamp(metric string, v float64) float64 {
	b, ok := t[metric]
	if !ok {
		return v
	}
	return math.Min(b.Max, math.Max(b.Min, v))
}

// Contains reports whether v lies within the metric's range.
func (t BoundsTable) Contains(metric string, v float64) bool {
	b, ok := t[metric]
	if !ok {
		return true
	}
	return v >= b.Min && v <= b.Max
}
