package target

import (
	"math"

	"github.com/fitquest/server/model"
)

const sleepGoalHours = 7.0

// InitialTarget derives a first goal from the onboarding baseline. A nil
// baseline, an unknown metric, or a missing baseline field falls back to
// templateDefault. The result is clamped to the metric's bounds.
func InitialTarget(metric string, b *model.BaselineAssessment, templateDefault float64, bounds BoundsTable) float64 {
	v := templateDefault
	if b != nil {
		if got, ok := fromBaseline(metric, b, bounds); ok {
			v = got
		}
	}
	return bounds.Clamp(metric, v)
}

func fromBaseline(metric string, b *model.BaselineAssessment, bounds BoundsTable) (float64, bool) {
	capAt := func(v float64) float64 {
		if bd, ok := bounds.Lookup(metric); ok && bd.Default > 0 {
			return math.Min(v, bd.Default)
		}
		return v
	}
	switch metric {
	case MetricSteps:
		if b.DailyStepsBaseline <= 0 {
			return 0, false
		}
		return capAt(math.Round(b.DailyStepsBaseline * 1.2)), true
	case MetricWorkoutMinutes:
		switch {
		case b.WorkoutsPerWeek >= 5:
			return 45, true
		case b.WorkoutsPerWeek >= 3:
			return 30, true
		case b.WorkoutsPerWeek >= 1:
			return 20, true
		}
		return 15, true
	case MetricProteinGrams:
		if b.ProteinGramsBaseline <= 0 {
			return 0, false
		}
		return capAt(math.Round(b.ProteinGramsBaseline * 1.1)), true
	case MetricSleepHours:
		if b.SleepHoursBaseline <= 0 {
			return 0, false
		}
		if b.SleepHoursBaseline < sleepGoalHours {
			return math.Min(b.SleepHoursBaseline+0.5, sleepGoalHours), true
		}
		return sleepGoalHours, true
	case MetricActiveMinutes:
		if b.DailyStepsBaseline <= 0 {
			return 0, false
		}
		switch {
		case b.DailyStepsBaseline >= 12000:
			return 60, true
		case b.DailyStepsBaseline >= 8000:
			return 45, true
		case b.DailyStepsBaseline >= 5000:
			return 30, true
		}
		return 20, true
	}
	return 0, false
}
