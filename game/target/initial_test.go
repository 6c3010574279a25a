package target

import (
	"testing"

	"github.com/fitquest/server/model"
	"github.com/stretchr/testify/assert"
)

func TestInitialTarget(t *testing.T) {
	bounds := DefaultBounds()
	cases := []struct {
		name     string
		metric   string
		baseline *model.BaselineAssessment
		def      float64
		want     float64
	}{
		{"no baseline", MetricSteps, nil, 8000, 8000},
		{"steps +20%", MetricSteps, &model.BaselineAssessment{DailyStepsBaseline: 6000}, 8000, 7200},
		{"steps capped at default", MetricSteps, &model.BaselineAssessment{DailyStepsBaseline: 9500}, 8000, 10000},
		{"steps floor bound", MetricSteps, &model.BaselineAssessment{DailyStepsBaseline: 1000}, 8000, 3000},
		{"steps missing field", MetricSteps, &model.BaselineAssessment{WorkoutsPerWeek: 3}, 8000, 8000},
		{"workouts 5+", MetricWorkoutMinutes, &model.BaselineAssessment{WorkoutsPerWeek: 6}, 30, 45},
		{"workouts 3", MetricWorkoutMinutes, &model.BaselineAssessment{WorkoutsPerWeek: 3}, 30, 30},
		{"workouts 1", MetricWorkoutMinutes, &model.BaselineAssessment{WorkoutsPerWeek: 1}, 30, 20},
		{"workouts none", MetricWorkoutMinutes, &model.BaselineAssessment{}, 30, 15},
		{"protein +10%", MetricProteinGrams, &model.BaselineAssessment{ProteinGramsBaseline: 100}, 150, 110},
		{"protein capped", MetricProteinGrams, &model.BaselineAssessment{ProteinGramsBaseline: 200}, 150, 150},
		{"sleep toward 7", MetricSleepHours, &model.BaselineAssessment{SleepHoursBaseline: 6}, 8, 6.5},
		{"sleep short step", MetricSleepHours, &model.BaselineAssessment{SleepHoursBaseline: 6.8}, 8, 7},
		{"sleep hold", MetricSleepHours, &model.BaselineAssessment{SleepHoursBaseline: 9}, 8, 7},
		{"active 12k", MetricActiveMinutes, &model.BaselineAssessment{DailyStepsBaseline: 12000}, 30, 60},
		{"active 8k", MetricActiveMinutes, &model.BaselineAssessment{DailyStepsBaseline: 8000}, 30, 45},
		{"active 5k", MetricActiveMinutes, &model.BaselineAssessment{DailyStepsBaseline: 5000}, 30, 30},
		{"active low", MetricActiveMinutes, &model.BaselineAssessment{DailyStepsBaseline: 2000}, 30, 20},
		{"unknown metric", "hydration_cups", &model.BaselineAssessment{DailyStepsBaseline: 9000}, 8, 8},
		{"calories use default", MetricCaloriesBurned, &model.BaselineAssessment{DailyStepsBaseline: 9000}, 50, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InitialTarget(tc.metric, tc.baseline, tc.def, bounds))
		})
	}
}
