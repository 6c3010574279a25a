package target

import (
	"fmt"
	"math"

	"github.com/fitquest/server/config"
	"github.com/fitquest/server/model"
)

// Skip and outcome reasons reported by AdaptTarget.
const (
	ReasonManualOverride   = "Manual override active"
	ReasonInsufficientData = "Insufficient data"
	ReasonRaised           = "Strong performance: target raised"
	ReasonLowered          = "Struggling: target lowered"
	ReasonUnchanged        = "Performance within range"
	ReasonAtBound          = "Target already at bound"
)

// epsilon absorbs float noise before ceil/floor, so 10000*1.1 rounds to 11000.
const epsilon = 1e-9

// Thresholds drive the recalibration decision.
type Thresholds struct {
	WindowDays       int     `json:"window_days"`
	MinSamples       int     `json:"min_samples"`
	RaiseAchievement float64 `json:"raise_achievement"`
	RaiseCompletion  float64 `json:"raise_completion"`
	LowerAchievement float64 `json:"lower_achievement"`
	LowerCompletion  float64 `json:"lower_completion"`
	Step             float64 `json:"step"`
}

// DefaultThresholds returns the built-in rule set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WindowDays:       14,
		MinSamples:       7,
		RaiseAchievement: 1.25,
		RaiseCompletion:  0.8,
		LowerAchievement: 0.7,
		LowerCompletion:  0.5,
		Step:             0.10,
	}
}

// ThresholdsFromConfig overlays non-zero configured values on the defaults.
func ThresholdsFromConfig(c config.CalibrationConfig) Thresholds {
	t := DefaultThresholds()
	if c.WindowDays > 0 {
		t.WindowDays = c.WindowDays
	}
	if c.MinSamples > 0 {
		t.MinSamples = c.MinSamples
	}
	if c.RaiseAchievement > 0 {
		t.RaiseAchievement = c.RaiseAchievement
	}
	if c.RaiseCompletion > 0 {
		t.RaiseCompletion = c.RaiseCompletion
	}
	if c.LowerAchievement > 0 {
		t.LowerAchievement = c.LowerAchievement
	}
	if c.LowerCompletion > 0 {
		t.LowerCompletion = c.LowerCompletion
	}
	if c.Step > 0 {
		t.Step = c.Step
	}
	return t
}

// Performance summarizes a window of quest logs.
type Performance struct {
	Samples            int     `json:"samples"`
	CompletionRate     float64 `json:"completion_rate"`
	AverageAchievement float64 `json:"average_achievement"`
}

// Measure computes completion rate and mean achievement over logs. A log
// with a non-positive target contributes zero achievement.
func Measure(logs []model.QuestLog) Performance {
	p := Performance{Samples: len(logs)}
	if len(logs) == 0 {
		return p
	}
	var completed int
	var sum float64
	for _, ql := range logs {
		if ql.Status == model.QuestStatusCompleted {
			completed++
		}
		if ql.TargetValue > 0 {
			sum += ql.CurrentValue / ql.TargetValue
		}
	}
	n := float64(len(logs))
	p.CompletionRate = float64(completed) / n
	p.AverageAchievement = sum / n
	return p
}

// Decide applies the raise and lower rules to current. Both rules are
// evaluated in order and the lower rule wins when both hold. The result is
// clamped to the metric's bounds.
func Decide(metric string, current float64, p Performance, th Thresholds, bounds BoundsTable) (float64, string) {
	next := current
	reason := ReasonUnchanged
	if p.AverageAchievement > th.RaiseAchievement && p.CompletionRate > th.RaiseCompletion {
		next = math.Ceil(current*(1+th.Step) - epsilon)
		reason = ReasonRaised
	}
	if p.AverageAchievement < th.LowerAchievement && p.CompletionRate < th.LowerCompletion {
		next = math.Floor(current*(1-th.Step) + epsilon)
		reason = ReasonLowered
	}
	next = bounds.Clamp(metric, next)
	if next == current && reason != ReasonUnchanged {
		reason = ReasonAtBound
	}
	return next, describe(reason, p)
}

func describe(reason string, p Performance) string {
	return fmt.Sprintf("%s (completion %.0f%%, achievement %.0f%%)", reason, p.CompletionRate*100, p.AverageAchievement*100)
}
