// Package bonus maps streak length to the XP bonus tier.
package bonus

// Tier names a streak bonus band.
type Tier string

const (
	TierNone   Tier = "none"
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

const (
	bronzeDays = 7
	silverDays = 14
	goldDays   = 30
)

// Bonus is the tier and XP percentage earned by a streak.
type Bonus struct {
	Tier    Tier `json:"tier"`
	Percent int  `json:"percent"`
}

// ForStreak returns the bonus for a streak length.
func ForStreak(streak int) Bonus {
	switch {
	case streak >= goldDays:
		return Bonus{Tier: TierGold, Percent: 25}
	case streak >= silverDays:
		return Bonus{Tier: TierSilver, Percent: 15}
	case streak >= bronzeDays:
		return Bonus{Tier: TierBronze, Percent: 10}
	default:
		return Bonus{Tier: TierNone, Percent: 0}
	}
}

// DaysUntilNextTier returns nil at gold, else the days left to the next threshold.
func DaysUntilNextTier(streak int) *int {
	var next int
	switch {
	case streak >= goldDays:
		return nil
	case streak >= silverDays:
		next = goldDays
	case streak >= bronzeDays:
		next = silverDays
	default:
		next = bronzeDays
	}
	gap := next - streak
	return &gap
}

// Apply adds the streak bonus to xp, rounding the bonus down.
func Apply(xp, streak int) int {
	if xp <= 0 {
		return xp
	}
	return xp + xp*ForStreak(streak).Percent/100
}
