package bonus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForStreak(t *testing.T) {
	cases := []struct {
		streak int
		want   Bonus
	}{
		{0, Bonus{TierNone, 0}},
		{6, Bonus{TierNone, 0}},
		{7, Bonus{TierBronze, 10}},
		{13, Bonus{TierBronze, 10}},
		{14, Bonus{TierSilver, 15}},
		{29, Bonus{TierSilver, 15}},
		{30, Bonus{TierGold, 25}},
		{365, Bonus{TierGold, 25}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ForStreak(tc.streak), "streak %d", tc.streak)
	}
}

func TestDaysUntilNextTier(t *testing.T) {
	d := DaysUntilNextTier(0)
	require.NotNil(t, d)
	assert.Equal(t, 7, *d)

	d = DaysUntilNextTier(10)
	require.NotNil(t, d)
	assert.Equal(t, 4, *d)

	d = DaysUntilNextTier(20)
	require.NotNil(t, d)
	assert.Equal(t, 10, *d)

	assert.Nil(t, DaysUntilNextTier(30))
}

func TestApply(t *testing.T) {
	assert.Equal(t, 50, Apply(50, 3))
	assert.Equal(t, 55, Apply(50, 7))
	assert.Equal(t, 57, Apply(50, 14)) // 7.5 rounds down
	assert.Equal(t, 62, Apply(50, 30))
	assert.Equal(t, 0, Apply(0, 30))
}
