package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_TodayInZone(t *testing.T) {
	// 2026-03-10 02:30 UTC is still the 9th in New York.
	fc := NewFake(time.Date(2026, 3, 10, 2, 30, 0, 0, time.UTC))
	r := NewResolver(fc, "UTC")
	assert.Equal(t, "2026-03-10", r.Today("UTC"))
	assert.Equal(t, "2026-03-09", r.Today("America/New_York"))
}

func TestResolver_InvalidZoneFallsBack(t *testing.T) {
	fc := NewFake(time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC))
	r := NewResolver(fc, "Europe/Berlin")
	assert.Equal(t, "2026-03-11", r.Today("Not/AZone"))
	assert.Equal(t, "2026-03-11", r.Today(""))
}

func TestNewResolver_InvalidFallbackIsUTC(t *testing.T) {
	fc := NewFake(time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC))
	r := NewResolver(fc, "bogus")
	assert.Equal(t, "2026-03-10", r.Today(""))
}

func TestFake_Advance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fc := NewFake(start)
	fc.Advance(36 * time.Hour)
	assert.Equal(t, start.Add(36*time.Hour), fc.Now())
}

func TestAddDays(t *testing.T) {
	assert.Equal(t, "2026-02-28", AddDays("2026-03-01", -1))
	assert.Equal(t, "2027-01-01", AddDays("2026-12-31", 1))
	assert.Equal(t, "garbage", AddDays("garbage", 3))
}

func TestDaysBetween(t *testing.T) {
	a, err := ParseDate("2026-03-01")
	require.NoError(t, err)
	b, err := ParseDate("2026-03-04")
	require.NoError(t, err)
	assert.Equal(t, 3, DaysBetween(a, b))
	assert.Equal(t, -3, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a.Add(20*time.Hour)))
}
