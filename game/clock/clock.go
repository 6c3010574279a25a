// Package clock resolves "today" for a user's timezone. Dates are carried as
// YYYY-MM-DD strings so they compare lexically in SQL.
package clock

import (
	"sync"
	"time"
)

// DateLayout is the calendar date format used for quest and daily logs.
const DateLayout = "2006-01-02"

type Clock interface {
	Now() time.Time
}

type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fake is deterministic and test-friendly.
type Fake struct {
	mu sync.Mutex
	t  time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{t: start}
}

func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Fake) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// Resolver turns a clock reading into calendar dates for a timezone.
type Resolver struct {
	clock    Clock
	fallback *time.Location

	mu    sync.RWMutex
	zones map[string]*time.Location
}

// NewResolver returns a Resolver that uses fallbackTZ whenever a user's
// timezone is empty or cannot be loaded. An invalid fallback becomes UTC.
func NewResolver(c Clock, fallbackTZ string) *Resolver {
	if c == nil {
		c = Real{}
	}
	loc, err := time.LoadLocation(fallbackTZ)
	if err != nil || fallbackTZ == "" {
		loc = time.UTC
	}
	return &Resolver{clock: c, fallback: loc, zones: make(map[string]*time.Location)}
}

// Now returns the current instant.
func (r *Resolver) Now() time.Time { return r.clock.Now() }

// Location returns the loaded zone for tz, or the fallback.
func (r *Resolver) Location(tz string) *time.Location {
	if tz == "" {
		return r.fallback
	}
	r.mu.RLock()
	loc, ok := r.zones[tz]
	r.mu.RUnlock()
	if ok {
		return loc
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = r.fallback
	}
	r.mu.Lock()
	r.zones[tz] = loc
	r.mu.Unlock()
	return loc
}

// Today returns the calendar date in tz.
func (r *Resolver) Today(tz string) string {
	return r.clock.Now().In(r.Location(tz)).Format(DateLayout)
}

// Weekday returns the day of week in tz.
func (r *Resolver) Weekday(tz string) time.Weekday {
	return r.clock.Now().In(r.Location(tz)).Weekday()
}

// ParseDate parses a YYYY-MM-DD date at UTC midnight.
func ParseDate(date string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, time.UTC)
}

// AddDays shifts a date by n calendar days. Invalid input is returned unchanged.
func AddDays(date string, n int) string {
	t, err := ParseDate(date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format(DateLayout)
}

// DaysBetween returns the whole-day difference to - from.
func DaysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
