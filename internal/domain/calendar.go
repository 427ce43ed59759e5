package domain

import (
	"time"
)

// CalendarDate is a day-granularity date, pinned to midnight UTC. Sessions
// are keyed by CalendarDate equality, so every path that produces a date key
// goes through this type instead of zeroing time components at call sites.
type CalendarDate struct {
	t time.Time
}

// NewCalendarDate takes the instant's date components in its own location and
// pins them to midnight UTC. A clock-derived "today" on a non-UTC server and
// a parsed "YYYY-MM-DD" parameter for the same day must yield the same key.
func NewCalendarDate(t time.Time) CalendarDate {
	year, month, day := t.Date()
	return CalendarDate{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf builds a CalendarDate from components, in UTC.
func DateOf(year int, month time.Month, day int) CalendarDate {
	return CalendarDate{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today is the server clock's current calendar date.
func Today() CalendarDate {
	return NewCalendarDate(time.Now())
}

// Time returns the underlying midnight-aligned instant. This is what gets
// persisted and used as an equality-query key.
func (d CalendarDate) Time() time.Time {
	return d.t
}

func (d CalendarDate) Equal(other CalendarDate) bool {
	return d.t.Equal(other.t)
}

func (d CalendarDate) Before(other CalendarDate) bool {
	return d.t.Before(other.t)
}

// DaysSince counts whole calendar days elapsed since other. Both operands are
// UTC midnights, so the division is exact even for local days that span a DST
// transition.
func (d CalendarDate) DaysSince(other CalendarDate) int {
	return int(d.t.Sub(other.t) / (24 * time.Hour))
}

func (d CalendarDate) AddDays(n int) CalendarDate {
	return NewCalendarDate(d.t.AddDate(0, 0, n))
}

func (d CalendarDate) IsZero() bool {
	return d.t.IsZero()
}

func (d CalendarDate) String() string {
	return d.t.Format("2006-01-02")
}
