package engine

import "time"

// Clock abstracts time.Now() so "today" can be pinned in tests.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Today returns the local calendar date of c.
func Today(c Clock) CalendarDate {
	return DateOf(c.Now())
}

// DefaultRange returns the window from the start of last year to the end of
// next year around today, so calendar clients can scroll both ways.
func DefaultRange(c Clock) (CalendarDate, CalendarDate) {
	y := c.Now().Year()
	return CalendarDate{Year: y - 1, Month: time.January, Day: 1},
		CalendarDate{Year: y + 1, Month: time.December, Day: 31}
}
