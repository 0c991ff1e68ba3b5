package engine

import "time"

// Calendar validates and constructs concrete dates. Recurrence math
// (month lengths, leap years) is delegated to it.
type Calendar interface {
	// Date returns the date (year, month, day) or false if it does not exist.
	Date(year int, month time.Month, day int) (CalendarDate, bool)
}

// Gregorian is the proleptic Gregorian calendar of package time.
type Gregorian struct{}

// Date rejects any value that time.Date would normalize, so Feb 29 of a
// non-leap year is reported as missing rather than rolled to March 1.
func (Gregorian) Date(year int, month time.Month, day int) (CalendarDate, bool) {
	if month < time.January || month > time.December || day < 1 {
		return CalendarDate{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return CalendarDate{}, false
	}
	return CalendarDate{Year: year, Month: month, Day: day}, true
}
