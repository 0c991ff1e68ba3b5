package engine

import (
	"fmt"
	"time"

	"github.com/tartampluch/go-contact-events/internal/config"
)

// CalendarDate is a whole day with no time-of-day and no time zone.
// It is comparable and is used as the key of EventsByDate.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t as seen in t's own location.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string and validates it against cal.
func ParseDate(cal Calendar, s string) (CalendarDate, error) {
	t, err := time.Parse(config.DateFormatFullDash, s)
	if err != nil {
		return CalendarDate{}, fmt.Errorf("%s: %w", config.ErrDateParse, err)
	}
	d, ok := cal.Date(t.Year(), t.Month(), t.Day())
	if !ok {
		return CalendarDate{}, fmt.Errorf("%s: %q", config.ErrDateParse, s)
	}
	return d, nil
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after o.
func (d CalendarDate) Compare(o CalendarDate) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d CalendarDate) Before(o CalendarDate) bool { return d.Compare(o) < 0 }
func (d CalendarDate) After(o CalendarDate) bool  { return d.Compare(o) > 0 }

// Time returns midnight of d in loc.
func (d CalendarDate) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays moves d by n days using Gregorian arithmetic.
func (d CalendarDate) AddDays(n int) CalendarDate {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText lets CalendarDate serve as a JSON object key.
func (d CalendarDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// DateValue is the date carried by a labeled contact date.
// It is either a RecurringDate (no year) or an AnchoredDate (year known).
type DateValue interface {
	MonthDay() (time.Month, int)
	isDateValue()
}

// RecurringDate is a month/day with no year, like a vCard "--12-31".
type RecurringDate struct {
	Month time.Month
	Day   int
}

func (r RecurringDate) MonthDay() (time.Month, int) { return r.Month, r.Day }
func (RecurringDate) isDateValue()                  {}

func (r RecurringDate) String() string {
	return fmt.Sprintf("--%02d-%02d", int(r.Month), r.Day)
}

// MarshalText renders the vCard form, "--MM-DD".
func (r RecurringDate) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// AnchoredDate is a month/day whose original year is known.
// Matching ignores the year; it is kept for "turns N" displays.
type AnchoredDate struct {
	Year  int
	Month time.Month
	Day   int
}

func (a AnchoredDate) MonthDay() (time.Month, int) { return a.Month, a.Day }
func (AnchoredDate) isDateValue()                  {}

func (a AnchoredDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", a.Year, int(a.Month), a.Day)
}

func (a AnchoredDate) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ValidMonthDay reports whether month/day can exist in at least one year.
// February 29 is valid.
func ValidMonthDay(v DateValue) bool {
	if v == nil {
		return false
	}
	m, d := v.MonthDay()
	if m < time.January || m > time.December || d < 1 {
		return false
	}
	return d <= daysIn(config.DefaultLeapYear, m)
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
