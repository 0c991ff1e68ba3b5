package engine

import (
	"fmt"
	"sort"

	"github.com/tartampluch/go-contact-events/internal/config"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// TitleFunc renders the display title of an occurrence.
// It receives the event with every field but Title filled in.
type TitleFunc func(ev EventInfo) string

// DefaultTitle joins the display name and the label.
func DefaultTitle(ev EventInfo) string {
	return fmt.Sprintf(config.FallbackTitle, ev.Contact.DisplayName, ev.Label)
}

// ExpandConfig controls how contact dates are projected onto a range.
type ExpandConfig struct {
	// Calendar builds concrete dates. Defaults to Gregorian.
	Calendar Calendar
	// Title renders event titles. Defaults to DefaultTitle.
	Title TitleFunc
	// Language drives the collation of display names within a day.
	// Defaults to language.Und.
	Language language.Tag
	// Skipped, if set, is called for every date with an impossible month/day.
	Skipped func(ContactDate)
}

// Expand projects every contact date onto each year touched by [start, end]
// and groups the occurrences by day. It performs no I/O.
//
// Dates the calendar cannot construct in a given year (Feb 29 outside leap
// years) produce no occurrence for that year. An inverted range yields an
// empty mapping.
func Expand(start, end CalendarDate, dates []ContactDate, cfg ExpandConfig) EventsByDate {
	out := make(EventsByDate)
	if start.After(end) {
		return out
	}
	cal := cfg.Calendar
	if cal == nil {
		cal = Gregorian{}
	}
	title := cfg.Title
	if title == nil {
		title = DefaultTitle
	}

	for _, cd := range dates {
		if !ValidMonthDay(cd.Date) {
			if cfg.Skipped != nil {
				cfg.Skipped(cd)
			}
			continue
		}
		month, day := cd.Date.MonthDay()

		// y >= start.Year stops the loop if y++ overflows at math.MaxInt.
		for y := start.Year; y <= end.Year && y >= start.Year; y++ {
			occ, ok := cal.Date(y, month, day)
			if !ok || occ.Before(start) || occ.After(end) {
				continue
			}
			ev := EventInfo{
				Date:    occ,
				Label:   cd.Label,
				Contact: cd.Contact,
				Source:  cd.Date,
			}
			ev.Title = title(ev)
			out[occ] = append(out[occ], ev)
		}
	}

	col := collate.New(cfg.Language)
	for d, evs := range out {
		sortEvents(col, evs)
		out[d] = evs
	}
	return out
}

// sortEvents orders one day's events by display name, then contact ID,
// then label.
func sortEvents(col *collate.Collator, evs []EventInfo) {
	sort.SliceStable(evs, func(i, j int) bool {
		a, b := evs[i], evs[j]
		if c := col.CompareString(a.Contact.DisplayName, b.Contact.DisplayName); c != 0 {
			return c < 0
		}
		if a.Contact.DisplayName != b.Contact.DisplayName {
			return a.Contact.DisplayName < b.Contact.DisplayName
		}
		if a.Contact.ID != b.Contact.ID {
			return a.Contact.ID < b.Contact.ID
		}
		return a.Label < b.Label
	})
}

func sortDates(ds []CalendarDate) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
}
