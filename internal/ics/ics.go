// Package ics renders contact events as iCalendar data.
package ics

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-contact-events/internal/config"
	"github.com/tartampluch/go-contact-events/internal/engine"
	"github.com/teambition/rrule-go"
)

// Encode renders one all-day VEVENT per event, in date order.
// stamp is the DTSTAMP of every event and should be the current time.
func Encode(events engine.EventsByDate, stamp time.Time) ([]byte, error) {
	cal := newCalendar()
	for _, d := range events.Dates() {
		for _, ev := range events[d] {
			vevent := newEvent(uid(ev.Contact.ID, ev.Label, ev.Source, d.String()), ev.Title, ev.Label, stamp)
			setDate(vevent, d)
			cal.Children = append(cal.Children, vevent.Component)
		}
	}
	return encode(cal)
}

// EncodeFeed renders one yearly recurring VEVENT per contact date, for
// clients that subscribe rather than query a range. RFC 5545 drops invalid
// instances, so a Feb 29 rule only fires in leap years, matching Expand.
func EncodeFeed(dates []engine.ContactDate, title engine.TitleFunc, stamp time.Time) ([]byte, error) {
	if title == nil {
		title = engine.DefaultTitle
	}
	cal := newCalendar()
	for _, cd := range dates {
		if !engine.ValidMonthDay(cd.Date) {
			continue
		}
		month, day := cd.Date.MonthDay()
		start := firstOccurrence(cd.Date)

		summary := title(engine.EventInfo{Date: start, Label: cd.Label, Contact: cd.Contact, Source: cd.Date})
		vevent := newEvent(uid(cd.Contact.ID, cd.Label, cd.Date, "yearly"), summary, cd.Label, stamp)
		setDate(vevent, start)
		vevent.Props.SetRecurrenceRule(&rrule.ROption{
			Freq:       rrule.YEARLY,
			Bymonth:    []int{int(month)},
			Bymonthday: []int{day},
		})
		cal.Children = append(cal.Children, vevent.Component)
	}
	return encode(cal)
}

// firstOccurrence anchors the rule on the stored year, or on a leap year
// when the year is unknown so that Feb 29 is a valid DTSTART.
func firstOccurrence(v engine.DateValue) engine.CalendarDate {
	month, day := v.MonthDay()
	if a, ok := v.(engine.AnchoredDate); ok {
		if d, valid := (engine.Gregorian{}).Date(a.Year, month, day); valid {
			return d
		}
	}
	return engine.CalendarDate{Year: config.DefaultLeapYear, Month: month, Day: day}
}

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, config.ICalVersion)
	cal.Props.SetText(ical.PropProductID, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(ical.PropCalendarScale, config.ICalScale)
	cal.Props.SetText(ical.PropMethod, config.ICalMethod)

	refresh := ical.NewProp(config.PropRefresh)
	refresh.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refresh)
	return cal
}

func newEvent(uid, summary, label string, stamp time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	dtStamp := ical.NewProp(ical.PropDateTimeStamp)
	dtStamp.SetDateTime(stamp.UTC())
	event.Props.Set(dtStamp)
	event.Props.SetText(ical.PropSummary, summary)
	if label != "" {
		event.Props.SetText(ical.PropCategories, label)
	}
	return event
}

// setDate marks the event as all-day on d.
func setDate(event *ical.Event, d engine.CalendarDate) {
	dtStart := ical.NewProp(ical.PropDateTimeStart)
	dtStart.SetDate(d.Time(time.UTC))
	event.Props.Set(dtStart)
}

// uid is deterministic so that clients keep their state across refreshes.
func uid(contactID, label string, source engine.DateValue, suffix string) string {
	input := fmt.Sprintf(config.FormatHashInput, contactID, label+"|"+fmt.Sprint(source), config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf(config.FormatUID, fmt.Sprintf("%x", hash[:config.UIDHashLength]), suffix, config.ICalDomain)
}

func encode(cal *ical.Calendar) ([]byte, error) {
	// An empty VCALENDAR is rejected by some clients; serve the minimal stub.
	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	slog.Debug("Calendar encoded",
		config.LogKeyComponent, config.CompICS,
		config.LogKeyEvents, len(cal.Children),
		config.LogKeySizeBytes, buf.Len())
	return buf.Bytes(), nil
}
