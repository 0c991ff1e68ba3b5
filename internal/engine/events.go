package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/tartampluch/go-contact-events/internal/config"
	"golang.org/x/text/language"
)

// ContactEvents turns the contact store's labeled dates into calendar events.
// It combines the access gate with the recurrence expansion.
type ContactEvents struct {
	*Gate

	store    ContactStore
	calendar Calendar
	title    TitleFunc
	lang     language.Tag
}

// Option customizes a ContactEvents.
type Option func(*ContactEvents)

// WithTitle sets the title renderer (see locale.Titler).
func WithTitle(f TitleFunc) Option {
	return func(c *ContactEvents) { c.title = f }
}

// WithLanguage sets the collation used to order names within a day.
func WithLanguage(tag language.Tag) Option {
	return func(c *ContactEvents) { c.lang = tag }
}

// NewContactEvents wires a store and the host's calendar.
// A nil calendar means Gregorian.
func NewContactEvents(store ContactStore, cal Calendar, opts ...Option) *ContactEvents {
	if cal == nil {
		cal = Gregorian{}
	}
	c := &ContactEvents{
		Gate:     NewGate(store),
		store:    store,
		calendar: cal,
		title:    DefaultTitle,
		lang:     language.Und,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Calendar returns the calendar used to build dates.
func (c *ContactEvents) Calendar() Calendar {
	return c.calendar
}

// EventsInRange computes the events of [start, end] on a new goroutine and
// hands them to completion, which is invoked exactly once.
//
// Without access the result is empty and no prompt is shown. A store failure
// also yields an empty result; it is logged, not returned. Cancelling ctx does
// not suppress completion.
func (c *ContactEvents) EventsInRange(ctx context.Context, start, end CalendarDate, completion func(EventsByDate)) {
	go func() {
		completion(c.Events(ctx, start, end))
	}()
}

// Events is the blocking form of EventsInRange.
func (c *ContactEvents) Events(ctx context.Context, start, end CalendarDate) EventsByDate {
	log := slog.With(
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyStart, start.String(),
		config.LogKeyEnd, end.String(),
	)

	if start.After(end) {
		log.Debug(config.MsgInvertedRange)
		return EventsByDate{}
	}
	if !c.Granted(ctx) {
		log.Info(config.MsgQueryNoAccess)
		return EventsByDate{}
	}

	begin := time.Now()
	log.DebugContext(ctx, config.MsgQueryStarted)

	dates, err := c.store.ContactDates(ctx)
	if err != nil {
		log.Warn(config.ErrStoreRead, config.LogKeyError, err)
		return EventsByDate{}
	}

	skipped := 0
	events := Expand(start, end, dates, ExpandConfig{
		Calendar: c.calendar,
		Title:    c.title,
		Language: c.lang,
		Skipped: func(cd ContactDate) {
			skipped++
			log.Debug(config.MsgSkippedDay,
				config.LogKeyContact, cd.Contact.ID,
				config.LogKeyLabel, cd.Label)
		},
	})

	log.Info(config.MsgQueryDone,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyFound, len(dates)),
			slog.Int(config.LogKeySkipped, skipped),
			slog.Int(config.LogKeyDays, len(events)),
			slog.Int(config.LogKeyEvents, events.Count()),
		),
		config.LogKeyDuration, time.Since(begin).Milliseconds(),
	)
	return events
}
