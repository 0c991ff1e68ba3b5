package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tartampluch/go-contact-events/internal/config"
	"github.com/tartampluch/go-contact-events/internal/engine"
	"github.com/tartampluch/go-contact-events/internal/ics"
)

// parseRange resolves the -start and -end flags. start defaults to today and
// end to start plus the configured window.
func parseRange(clock engine.Clock, start, end string, windowDays int) (engine.CalendarDate, engine.CalendarDate, error) {
	from := engine.Today(clock)
	if start != "" {
		var err error
		if from, err = engine.ParseDate(engine.Gregorian{}, start); err != nil {
			return from, from, err
		}
	}

	to := from.AddDays(windowDays)
	if end != "" {
		var err error
		if to, err = engine.ParseDate(engine.Gregorian{}, end); err != nil {
			return from, to, err
		}
	}

	if from.After(to) {
		return from, to, fmt.Errorf("%s: %s > %s", config.ErrDateRange, from, to)
	}
	return from, to, nil
}

// writeEvents prints events in the requested format.
func writeEvents(w io.Writer, format string, events engine.EventsByDate, clock engine.Clock) error {
	switch format {
	case config.FormatText, "":
		for _, d := range events.Dates() {
			for _, ev := range events[d] {
				if _, err := fmt.Fprintf(w, config.FormatTextLine, d, ev.Title); err != nil {
					return err
				}
			}
		}
		return nil

	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(events)

	case config.FormatICS:
		data, err := ics.Encode(events, clock.Now())
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err

	default:
		return fmt.Errorf("%s: %q", config.ErrFormat, format)
	}
}

// writeFeed prints the recurring calendar of every contact date.
func writeFeed(w io.Writer, dates []engine.ContactDate, title engine.TitleFunc, clock engine.Clock) error {
	data, err := ics.EncodeFeed(dates, title, clock.Now())
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
