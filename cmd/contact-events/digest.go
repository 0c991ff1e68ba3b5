package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/tartampluch/go-contact-events/internal/config"
	"github.com/tartampluch/go-contact-events/internal/engine"
	"github.com/tartampluch/go-contact-events/internal/locale"
)

// dayQuerier is the part of engine.ContactEvents the digest needs.
type dayQuerier interface {
	Events(ctx context.Context, start, end engine.CalendarDate) engine.EventsByDate
}

// scheduleDigest logs today's events on the given cron schedule.
// The returned stop waits for a running digest to finish.
func scheduleDigest(ctx context.Context, schedule string, source dayQuerier, titler *locale.Titler, clock engine.Clock) (func(), error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { digest(ctx, source, titler, clock) }); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCronSchedule, err)
	}
	c.Start()

	slog.Info(config.MsgDigestSchedule,
		config.LogKeyComponent, config.CompDigest,
		config.LogKeySchedule, schedule)

	return func() { <-c.Stop().Done() }, nil
}

// digest logs the events of today and returns the summary line.
func digest(ctx context.Context, source dayQuerier, titler *locale.Titler, clock engine.Clock) string {
	today := engine.Today(clock)
	events := source.Events(ctx, today, today)[today]

	summary, ok := titler.Msg(config.TKeyDigestToday, map[string]any{"Count": len(events)})
	if !ok {
		summary = fmt.Sprintf(config.FallbackDigest, len(events))
	}

	titles := make([]string, 0, len(events))
	for _, ev := range events {
		titles = append(titles, ev.Title)
	}
	slog.Info(config.MsgDigest,
		config.LogKeyComponent, config.CompDigest,
		config.LogKeyCount, len(events),
		config.LogKeyValue, summary,
		config.LogKeyEvents, titles)
	return summary
}
