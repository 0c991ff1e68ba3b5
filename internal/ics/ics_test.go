package ics_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-contact-events/internal/config"
	"github.com/tartampluch/go-contact-events/internal/engine"
	"github.com/tartampluch/go-contact-events/internal/ics"
)

var stamp = time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

func sampleDates() []engine.ContactDate {
	return []engine.ContactDate{
		{Contact: engine.ContactRef{ID: "1", DisplayName: "Leap Baby"}, Label: config.LabelBirthday, Date: engine.RecurringDate{Month: time.February, Day: 29}},
		{Contact: engine.ContactRef{ID: "2", DisplayName: "Jane Doe"}, Label: config.LabelBirthday, Date: engine.AnchoredDate{Year: 1990, Month: time.March, Day: 14}},
		{Contact: engine.ContactRef{ID: "2", DisplayName: "Jane Doe"}, Label: config.LabelAnniversary, Date: engine.RecurringDate{Month: time.March, Day: 14}},
		{Contact: engine.ContactRef{ID: "3", DisplayName: "New Year"}, Label: "Name day", Date: engine.RecurringDate{Month: time.December, Day: 31}},
		{Contact: engine.ContactRef{ID: "4", DisplayName: "Broken"}, Label: config.LabelOther, Date: engine.RecurringDate{Month: time.April, Day: 31}},
	}
}

func decode(t *testing.T, data []byte) *ical.Calendar {
	t.Helper()
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	require.NoError(t, err)
	return cal
}

func TestEncode_OneEventPerOccurrence(t *testing.T) {
	start := engine.CalendarDate{Year: 2024, Month: time.January, Day: 1}
	end := engine.CalendarDate{Year: 2024, Month: time.December, Day: 31}
	events := engine.Expand(start, end, sampleDates(), engine.ExpandConfig{})

	data, err := ics.Encode(events, stamp)
	require.NoError(t, err)

	cal := decode(t, data)
	assert.Equal(t, config.ICalProdid, cal.Props.Get(ical.PropProductID).Value)
	assert.Equal(t, config.ICalCalName, cal.Props.Get(config.PropXWRCalName).Value)

	vevents := cal.Events()
	require.Len(t, vevents, events.Count())

	var got []string
	uids := map[string]bool{}
	for _, ev := range vevents {
		summary, err := ev.Props.Text(ical.PropSummary)
		require.NoError(t, err)
		dtstart := ev.Props.Get(ical.PropDateTimeStart)
		require.NotNil(t, dtstart)
		assert.Equal(t, "DATE", dtstart.Params.Get(ical.ParamValue), "Events are all-day")

		uid := ev.Props.Get(ical.PropUID).Value
		assert.False(t, uids[uid], "UIDs must be unique")
		uids[uid] = true

		got = append(got, dtstart.Value+" "+summary)
	}

	assert.Equal(t, []string{
		"20240229 Leap Baby — Birthday",
		"20240314 Jane Doe — Anniversary",
		"20240314 Jane Doe — Birthday",
		"20241231 New Year — Name day",
	}, got, "Events follow date order then the within-day order")
}

func TestEncode_StableUIDs(t *testing.T) {
	start := engine.CalendarDate{Year: 2024, Month: time.March, Day: 1}
	end := engine.CalendarDate{Year: 2024, Month: time.March, Day: 31}
	events := engine.Expand(start, end, sampleDates(), engine.ExpandConfig{})

	a, err := ics.Encode(events, stamp)
	require.NoError(t, err)
	b, err := ics.Encode(events, stamp.Add(time.Hour))
	require.NoError(t, err)

	uidsOf := func(data []byte) []string {
		var out []string
		for _, ev := range decode(t, data).Events() {
			out = append(out, ev.Props.Get(ical.PropUID).Value)
		}
		return out
	}
	assert.Equal(t, uidsOf(a), uidsOf(b), "UIDs do not depend on the stamp")
	for _, uid := range uidsOf(a) {
		assert.True(t, strings.HasSuffix(uid, "@"+config.ICalDomain))
	}
}

func TestEncode_Empty(t *testing.T) {
	data, err := ics.Encode(engine.EventsByDate{}, stamp)
	require.NoError(t, err)
	assert.Equal(t, config.StubVCalendar, string(data))

	data, err = ics.EncodeFeed(nil, nil, stamp)
	require.NoError(t, err)
	assert.Equal(t, config.StubVCalendar, string(data))
}

// TestEncodeFeed_MatchesExpand checks that a client expanding the yearly
// rules sees exactly the occurrences the engine computes.
func TestEncodeFeed_MatchesExpand(t *testing.T) {
	dates := sampleDates()
	data, err := ics.EncodeFeed(dates, nil, stamp)
	require.NoError(t, err)

	vevents := decode(t, data).Events()
	require.Len(t, vevents, len(dates)-1, "Impossible month/day is not exported")

	start := engine.CalendarDate{Year: 2023, Month: time.January, Day: 1}
	end := engine.CalendarDate{Year: 2028, Month: time.December, Day: 31}

	fromRules := map[engine.CalendarDate]int{}
	for _, ev := range vevents {
		set, err := ev.RecurrenceSet(time.UTC)
		require.NoError(t, err)
		require.NotNil(t, set)
		for _, occ := range set.Between(start.Time(time.UTC), end.Time(time.UTC), true) {
			fromRules[engine.DateOf(occ)]++
		}
	}

	fromEngine := map[engine.CalendarDate]int{}
	for d, evs := range engine.Expand(start, end, dates, engine.ExpandConfig{}) {
		fromEngine[d] = len(evs)
	}

	assert.Equal(t, fromEngine, fromRules)
	assert.Equal(t, 1, fromRules[engine.CalendarDate{Year: 2024, Month: time.February, Day: 29}])
	assert.Zero(t, fromRules[engine.CalendarDate{Year: 2023, Month: time.March, Day: 1}], "No leap day shift in common years")
}

func TestEncodeFeed_StartsOnKnownYear(t *testing.T) {
	data, err := ics.EncodeFeed(sampleDates()[:2], nil, stamp)
	require.NoError(t, err)

	vevents := decode(t, data).Events()
	require.Len(t, vevents, 2)
	assert.Equal(t, "20000229", vevents[0].Props.Get(ical.PropDateTimeStart).Value, "Year-less leap day anchors on a leap year")
	assert.Equal(t, "19900314", vevents[1].Props.Get(ical.PropDateTimeStart).Value)

	rule, err := vevents[1].Props.RecurrenceRule()
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, []int{3}, rule.Bymonth)
	assert.Equal(t, []int{14}, rule.Bymonthday)
}

func TestEncodeFeed_CustomTitle(t *testing.T) {
	title := func(ev engine.EventInfo) string { return "🎂 " + ev.Contact.DisplayName }

	data, err := ics.EncodeFeed(sampleDates()[:1], title, stamp)
	require.NoError(t, err)

	summary, err := decode(t, data).Events()[0].Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "🎂 Leap Baby", summary)
}
