package vcardstore

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/go-contact-events/internal/config"
	"github.com/tartampluch/go-contact-events/internal/engine"
)

type decodeStats struct{ cards, dates, skipped int }

// Decode reads every vCard of r and returns their labeled dates.
// Malformed cards and unparsable dates are logged and skipped.
func Decode(ctx context.Context, r io.Reader) ([]engine.ContactDate, error) {
	decoder := vcard.NewDecoder(r)
	var stats decodeStats
	var out []engine.ContactDate

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A broken card does not poison the ones after it.
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompStore,
				config.LogKeyError, err)
			stats.skipped++
			continue
		}
		stats.cards++

		dates, skipped := cardDates(card)
		stats.dates += len(dates)
		stats.skipped += skipped
		out = append(out, dates...)
	}

	slog.Info(config.MsgStoreLoaded,
		config.LogKeyComponent, config.CompStore,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, stats.cards),
			slog.Int(config.LogKeyFound, stats.dates),
			slog.Int(config.LogKeySkipped, stats.skipped),
		),
	)
	return out, nil
}

// rawDate is a date field before parsing, with its resolved label.
type rawDate struct {
	label string
	field *vcard.Field
}

// cardDates extracts BDAY, ANNIVERSARY and Apple's grouped X-ABDATE fields.
func cardDates(card vcard.Card) ([]engine.ContactDate, int) {
	var raws []rawDate
	for _, f := range card[vcard.FieldBirthday] {
		raws = append(raws, rawDate{label: config.LabelBirthday, field: f})
	}
	for _, f := range card[vcard.FieldAnniversary] {
		raws = append(raws, rawDate{label: config.LabelAnniversary, field: f})
	}
	for _, f := range card[config.VCardABDate] {
		raws = append(raws, rawDate{label: abLabel(card, f.Group), field: f})
	}
	if len(raws) == 0 {
		return nil, 0
	}

	name := displayName(card)
	ref := engine.ContactRef{ID: contactID(card, name, raws), DisplayName: name}

	var out []engine.ContactDate
	skipped := 0
	for _, raw := range raws {
		if raw.field == nil || raw.field.Value == "" {
			continue
		}
		date, err := parseDate(raw.field.Value, raw.field.Params)
		if err != nil {
			slog.Debug(config.MsgSkippedDate,
				config.LogKeyComponent, config.CompStore,
				config.LogKeyName, name,
				config.LogKeyLabel, raw.label,
				config.LogKeyValue, raw.field.Value)
			skipped++
			continue
		}
		out = append(out, engine.ContactDate{Contact: ref, Label: raw.label, Date: date})
	}
	return out, skipped
}

// displayName prefers FN, then the structured N, then a fallback.
func displayName(card vcard.Card) string {
	if fn := strings.TrimSpace(card.Value(vcard.FieldFormattedName)); fn != "" {
		return fn
	}
	if n := card.Name(); n != nil {
		parts := make([]string, 0, 3)
		for _, p := range []string{n.GivenName, n.AdditionalName, n.FamilyName} {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	return config.FallbackName
}

// contactID returns the vCard UID, or a deterministic hash so IDs stay
// stable across reloads of a file without UIDs.
func contactID(card vcard.Card, name string, raws []rawDate) string {
	if uid := strings.TrimSpace(card.Value(vcard.FieldUID)); uid != "" {
		return uid
	}
	var values []string
	for _, r := range raws {
		if r.field != nil {
			values = append(values, r.label+"="+r.field.Value)
		}
	}
	input := fmt.Sprintf(config.FormatHashInput, name, strings.Join(values, ","), config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash[:config.UIDHashLength])
}

// abLabel resolves the X-ABLABEL sharing group with an X-ABDATE.
func abLabel(card vcard.Card, group string) string {
	if group != "" {
		for _, l := range card[config.VCardABLabel] {
			if l.Group != group {
				continue
			}
			v := strings.TrimSpace(l.Value)
			if strings.HasPrefix(v, config.ABLabelPrefix) && strings.HasSuffix(v, config.ABLabelSuffix) {
				switch strings.TrimSuffix(strings.TrimPrefix(v, config.ABLabelPrefix), config.ABLabelSuffix) {
				case config.ABLabelAnniversary:
					return config.LabelAnniversary
				default:
					return config.LabelOther
				}
			}
			if v != "" {
				return v
			}
		}
	}
	return config.LabelOther
}

// parseDate handles the vCard 3/4 date forms seen in the wild.
// Truncated forms (--MM-DD) and Apple's placeholder year become RecurringDate.
func parseDate(value string, params vcard.Params) (engine.DateValue, error) {
	value = strings.TrimSpace(value)

	formatsWithYear := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}
	for _, f := range formatsWithYear {
		t, err := time.Parse(f, value)
		if err != nil {
			continue
		}
		if omitsYear(params, t.Year()) {
			return engine.RecurringDate{Month: t.Month(), Day: t.Day()}, nil
		}
		return engine.AnchoredDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
	}

	// Parsed against year 0, which is a leap year, so --02-29 is accepted.
	for _, f := range []string{config.DateFormatNoYearD, config.DateFormatNoYearB} {
		if t, err := time.Parse(f, value); err == nil {
			return engine.RecurringDate{Month: t.Month(), Day: t.Day()}, nil
		}
	}

	return nil, errors.New(config.ErrDateParse)
}

// omitsYear reports whether Apple marked year as a placeholder.
func omitsYear(params vcard.Params, year int) bool {
	v := params.Get(config.VCardOmitYear)
	if v == "" {
		return false
	}
	omit, err := strconv.Atoi(v)
	return err == nil && omit == year && year >= config.AppleOmitYearMin
}
