package engine

import "context"

// ContactRef identifies the contact a date or event belongs to.
type ContactRef struct {
	// ID is the stable identifier assigned by the store.
	ID string `json:"id"`
	// DisplayName is the name shown to the user.
	DisplayName string `json:"name"`
}

// ContactDate is one labeled date of one contact, as read from the store.
type ContactDate struct {
	Contact ContactRef
	// Label is a well-known label (config.LabelBirthday, ...) or a custom string.
	Label string
	Date  DateValue
}

// EventInfo is one occurrence of a contact date on a concrete day.
// It is built fresh for every query and never modified afterwards.
type EventInfo struct {
	Date    CalendarDate `json:"date"`
	Title   string       `json:"title"`
	Label   string       `json:"label"`
	Contact ContactRef   `json:"contact"`
	// Source is the date as stored, including its year when known.
	// It serializes as "YYYY-MM-DD" or, without a year, "--MM-DD".
	Source DateValue `json:"source,omitempty"`
}

// Years returns how many years separate the occurrence from the stored year.
// ok is false for year-less dates.
func (e EventInfo) Years() (years int, ok bool) {
	a, isAnchored := e.Source.(AnchoredDate)
	if !isAnchored {
		return 0, false
	}
	return e.Date.Year - a.Year, true
}

// EventsByDate maps a day to the events on that day.
// Days without events are absent.
type EventsByDate map[CalendarDate][]EventInfo

// Count returns the total number of events across all days.
func (e EventsByDate) Count() int {
	n := 0
	for _, evs := range e {
		n += len(evs)
	}
	return n
}

// Dates returns the keys in ascending order.
func (e EventsByDate) Dates() []CalendarDate {
	out := make([]CalendarDate, 0, len(e))
	for d := range e {
		out = append(out, d)
	}
	sortDates(out)
	return out
}

// AccessStatus is the store's authorization state.
type AccessStatus int

const (
	AccessNotDetermined AccessStatus = iota
	AccessGranted
	AccessDenied
)

func (s AccessStatus) String() string {
	switch s {
	case AccessGranted:
		return "granted"
	case AccessDenied:
		return "denied"
	default:
		return "not_determined"
	}
}

// ContactStore is the contact backend queried by the core.
// Implementations must be safe for concurrent use.
type ContactStore interface {
	// AuthorizationStatus returns the live authorization state.
	AuthorizationStatus(ctx context.Context) AccessStatus
	// RequestAuthorization asks the user for access. It may block on user input.
	RequestAuthorization(ctx context.Context) (bool, error)
	// ContactDates enumerates every labeled date of every contact.
	ContactDates(ctx context.Context) ([]ContactDate, error)
}
