package shared

import (
	"errors"
	"strings"
	"time"
	_ "time/tzdata"
)

// ErrInvalidDate indicates an unparsable calendar date.
var ErrInvalidDate = errors.New("date must be YYYY-MM-DD or DD-MM-YYYY")

// ErrInvalidPeriod indicates a range whose start is after its end.
var ErrInvalidPeriod = errors.New("period start must not be after its end")

var dayLayouts = []string{"2006-01-02", "02-01-2006", "02/01/2006"}

// ParseDay parses s as a calendar day and returns it as UTC midnight.
// Timestamps are first moved into loc so that a late-evening entry is filed
// under the shop's local day. A blank s means today in loc.
func ParseDay(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return Day(now, loc), nil
	}
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t, loc), nil
	}
	return time.Time{}, ErrInvalidDate
}

// Day truncates t to its calendar day in loc, expressed as UTC midnight.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Period is an inclusive range of calendar days. Nil bounds are open.
type Period struct {
	From *time.Time
	To   *time.Time
}

// ParsePeriod parses optional start and end days.
func ParsePeriod(from, to string, loc *time.Location) (Period, error) {
	var p Period
	if strings.TrimSpace(from) != "" {
		t, err := ParseDay(from, loc, time.Time{})
		if err != nil {
			return Period{}, err
		}
		p.From = &t
	}
	if strings.TrimSpace(to) != "" {
		t, err := ParseDay(to, loc, time.Time{})
		if err != nil {
			return Period{}, err
		}
		p.To = &t
	}
	if p.From != nil && p.To != nil && p.From.After(*p.To) {
		return Period{}, ErrInvalidPeriod
	}
	return p, nil
}

// Contains reports whether day falls inside p.
func (p Period) Contains(day time.Time) bool {
	if p.From != nil && day.Before(*p.From) {
		return false
	}
	if p.To != nil && day.After(*p.To) {
		return false
	}
	return true
}
