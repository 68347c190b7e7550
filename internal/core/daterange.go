package core

import (
	"errors"
	"strings"
	"time"
)

// Range is an inclusive date interval. A zero bound means that side is open.
type Range struct {
	From time.Time
	To   time.Time
}

var ErrUnknownPreset = errors.New("unknown range preset")

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
// Dates without a zone are read as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// EndOfDay forces the time of day to 23:59:59.999, keeping the location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// ResolveRange turns optional query bounds into a Range. A nil result
// means no date filter at all, which is not the same as an empty Range.
// The end bound is inclusive through the end of its day.
func ResolveRange(startDate, endDate string) (*Range, error) {
	startDate, endDate = strings.TrimSpace(startDate), strings.TrimSpace(endDate)
	if startDate == "" && endDate == "" {
		return nil, nil
	}
	var r Range
	if startDate != "" {
		from, err := ParseDate(startDate)
		if err != nil {
			return nil, err
		}
		r.From = from
	}
	if endDate != "" {
		to, err := ParseDate(endDate)
		if err != nil {
			return nil, err
		}
		r.To = EndOfDay(to)
	}
	return &r, nil
}

// PresetRange resolves the named ranges offered by the dashboard pickers,
// ending at now.
func PresetRange(name string, now time.Time) (*Range, error) {
	from := now
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "7d", "1w":
		from = now.AddDate(0, 0, -7)
	case "30d":
		from = now.AddDate(0, 0, -30)
	case "90d":
		from = now.AddDate(0, 0, -90)
	case "1m":
		from = now.AddDate(0, -1, 0)
	case "6m":
		from = now.AddDate(0, -6, 0)
	case "1y":
		from = now.AddDate(-1, 0, 0)
	case "ytd":
		from = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return nil, ErrUnknownPreset
	}
	return &Range{From: from, To: now}, nil
}

// YearRange covers a whole calendar year in UTC.
func YearRange(year int) Range {
	return Range{
		From: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:   EndOfDay(time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)),
	}
}

// Contains reports whether t falls inside r. A nil range contains everything.
func (r *Range) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}
