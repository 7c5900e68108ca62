package datautil

import (
	"fmt"
	"time"
)

// DefaultLookbackDays is the window applied when no start date is given.
const DefaultLookbackDays = 1825

// DateRange is a sanitized start/end pair with start <= end.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// dateLayouts are tried in order when parsing string dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"20060102",
	"Jan 2, 2006",
	"Jan-02-2006",
	"1/2/2006",
	time.RFC3339,
}

// ParseDate converts a date given in any of the supported representations
// (time.Time, string, integer year or unix epoch seconds) into a time.Time.
// Integers up to 3000 are treated as years, anything larger as epoch seconds.
func ParseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case *time.Time:
		if d == nil {
			return time.Time{}, fmt.Errorf("parse date: nil time")
		}
		return *d, nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("parse date: unrecognized date string %q", d)
	case int:
		return dateFromInt(int64(d)), nil
	case int64:
		return dateFromInt(d), nil
	default:
		return time.Time{}, fmt.Errorf("parse date: unsupported type %T", v)
	}
}

func dateFromInt(n int64) time.Time {
	if n <= 3000 {
		return time.Date(int(n), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Unix(n, 0).UTC()
}

// SanitizeDates normalizes heterogeneous start/end inputs into a DateRange.
// A nil (or zero) start defaults to today minus DefaultLookbackDays, a nil
// end defaults to today. Sanitizing an already-canonical pair returns it
// unchanged.
func SanitizeDates(start, end any) (DateRange, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	s, err := sanitizeOne(start, today.AddDate(0, 0, -DefaultLookbackDays))
	if err != nil {
		return DateRange{}, fmt.Errorf("start: %w", err)
	}
	e, err := sanitizeOne(end, today)
	if err != nil {
		return DateRange{}, fmt.Errorf("end: %w", err)
	}
	if s.After(e) {
		return DateRange{}, fmt.Errorf("start %s is after end %s",
			s.Format("2006-01-02"), e.Format("2006-01-02"))
	}
	return DateRange{Start: s, End: e}, nil
}

func sanitizeOne(v any, def time.Time) (time.Time, error) {
	if v == nil {
		return def, nil
	}
	if t, ok := v.(time.Time); ok && t.IsZero() {
		return def, nil
	}
	return ParseDate(v)
}
