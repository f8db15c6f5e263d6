package model

import "time"

// orderDateLayouts are the accepted timestamp formats, tried in order.
// The first layout that parses wins.
var orderDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02.01.2006",
}

// ParseOrderDate parses a record timestamp in any of the accepted formats.
// The second return is false when no format matches; callers exclude such
// records from the affected aggregate rather than failing the pass.
func ParseOrderDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// DateKey truncates a timestamp to its UTC calendar date, the key used for
// per-day order counting.
func DateKey(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from a to b (negative when b
// precedes a).
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
