package domain

import (
	"strings"
	"time"
)

var instantFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseInstant parses the timestamp shapes the remote service is known
// to emit. Date-only values parse as local midnight.
func ParseInstant(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, ErrInvalidTimeRange
	}
	for _, f := range instantFormats {
		if t, err := time.ParseInLocation(f, v, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidTimeRange
}

// SameDay reports whether two instants fall on the same calendar day by
// local date components, not instant equality.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
