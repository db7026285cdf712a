package util

import (
	"fmt"
	"strings"
	"time"
)

// ParseTimestamp reads a stored timestamp. Values carrying an offset are taken
// as is; naive values are UTC, which is also how the sqlite driver reads
// DATETIME columns.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMalformedTimestamp
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return validTimestamp(t)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return validTimestamp(t)
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
}

func validTimestamp(t time.Time) (time.Time, error) {
	if t.IsZero() || t.Year() <= 1 {
		return time.Time{}, ErrMalformedTimestamp
	}
	return t, nil
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// FormatSeconds renders a duration in seconds as HH:MM:SS.
func FormatSeconds(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatClock renders the time of day of a stored timestamp, "-" when absent.
func FormatClock(stored *string) string {
	if stored == nil || *stored == "" {
		return "-"
	}
	t, err := ParseTimestamp(*stored)
	if err != nil {
		return *stored
	}
	return t.In(time.Local).Format(ClockFormat)
}
