package schedule

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// WallClock keeps the wall-clock reading of t and relabels it UTC.
// Shift timestamps are timezone-naive; offsets are dropped, never applied.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// DayBounds returns the first and last microsecond of the calendar day of t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999000, time.UTC)
	return start, end
}

// WeekBounds spans seven calendar days starting at the day of t.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	start, _ := DayBounds(t)
	_, end := DayBounds(start.AddDate(0, 0, 6))
	return start, end
}

func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp accepts ISO-8601 timestamps with or without an offset and
// returns their wall-clock reading.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var firstErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return WallClock(parsed), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
