package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayBounds(t *testing.T) {
	start, end := DayBounds(time.Date(2024, 2, 29, 17, 45, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 999999000, time.UTC), end)
}

func TestWeekBoundsSpansSevenDays(t *testing.T) {
	start, end := WeekBounds(time.Date(2024, 12, 29, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 12, 29, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 4, 23, 59, 59, 999999000, time.UTC), end)
}

func TestParseTimestampStripsOffset(t *testing.T) {
	cases := map[string]time.Time{
		"2024-01-01T09:00:00":       time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		"2024-01-01T09:00:00+02:00": time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		"2024-01-01T09:00:00Z":      time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		"2024-01-01 19:29":          time.Date(2024, 1, 1, 19, 29, 0, 0, time.UTC),
		" 2024-01-01T09:00 ":        time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	for raw, want := range cases {
		got, err := ParseTimestamp(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseTimestamp("yesterday")
	require.Error(t, err)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("2024-13-01")
	require.Error(t, err)
}
