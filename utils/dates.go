package utils

import (
	"time"
)

// DayOf truncates t to midnight UTC. All day-granularity state (streaks,
// challenge dates, leaderboard periods) is keyed on these values.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b (both truncated).
func DaysBetween(a, b time.Time) int {
	return int(DayOf(b).Sub(DayOf(a)).Hours() / 24)
}

// StartOfWeek returns the Monday midnight UTC of t's ISO week.
func StartOfWeek(t time.Time) time.Time {
	d := DayOf(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDate(0, 0, -offset)
}

// StartOfMonth returns the first-of-month midnight UTC.
func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
