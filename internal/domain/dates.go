package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date wire and storage format.
const DateLayout = "2006-01-02"

// AtNoon pins t to 12:00 on its own calendar day in its own location.
// Schedule dates are calendar days; keeping them at noon means a DST shift
// or a UTC conversion can never move them across a day boundary.
func AtNoon(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, t.Location())
}

// ParseDate parses a YYYY-MM-DD string into a local noon-pinned date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return AtNoon(t), nil
}

// FormatDate renders the calendar date of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DayNumber returns the number of calendar days between 1970-01-01 and the
// calendar date of t. Only the year, month and day of t are consulted.
func DayNumber(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// DaysBetween returns to - from in whole calendar days.
func DaysBetween(from, to time.Time) int {
	return DayNumber(to) - DayNumber(from)
}

// AddDays shifts a date by n calendar days, keeping it pinned at noon.
func AddDays(t time.Time, n int) time.Time {
	return AtNoon(t).AddDate(0, 0, n)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return DayNumber(a) == DayNumber(b)
}
