// Package dates holds calendar-day helpers for the meal plan. A plan day is
// a civil date with no time of day; all arithmetic is done at midnight UTC
// so daylight-saving transitions never shift a day.
package dates

import (
	"fmt"
	"time"
)

// Layout is the wire and storage format for plan dates.
const Layout = "2006-01-02"

// Parse parses a YYYY-MM-DD string into midnight UTC.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Format renders a day as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Today returns the current civil date in loc, as midnight UTC.
func Today(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a day by n calendar days.
func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

// WeekStart returns the Monday on or before day.
func WeekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return AddDays(day, -offset)
}

// Range returns every day from start to end inclusive. Returns nil when
// end is before start.
func Range(start, end time.Time) []time.Time {
	if end.Before(start) {
		return nil
	}
	var days []time.Time
	for d := start; !d.After(end); d = AddDays(d, 1) {
		days = append(days, d)
	}
	return days
}
