// Package calendar holds the league's monotonic date counter and date
// arithmetic. It is passive: it never schedules or fires anything (§4.1).
package calendar

import (
	"fmt"
	"time"
)

// Calendar is a thin wrapper over a Gregorian date with NFL week lookup.
type Calendar struct {
	current time.Time
}

// New constructs a Calendar at the given (year, month, day), normalized to
// midnight UTC so date arithmetic never has to reason about time-of-day.
func New(year int, month time.Month, day int) (*Calendar, error) {
	if year < 1900 || year > 3000 {
		return nil, fmt.Errorf("calendar: year %d out of range", year)
	}
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("calendar: month %d out of range", month)
	}
	if day < 1 || day > 31 {
		return nil, fmt.Errorf("calendar: day %d out of range", day)
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || d.Month() != month {
		return nil, fmt.Errorf("calendar: %d-%d-%d is not a valid date", year, month, day)
	}
	return &Calendar{current: d}, nil
}

// FromTime constructs a Calendar from an existing time.Time, truncating to
// the date component.
func FromTime(t time.Time) *Calendar {
	y, m, d := t.Date()
	return &Calendar{current: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// CurrentDate returns the calendar's current date.
func (c *Calendar) CurrentDate() time.Time {
	return c.current
}

// AdvanceDays moves the calendar forward n days (n may be 0).
func (c *Calendar) AdvanceDays(n int) time.Time {
	c.current = c.current.AddDate(0, 0, n)
	return c.current
}

// SetDate forcibly resets the calendar, used when reloading persisted
// dynasty state into a fresh in-memory Calendar.
func (c *Calendar) SetDate(t time.Time) {
	c.current = FromTime(t).current
}

// seasonStartThursday returns the first Thursday of September in the given
// year, the anchor for NFL week numbering (§4.1).
func seasonStartThursday(year int) time.Time {
	d := time.Date(year, time.September, 1, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Thursday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// WeekOf returns the 1-based NFL week number for date, anchored at the
// season-start Thursday of the given season's September. Weeks are
// Thursday-to-Wednesday blocks. Dates before the season start return week 0
// (preseason/offseason).
func WeekOf(date time.Time, seasonStart time.Time) int {
	d := FromTime(date).current
	s := FromTime(seasonStart).current
	if d.Before(s) {
		return 0
	}
	days := int(d.Sub(s).Hours() / 24)
	return days/7 + 1
}

// SeasonStartThursday is exported so callers (phase FSM, playoff
// controller) can compute the trade-deadline date without duplicating the
// anchor rule.
func SeasonStartThursday(seasonYear int) time.Time {
	return seasonStartThursday(seasonYear)
}

// Weekday-block helper: the Tuesday of the given 1-based week, used for the
// week-9 trade-deadline rule (§4.4).
func TuesdayOfWeek(seasonYear, week int) time.Time {
	start := seasonStartThursday(seasonYear)
	// Week 1 runs Thursday..Wednesday; its Tuesday is day 5 (0-indexed)
	// of that block. Week N's block begins (N-1)*7 days after start.
	blockStart := start.AddDate(0, 0, (week-1)*7)
	return blockStart.AddDate(0, 0, 5)
}
