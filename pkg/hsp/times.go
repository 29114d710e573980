package hsp

import (
	"fmt"
	"time"
)

// HSP encodes every time as a zero padded four digit 24 hour clock string
// with no date or timezone attached, and every date as YYYY-MM-DD.

// ParseClock parses an "HHmm" clock string onto the calendar day of date.
// A zero date gives a clock-only value suitable for comparing times of day.
func ParseClock(clock string, date time.Time) (time.Time, error) {
	t, err := time.ParseInLocation("1504", clock, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse clock %q: %w", clock, err)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

func ParseDate(s string) (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}

	return date, nil
}

// NormalizeAcrossMidnight shifts t forward one day when it falls before the
// origin departure. Services routinely run past midnight and the raw clock
// strings carry no date of their own.
func NormalizeAcrossMidnight(t time.Time, origin time.Time) time.Time {
	if t.Before(origin) {
		return t.AddDate(0, 0, 1)
	}

	return t
}

// MinutesLate is the whole number of minutes actual is past scheduled.
func MinutesLate(actual time.Time, scheduled time.Time) int {
	return int(actual.Sub(scheduled) / time.Minute)
}
