package models

import "time"

// DateKey is the canonical YYYY-MM-DD form used for store keys and curve rows.
const DateKey = "2006-01-02"

// NormalizeDate strips the time-of-day and timezone from a timestamp, leaving
// midnight UTC of the same calendar day.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayOfWeek returns the weekday with Monday = 0 and Sunday = 6.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// IsMonthEnd reports whether t falls on the last calendar day of its month.
func IsMonthEnd(t time.Time) bool {
	return t.AddDate(0, 0, 1).Month() != t.Month()
}

// unixEpochOrdinal is the proleptic Gregorian ordinal of 1970-01-01.
const unixEpochOrdinal = 719163

// Ordinal returns the proleptic Gregorian ordinal of the date, with
// January 1 of year 1 as day 1.
func Ordinal(t time.Time) int {
	secs := NormalizeDate(t).Unix()
	days := secs / 86400
	if secs < 0 && secs%86400 != 0 {
		days--
	}
	return int(days) + unixEpochOrdinal
}
