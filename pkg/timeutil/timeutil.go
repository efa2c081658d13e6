// Package timeutil provides timezone utilities for the Brasília timezone
// (UTC-3). Gain periods (day, week, month) are anchored to Brazilian local
// time because the largest hotel community lives there; all three hotels
// share the same boundaries so cross-hotel comparisons stay fair.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// BrasiliaTZ is the Brasília timezone (UTC-3, no DST).
// Brazil abolished DST in 2019, so this is constant year-round.
var BrasiliaTZ = time.FixedZone("America/Sao_Paulo", -3*60*60)

// Now returns the current time in Brasília timezone.
func Now() time.Time {
	return time.Now().In(BrasiliaTZ)
}

// ToBrasilia converts a time to Brasília timezone.
func ToBrasilia(t time.Time) time.Time {
	return t.In(BrasiliaTZ)
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// Date creates a time in Brasília timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, BrasiliaTZ)
}

// DateTime creates a time in Brasília timezone with the given date and time.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, BrasiliaTZ)
}

// StartOfDay returns the start of the day (00:00:00) in Brasília timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToBrasilia(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, BrasiliaTZ)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in Brasília timezone.
func EndOfDay(t time.Time) time.Time {
	local := ToBrasilia(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, BrasiliaTZ)
}

// StartOfWeek returns the start of the week (Monday 00:00:00) in Brasília timezone.
func StartOfWeek(t time.Time) time.Time {
	local := ToBrasilia(t)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(local.AddDate(0, 0, -daysToSubtract))
}

// EndOfWeek returns the end of the week (Sunday 23:59:59) in Brasília timezone.
func EndOfWeek(t time.Time) time.Time {
	start := StartOfWeek(t)
	return EndOfDay(start.AddDate(0, 0, 6))
}

// StartOfMonth returns the start of the month in Brasília timezone.
func StartOfMonth(t time.Time) time.Time {
	local := ToBrasilia(t)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, BrasiliaTZ)
}

// EndOfMonth returns the end of the month in Brasília timezone.
func EndOfMonth(t time.Time) time.Time {
	start := StartOfMonth(t)
	return EndOfDay(start.AddDate(0, 1, -1))
}

// IsToday checks if the given time is today in Brasília timezone.
func IsToday(t time.Time) bool {
	now := Now()
	local := ToBrasilia(t)
	return local.Year() == now.Year() &&
		local.Month() == now.Month() &&
		local.Day() == now.Day()
}

// IsSameDay checks if two times are on the same day in Brasília timezone.
func IsSameDay(t1, t2 time.Time) bool {
	a1, a2 := ToBrasilia(t1), ToBrasilia(t2)
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// DaysBetween calculates the number of days between two times.
func DaysBetween(t1, t2 time.Time) int {
	a1 := StartOfDay(t1)
	a2 := StartOfDay(t2)
	duration := a2.Sub(a1)
	days := int(duration.Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
)

// FormatBrasilia formats a time in Brasília timezone with the given layout.
func FormatBrasilia(t time.Time, layout string) string {
	return ToBrasilia(t).Format(layout)
}

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in Brasília timezone.
func FormatDateStr(t time.Time) string {
	return FormatBrasilia(t, FormatDate)
}

// ParseBrasilia parses a time string in Brasília timezone.
func ParseBrasilia(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, BrasiliaTZ)
}

// ParseDateBrasilia parses a date string (YYYY-MM-DD) in Brasília timezone.
func ParseDateBrasilia(value string) (time.Time, error) {
	return ParseBrasilia(FormatDate, value)
}
