package util

import "time"

const secondsPerDay = 24 * 60 * 60

// DateLayout is the ISO calendar date layout used for every date on the
// command line, in config files and in reports.
const DateLayout = "2006-01-02"

// Date truncates t to midnight UTC of its calendar day. The wall-clock date
// of t in its own location is kept.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// EpochDay returns the number of days between 1970-01-01 and the calendar
// date of t in the proleptic Gregorian calendar. Dates before the epoch are
// negative.
func EpochDay(t time.Time) int {
	return int(Date(t).Unix() / secondsPerDay)
}

// FromEpochDay is the inverse of EpochDay.
func FromEpochDay(day int) time.Time {
	return time.Unix(int64(day)*secondsPerDay, 0).UTC()
}

// DaysBetween returns EpochDay(to) - EpochDay(from).
func DaysBetween(from, to time.Time) int {
	return EpochDay(to) - EpochDay(from)
}

// IsLeapYear reports whether year has 366 days.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInYear returns 365 or 366.
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

// YearDay0 returns the zero-based day of the year of t (0 for January 1st).
func YearDay0(t time.Time) int {
	return t.YearDay() - 1
}
