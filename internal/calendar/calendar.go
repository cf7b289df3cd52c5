// Package calendar provides calendar-date handling in the institution's
// fixed timezone. Dates are compared as YYYY-MM-DD strings so that day-level
// logic never depends on client clocks or DST shifts; conversion to instants
// happens only where a schedule time of day is combined with a date.
package calendar

import (
	"fmt"
	"time"
)

// ict is the institutional timezone (Indochina Time, UTC+7).
var ict = time.FixedZone("ICT", 7*60*60)

// Location returns the institutional timezone used for all schedule math.
func Location() *time.Location {
	return ict
}

// Date is a calendar date in YYYY-MM-DD form. The string representation
// orders lexicographically, so interval containment is plain comparison.
type Date string

// ParseDate validates a YYYY-MM-DD string and returns it as a Date.
func ParseDate(value string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", value, ict)
	if err != nil {
		return "", fmt.Errorf("calendar: invalid date %q: %w", value, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of the instant in the institutional timezone.
func DateOf(t time.Time) Date {
	return Date(t.In(ict).Format("2006-01-02"))
}

// Valid reports whether the date is a well-formed YYYY-MM-DD string.
func (d Date) Valid() bool {
	_, err := time.ParseInLocation("2006-01-02", string(d), ict)
	return err == nil
}

// Midnight returns the start of the day in the institutional timezone.
func (d Date) Midnight() (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", string(d), ict)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: invalid date %q: %w", string(d), err)
	}
	return t, nil
}

// AddDays returns the date moved by the given number of days.
func (d Date) AddDays(days int) Date {
	t, err := d.Midnight()
	if err != nil {
		return d
	}
	return DateOf(t.AddDate(0, 0, days))
}

// Weekday returns the day of week for the date. Invalid dates report Sunday.
func (d Date) Weekday() time.Weekday {
	t, err := d.Midnight()
	if err != nil {
		return time.Sunday
	}
	return t.Weekday()
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool {
	return string(d) < string(other)
}

// After reports whether d falls strictly after other.
func (d Date) After(other Date) bool {
	return string(d) > string(other)
}

// At combines the date with a wall-clock HH:MM string in the institutional
// timezone. This is how a shift start time becomes a comparable instant.
func (d Date) At(hhmm string) (time.Time, error) {
	day, err := d.Midnight()
	if err != nil {
		return time.Time{}, err
	}
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: invalid time of day %q: %w", hhmm, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, ict), nil
}

// Month returns the YYYY-MM prefix of the date.
func (d Date) Month() string {
	if len(d) < 7 {
		return string(d)
	}
	return string(d[:7])
}

// IsSchoolDay reports whether the date is a study day. Holidays are never
// school days. When a class carries an explicit study-day set that set wins;
// otherwise every day except Sunday counts.
func IsSchoolDay(d Date, studyDays []time.Weekday, holidays *Holidays) bool {
	if holidays.Contains(d) {
		return false
	}
	weekday := d.Weekday()
	if len(studyDays) > 0 {
		for _, day := range studyDays {
			if day == weekday {
				return true
			}
		}
		return false
	}
	return weekday != time.Sunday
}
