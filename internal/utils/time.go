package utils

import (
	"fmt"
	"math"
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// NowInTimezone returns the current time in the specified timezone.
func NowInTimezone(timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return time.Now().In(loc), nil
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}

// ParseDateInLocation parses a date string (YYYY-MM-DD) in the specified timezone.
func ParseDateInLocation(dateStr string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(constants.DateFormat, dateStr, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// ParseDateTimeInLocation parses "YYYY-MM-DD HH:MM" in the specified timezone.
func ParseDateTimeInLocation(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(constants.DateTimeFormat, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q, expected %s: %w", s, constants.DateTimeFormat, err)
	}
	return t, nil
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays moves t by n calendar days, keeping wall-clock time across DST changes.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	a = StartOfDay(a)
	b = StartOfDay(b.In(a.Location()))
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// MondayIndex numbers weekdays Monday=0 .. Sunday=6.
func MondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// WeekdayFromMondayIndex is the inverse of MondayIndex.
func WeekdayFromMondayIndex(i int) time.Weekday {
	return time.Weekday((mod(i, 7) + 1) % 7)
}

// StartOfWeek returns midnight of the Monday on or before t.
func StartOfWeek(t time.Time) time.Time {
	return AddDays(StartOfDay(t), -MondayIndex(t))
}

// MinutesSinceMidnight returns the wall-clock minutes of t.
func MinutesSinceMidnight(t time.Time) float64 {
	return float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60
}

// SnapMinutes rounds minutes to the nearest grid increment.
func SnapMinutes(minutes float64) int {
	step := float64(constants.SnapMinutes)
	return int(math.Round(minutes/step) * step)
}

// SnapTime rounds t to the nearest grid increment within its day.
func SnapTime(t time.Time) time.Time {
	return StartOfDay(t).Add(time.Duration(SnapMinutes(MinutesSinceMidnight(t))) * time.Minute)
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}
