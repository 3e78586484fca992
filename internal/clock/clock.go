package clock

import "time"

// Clock provides time-related functions that can be mocked for testing
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using actual system time
type RealClock struct{}

// Now returns the current system time in UTC
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a Clock that always reports the same instant
type Fixed time.Time

// Now returns the fixed instant
func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// MonthStart returns the first instant of t's calendar month in UTC
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in t's calendar month (UTC)
func DaysInMonth(t time.Time) int {
	return MonthStart(t).AddDate(0, 1, -1).Day()
}

// MonthElapsed returns the fraction of t's calendar month that has passed,
// in (0, 1]. The first instant of a month counts as a tiny non-zero fraction
// so callers can divide by it.
func MonthElapsed(t time.Time) float64 {
	start := MonthStart(t)
	total := start.AddDate(0, 1, 0).Sub(start)
	elapsed := t.UTC().Sub(start)
	if elapsed <= 0 {
		elapsed = time.Second
	}
	return float64(elapsed) / float64(total)
}
