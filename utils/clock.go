package utils

import "time"

// Clock supplies the current instant. Handlers and background jobs read time through it so
// tests can pin "now".
type Clock func() time.Time

// SystemClock returns the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// FixedClock always returns t.
func FixedClock(t time.Time) Clock { return func() time.Time { return t } }

// DateLayout is the civil date format used for every date key.
const DateLayout = "2006-01-02"

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// LocalDate formats now as a civil date in loc.
func LocalDate(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}
