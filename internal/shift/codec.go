// Package shift holds the time arithmetic of a shift day: 12-hour time strings
// anchored to a shift date, the 4 AM day boundary, and worked/break durations.
package shift

import (
	"strings"
	"time"
)

const timeLayout = "3:04 PM"

// nextDayBefore is the hour below which an AM time belongs to the calendar day
// after the shift date.
const nextDayBefore = 16

// Format renders t as "h:mm AM/PM" without a leading zero, e.g. "4:00 PM".
func Format(t time.Time) string {
	return t.Format(timeLayout)
}

// Parse places a "h:mm AM/PM" string on the calendar date of anchor, in the
// anchor's location. AM times are moved to the following day so that a shift
// running past midnight stays monotonic. ok is false for blank or malformed input.
func Parse(s string, anchor time.Time) (t time.Time, ok bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, false
	}
	tod, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	y, m, d := anchor.Date()
	t = time.Date(y, m, d, tod.Hour(), tod.Minute(), 0, 0, anchor.Location())
	if t.Hour() < nextDayBefore && strings.HasSuffix(s, "AM") {
		t = t.AddDate(0, 0, 1)
	}
	return t, true
}

// ParseDate reads a YYYY-MM-DD shift date as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DateString renders a shift date as YYYY-MM-DD.
func DateString(t time.Time) string {
	return t.Format(time.DateOnly)
}
