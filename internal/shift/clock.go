package shift

import "time"

// dayBoundaryHour is the hour at which a new shift day begins. 04:00 itself
// still belongs to the previous shift.
const dayBoundaryHour = 4

// FixedZone returns the single fixed-offset zone the deployment runs in.
func FixedZone(offsetHours int) *time.Location {
	if offsetHours == 2 {
		return time.FixedZone("EET", 2*60*60)
	}
	return time.FixedZone("", offsetHours*60*60)
}

// CurrentShiftDate returns midnight of the shift day now belongs to.
func CurrentShiftDate(now time.Time) time.Time {
	y, m, d := now.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if now.Hour() < dayBoundaryHour || (now.Hour() == dayBoundaryHour && now.Minute() == 0) {
		date = date.AddDate(0, 0, -1)
	}
	return date
}

// Clock reads wall time in a fixed zone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

func NewClock(loc *time.Location) *Clock {
	return &Clock{loc: loc, now: time.Now}
}

// WithNow returns a copy of the clock that reads time from now.
func (c *Clock) WithNow(now func() time.Time) *Clock {
	return &Clock{loc: c.loc, now: now}
}

func (c *Clock) Location() *time.Location { return c.loc }

func (c *Clock) Now() time.Time { return c.now().In(c.loc) }

// ShiftDate returns the current shift day as YYYY-MM-DD.
func (c *Clock) ShiftDate() string {
	return DateString(CurrentShiftDate(c.Now()))
}
