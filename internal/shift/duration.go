package shift

import (
	"time"

	"shiftlog/internal/model"
)

// Compute derives worked hours and total break hours from the raw fields of
// rec, with every time anchored to shiftDate. Fields that do not parse count
// as absent.
func Compute(rec *model.AttendanceRecord, shiftDate time.Time) (totalHours, breakDuration float64) {
	in, okIn := parseField(rec.CheckIn, shiftDate)
	out, okOut := parseField(rec.CheckOut, shiftDate)
	if okIn && okOut {
		totalHours = out.Sub(in).Hours()
	}

	for _, b := range rec.Breaks {
		start, okStart := parseField(b.Start, shiftDate)
		end, okEnd := parseField(b.End, shiftDate)
		if okStart && okEnd {
			breakDuration += end.Sub(start).Hours()
		}
	}
	return totalHours, breakDuration
}

// Recompute refreshes the derived fields of rec from its own shift date.
// A record whose date does not parse gets zero for both.
func Recompute(rec *model.AttendanceRecord, loc *time.Location) {
	date, ok := ParseDate(rec.ShiftDate, loc)
	if !ok {
		rec.TotalHours, rec.BreakDuration = 0, 0
		return
	}
	rec.TotalHours, rec.BreakDuration = Compute(rec, date)
}

func parseField(s *string, anchor time.Time) (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	return Parse(*s, anchor)
}
