package model

import (
	"errors"
	"fmt"
	"strings"
)

// MaxBreaks is the number of break slots a session carries.
const MaxBreaks = 3

type SessionState string

const (
	StateEmpty      SessionState = "empty"
	StateCheckedIn  SessionState = "checked_in"
	StateCheckedOut SessionState = "checked_out"
)

// BreakOpen returns the state of a session whose break n has started but not ended.
func BreakOpen(n int) SessionState { return SessionState(fmt.Sprintf("break%d_open", n)) }

// BreakClosed returns the state of a session whose break n has ended.
func BreakClosed(n int) SessionState { return SessionState(fmt.Sprintf("break%d_closed", n)) }

var (
	ErrNotFound         = errors.New("record not found")
	ErrGuardViolation   = errors.New("transition rejected")
	ErrImportValidation = errors.New("import validation failed")
	ErrInvalidRecord    = errors.New("invalid record")
)

// Rejection codes reported by the guarded transitions.
const (
	ReasonAlreadyCheckedIn  = "already_checked_in"
	ReasonNotCheckedIn      = "not_checked_in"
	ReasonCheckedOut        = "checked_out"
	ReasonInvalidBreak      = "invalid_break"
	ReasonBreakStarted      = "break_started"
	ReasonPreviousBreakOpen = "previous_break_open"
	ReasonBreakNotStarted   = "break_not_started"
	ReasonBreakEnded        = "break_ended"
	ReasonBreakOpen         = "break_open"
	ReasonUserInactive      = "user_inactive"
)

// GuardViolation reports an operation attempted out of state-machine order.
type GuardViolation struct {
	Reason string
}

func (e *GuardViolation) Error() string { return "transition rejected: " + e.Reason }

func (e *GuardViolation) Is(target error) bool { return target == ErrGuardViolation }

// BreakRecord is one start/end pair. Times are "h:mm AM/PM" strings; nil means absent.
type BreakRecord struct {
	Start *string `bson:"start,omitempty" json:"start"`
	End   *string `bson:"end,omitempty" json:"end"`
}

// AttendanceRecord is one check-in session of a user on a shift day.
// TotalHours and BreakDuration are derived and recomputed on every mutation.
type AttendanceRecord struct {
	ID            string                 `bson:"-" json:"id"`
	User          string                 `bson:"user" json:"user"`
	ShiftDate     string                 `bson:"date" json:"date"` // YYYY-MM-DD
	CheckIn       *string                `bson:"check_in,omitempty" json:"check_in"`
	CheckOut      *string                `bson:"check_out,omitempty" json:"check_out"`
	Breaks        [MaxBreaks]BreakRecord `bson:"breaks" json:"breaks"`
	TotalHours    float64                `bson:"total_hours" json:"total_hours"`
	BreakDuration float64                `bson:"break_duration" json:"break_duration"`
	Active        bool                   `bson:"active" json:"active"`
}

// NewSession returns an empty, active record for user on shiftDate.
func NewSession(user, shiftDate string) *AttendanceRecord {
	return &AttendanceRecord{User: user, ShiftDate: shiftDate, Active: true}
}

// Clone returns a deep copy of the record.
func (r *AttendanceRecord) Clone() *AttendanceRecord {
	c := *r
	c.CheckIn = clonePtr(r.CheckIn)
	c.CheckOut = clonePtr(r.CheckOut)
	for i := range r.Breaks {
		c.Breaks[i].Start = clonePtr(r.Breaks[i].Start)
		c.Breaks[i].End = clonePtr(r.Breaks[i].End)
	}
	return &c
}

// State reports the furthest point the session has reached.
func (r *AttendanceRecord) State() SessionState {
	if r.CheckOut != nil {
		return StateCheckedOut
	}
	for i := MaxBreaks - 1; i >= 0; i-- {
		b := r.Breaks[i]
		if b.End != nil {
			return BreakClosed(i + 1)
		}
		if b.Start != nil {
			return BreakOpen(i + 1)
		}
	}
	if r.CheckIn != nil {
		return StateCheckedIn
	}
	return StateEmpty
}

// CheckInAt stamps the check-in time.
func (r *AttendanceRecord) CheckInAt(ts string) error {
	if r.CheckIn != nil {
		return &GuardViolation{Reason: ReasonAlreadyCheckedIn}
	}
	r.CheckIn = &ts
	return nil
}

// StartBreakAt opens break n (1-based).
func (r *AttendanceRecord) StartBreakAt(n int, ts string) error {
	if n < 1 || n > MaxBreaks {
		return &GuardViolation{Reason: ReasonInvalidBreak}
	}
	if r.CheckIn == nil {
		return &GuardViolation{Reason: ReasonNotCheckedIn}
	}
	if r.CheckOut != nil {
		return &GuardViolation{Reason: ReasonCheckedOut}
	}
	b := &r.Breaks[n-1]
	if b.Start != nil {
		return &GuardViolation{Reason: ReasonBreakStarted}
	}
	if n > 1 && r.Breaks[n-2].End == nil {
		return &GuardViolation{Reason: ReasonPreviousBreakOpen}
	}
	b.Start = &ts
	return nil
}

// EndBreakAt closes break n (1-based).
func (r *AttendanceRecord) EndBreakAt(n int, ts string) error {
	if n < 1 || n > MaxBreaks {
		return &GuardViolation{Reason: ReasonInvalidBreak}
	}
	if r.CheckOut != nil {
		return &GuardViolation{Reason: ReasonCheckedOut}
	}
	b := &r.Breaks[n-1]
	if b.Start == nil {
		return &GuardViolation{Reason: ReasonBreakNotStarted}
	}
	if b.End != nil {
		return &GuardViolation{Reason: ReasonBreakEnded}
	}
	b.End = &ts
	return nil
}

// CheckOutAt stamps the check-out time. Every started break must be closed first.
func (r *AttendanceRecord) CheckOutAt(ts string) error {
	if r.CheckIn == nil {
		return &GuardViolation{Reason: ReasonNotCheckedIn}
	}
	if r.CheckOut != nil {
		return &GuardViolation{Reason: ReasonCheckedOut}
	}
	for _, b := range r.Breaks {
		if b.Start != nil && b.End == nil {
			return &GuardViolation{Reason: ReasonBreakOpen}
		}
	}
	r.CheckOut = &ts
	return nil
}

// Transition is the outcome of a guarded state change.
type Transition struct {
	Accepted bool              `json:"accepted"`
	Reason   string            `json:"reason,omitempty"`
	Record   *AttendanceRecord `json:"record"`
}

// Accepted wraps a record whose transition went through.
func Accepted(rec *AttendanceRecord) Transition {
	return Transition{Accepted: true, Record: rec}
}

// Rejected wraps a record left untouched because of reason.
func Rejected(rec *AttendanceRecord, reason string) Transition {
	return Transition{Reason: reason, Record: rec}
}

// Err returns a *GuardViolation for a rejected transition, nil otherwise.
func (t Transition) Err() error {
	if t.Accepted {
		return nil
	}
	return &GuardViolation{Reason: t.Reason}
}

// OptionalTime turns a blank string into an absent time.
func OptionalTime(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
