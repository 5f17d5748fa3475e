package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	rec := NewSession("bob", "2024-01-10")
	assert.Equal(t, StateEmpty, rec.State())

	require.NoError(t, rec.CheckInAt("4:00 PM"))
	assert.Equal(t, StateCheckedIn, rec.State())

	require.NoError(t, rec.StartBreakAt(1, "6:00 PM"))
	assert.Equal(t, BreakOpen(1), rec.State())

	require.NoError(t, rec.EndBreakAt(1, "6:30 PM"))
	assert.Equal(t, BreakClosed(1), rec.State())

	require.NoError(t, rec.CheckOutAt("12:00 AM"))
	assert.Equal(t, StateCheckedOut, rec.State())
}

func TestGuards(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(r *AttendanceRecord)
		apply  func(r *AttendanceRecord) error
		reason string
	}{
		{
			name:   "double check-in",
			setup:  func(r *AttendanceRecord) { _ = r.CheckInAt("4:00 PM") },
			apply:  func(r *AttendanceRecord) error { return r.CheckInAt("5:00 PM") },
			reason: ReasonAlreadyCheckedIn,
		},
		{
			name:   "break before check-in",
			setup:  func(r *AttendanceRecord) {},
			apply:  func(r *AttendanceRecord) error { return r.StartBreakAt(1, "5:00 PM") },
			reason: ReasonNotCheckedIn,
		},
		{
			name: "break 2 while break 1 open",
			setup: func(r *AttendanceRecord) {
				_ = r.CheckInAt("4:00 PM")
				_ = r.StartBreakAt(1, "5:00 PM")
			},
			apply:  func(r *AttendanceRecord) error { return r.StartBreakAt(2, "6:00 PM") },
			reason: ReasonPreviousBreakOpen,
		},
		{
			name:   "break 2 without break 1",
			setup:  func(r *AttendanceRecord) { _ = r.CheckInAt("4:00 PM") },
			apply:  func(r *AttendanceRecord) error { return r.StartBreakAt(2, "6:00 PM") },
			reason: ReasonPreviousBreakOpen,
		},
		{
			name:   "break out of range",
			setup:  func(r *AttendanceRecord) { _ = r.CheckInAt("4:00 PM") },
			apply:  func(r *AttendanceRecord) error { return r.StartBreakAt(4, "6:00 PM") },
			reason: ReasonInvalidBreak,
		},
		{
			name:   "end break never started",
			setup:  func(r *AttendanceRecord) { _ = r.CheckInAt("4:00 PM") },
			apply:  func(r *AttendanceRecord) error { return r.EndBreakAt(1, "6:00 PM") },
			reason: ReasonBreakNotStarted,
		},
		{
			name: "check-out during break",
			setup: func(r *AttendanceRecord) {
				_ = r.CheckInAt("4:00 PM")
				_ = r.StartBreakAt(1, "5:00 PM")
			},
			apply:  func(r *AttendanceRecord) error { return r.CheckOutAt("11:00 PM") },
			reason: ReasonBreakOpen,
		},
		{
			name:   "check-out before check-in",
			setup:  func(r *AttendanceRecord) {},
			apply:  func(r *AttendanceRecord) error { return r.CheckOutAt("11:00 PM") },
			reason: ReasonNotCheckedIn,
		},
		{
			name: "break after check-out",
			setup: func(r *AttendanceRecord) {
				_ = r.CheckInAt("4:00 PM")
				_ = r.CheckOutAt("11:00 PM")
			},
			apply:  func(r *AttendanceRecord) error { return r.StartBreakAt(1, "11:30 PM") },
			reason: ReasonCheckedOut,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewSession("alice", "2024-01-10")
			tt.setup(rec)
			before := rec.Clone()

			err := tt.apply(rec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrGuardViolation))

			var gv *GuardViolation
			require.True(t, errors.As(err, &gv))
			assert.Equal(t, tt.reason, gv.Reason)
			assert.Equal(t, before, rec, "rejected transition must not modify the record")
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	rec := NewSession("bob", "2024-01-10")
	require.NoError(t, rec.CheckInAt("4:00 PM"))

	c := rec.Clone()
	*c.CheckIn = "5:00 PM"
	assert.Equal(t, "4:00 PM", *rec.CheckIn)
}

func TestTransitionErr(t *testing.T) {
	rec := NewSession("bob", "2024-01-10")
	assert.NoError(t, Accepted(rec).Err())
	assert.ErrorIs(t, Rejected(rec, ReasonBreakOpen).Err(), ErrGuardViolation)
}
