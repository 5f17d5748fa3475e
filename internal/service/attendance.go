package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shiftlog/internal/i18n"
	"shiftlog/internal/logging"
	"shiftlog/internal/model"
	"shiftlog/internal/shift"
	"shiftlog/internal/store"
)

var (
	ErrUserInactive = store.ErrUserInactive
	ErrNoSession    = errors.New("no session for the shift day")
)

// Result is the outcome of a session operation as shown to the user.
type Result struct {
	Accepted bool                    `json:"accepted"`
	Reason   string                  `json:"reason,omitempty"`
	Message  string                  `json:"message"`
	Record   *model.AttendanceRecord `json:"record"`
}

// Day is a user's view of the current shift day.
type Day struct {
	User     string                    `json:"user"`
	Date     string                    `json:"date"`
	Current  *model.AttendanceRecord   `json:"current"`
	Sessions []*model.AttendanceRecord `json:"sessions"`
}

type AttendanceService struct {
	store    *store.AttendanceStore
	clock    *shift.Clock
	notifier Notifier
	log      logging.Logger
}

// NewAttendanceService wires the user-facing session flow. A nil notifier disables notifications.
func NewAttendanceService(st *store.AttendanceStore, clock *shift.Clock, notifier Notifier, log logging.Logger) *AttendanceService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &AttendanceService{
		store:    st,
		clock:    clock,
		notifier: notifier,
		log:      log.With("component", "attendance_service"),
	}
}

func (s *AttendanceService) ActiveUsers() []string {
	return s.store.ActiveUsers()
}

// StartSession opens a new session for user on the current shift day.
// Users without any record are let through; deactivated users are not.
func (s *AttendanceService) StartSession(ctx context.Context, user string) (*Result, error) {
	user = strings.TrimSpace(user)
	rec, err := s.store.StartSession(ctx, user, s.clock.ShiftDate())
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	s.log.Info(ctx, "session started", "user", user, "date", rec.ShiftDate, "id", rec.ID)
	return &Result{
		Accepted: true,
		Message:  i18n.T(ctx, "attendance.session_started"),
		Record:   rec,
	}, nil
}

// CurrentSession returns the user's sessions on the current shift day, the
// last one being current.
func (s *AttendanceService) CurrentSession(user string) (*Day, error) {
	date := s.clock.ShiftDate()
	if active, known := s.store.IsActive(user); known && !active {
		return nil, fmt.Errorf("%w: %s", ErrUserInactive, user)
	}
	cur, ok := s.store.CurrentSession(user, date)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrNoSession, user, date)
	}
	return &Day{User: user, Date: date, Current: cur, Sessions: s.store.Sessions(user, date)}, nil
}

func (s *AttendanceService) CheckIn(ctx context.Context, id string) (*Result, error) {
	return s.apply(ctx, id, 0, EventCheckedIn, s.store.CheckIn)
}

func (s *AttendanceService) StartBreak(ctx context.Context, id string, n int) (*Result, error) {
	return s.apply(ctx, id, n, EventBreakStarted, withBreak(s.store.StartBreak, n))
}

func (s *AttendanceService) EndBreak(ctx context.Context, id string, n int) (*Result, error) {
	return s.apply(ctx, id, n, EventBreakEnded, withBreak(s.store.EndBreak, n))
}

func (s *AttendanceService) CheckOut(ctx context.Context, id string) (*Result, error) {
	return s.apply(ctx, id, 0, EventCheckedOut, s.store.CheckOut)
}

type transitionFunc func(ctx context.Context, id string, at time.Time) (model.Transition, error)

func withBreak(fn func(context.Context, string, int, time.Time) (model.Transition, error), n int) transitionFunc {
	return func(ctx context.Context, id string, at time.Time) (model.Transition, error) {
		return fn(ctx, id, n, at)
	}
}

func (s *AttendanceService) apply(ctx context.Context, id string, n int, event Event, fn transitionFunc) (*Result, error) {
	tr, err := fn(ctx, id, s.clock.Now())
	if errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", event, err)
	}
	if !tr.Accepted {
		s.log.Debug(ctx, "transition rejected", "event", event, "user", tr.Record.User, "reason", tr.Reason)
		return s.rejected(ctx, tr), nil
	}

	data := eventData(tr.Record, event, n)
	s.notifier.Notify(ctx, event, tr.Record, data)
	s.log.Info(ctx, "transition accepted", "event", event, "user", tr.Record.User, "at", data["Time"])
	return &Result{
		Accepted: true,
		Message:  i18n.T(ctx, "attendance."+string(event), data),
		Record:   tr.Record,
	}, nil
}

func (s *AttendanceService) rejected(ctx context.Context, tr model.Transition) *Result {
	return &Result{
		Reason:  tr.Reason,
		Message: i18n.T(ctx, "attendance.reject."+tr.Reason),
		Record:  tr.Record,
	}
}

func eventData(rec *model.AttendanceRecord, event Event, n int) map[string]any {
	data := map[string]any{
		"User":  rec.User,
		"Date":  rec.ShiftDate,
		"N":     n,
		"Hours": fmt.Sprintf("%.2f", rec.TotalHours),
		"Break": fmt.Sprintf("%.2f", rec.BreakDuration),
	}
	var at *string
	switch event {
	case EventCheckedIn:
		at = rec.CheckIn
	case EventCheckedOut:
		at = rec.CheckOut
	case EventBreakStarted:
		at = rec.Breaks[n-1].Start
	case EventBreakEnded:
		at = rec.Breaks[n-1].End
	}
	if at != nil {
		data["Time"] = *at
	}
	return data
}
