package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"shiftlog/internal/logging"
	"shiftlog/internal/model"
	"shiftlog/internal/sheet"
	"shiftlog/internal/shift"
	"shiftlog/internal/store"
)

var ErrInvalidTime = errors.New("invalid time format")

// InvalidTimeError names the session field whose value is not "h:mm AM/PM".
type InvalidTimeError struct {
	Field string
	Value string
}

func (e *InvalidTimeError) Error() string {
	return fmt.Sprintf("%s: %s %q", ErrInvalidTime, e.Field, e.Value)
}

func (e *InvalidTimeError) Unwrap() error { return ErrInvalidTime }

// BreakEdit holds the raw start/end text of one break in a session edit.
type BreakEdit struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SessionEdit replaces the time fields of the latest session of User on Date.
// Blank fields clear the time.
type SessionEdit struct {
	User     string                    `json:"user" validate:"required"`
	Date     string                    `json:"date" validate:"required,datetime=2006-01-02"`
	CheckIn  string                    `json:"check_in"`
	CheckOut string                    `json:"check_out"`
	Breaks   [model.MaxBreaks]BreakEdit `json:"breaks"`
	Active   *bool                     `json:"active"`
}

type timeField struct {
	name string
	raw  string
	dst  func(*model.AttendanceRecord) **string
}

type AdminService struct {
	store *store.AttendanceStore
	clock *shift.Clock
	log   logging.Logger
}

func NewAdminService(st *store.AttendanceStore, clock *shift.Clock, log logging.Logger) *AdminService {
	return &AdminService{store: st, clock: clock, log: log.With("component", "admin_service")}
}

// Records lists the records matching f with derived fields recomputed.
func (s *AdminService) Records(f store.Filter) []*model.AttendanceRecord {
	return s.store.List(f)
}

func (s *AdminService) SaveRecords(ctx context.Context, records []*model.AttendanceRecord) ([]*model.AttendanceRecord, error) {
	out, err := s.store.UpsertBulk(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("save records: %w", err)
	}
	s.log.Info(ctx, "records saved", "count", len(out))
	return out, nil
}

// EditSession validates every non-blank time and overwrites the latest
// session of the user on the given date. Times are stored in canonical form.
func (s *AdminService) EditSession(ctx context.Context, edit SessionEdit) (*model.AttendanceRecord, error) {
	date, ok := model.NormalizeDate(edit.Date)
	if !ok {
		return nil, fmt.Errorf("%w: invalid date %q", model.ErrInvalidRecord, edit.Date)
	}
	anchor, _ := shift.ParseDate(date, s.clock.Location())

	fields := []timeField{
		{"CheckIn", edit.CheckIn, func(r *model.AttendanceRecord) **string { return &r.CheckIn }},
		{"CheckOut", edit.CheckOut, func(r *model.AttendanceRecord) **string { return &r.CheckOut }},
	}
	for i := range edit.Breaks {
		fields = append(fields,
			timeField{fmt.Sprintf("Break%dStart", i+1), edit.Breaks[i].Start, func(r *model.AttendanceRecord) **string { return &r.Breaks[i].Start }},
			timeField{fmt.Sprintf("Break%dEnd", i+1), edit.Breaks[i].End, func(r *model.AttendanceRecord) **string { return &r.Breaks[i].End }},
		)
	}

	values := make([]*string, len(fields))
	for i, f := range fields {
		raw := strings.TrimSpace(f.raw)
		if raw == "" {
			continue
		}
		t, ok := shift.Parse(raw, anchor)
		if !ok {
			return nil, &InvalidTimeError{Field: f.name, Value: raw}
		}
		canonical := shift.Format(t)
		values[i] = &canonical
	}

	cur, ok := s.store.CurrentSession(strings.TrimSpace(edit.User), date)
	if !ok {
		return nil, fmt.Errorf("%w: no session for %s on %s", model.ErrNotFound, edit.User, date)
	}

	rec, err := s.store.Update(ctx, cur.ID, func(r *model.AttendanceRecord) error {
		for i, f := range fields {
			*f.dst(r) = values[i]
		}
		if edit.Active != nil {
			r.Active = *edit.Active
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("edit session: %w", err)
	}
	s.log.Info(ctx, "session edited", "user", rec.User, "date", rec.ShiftDate)
	return rec, nil
}

// AddUser registers user with an empty session on the current shift day.
func (s *AdminService) AddUser(ctx context.Context, user string) (*model.AttendanceRecord, error) {
	rec, err := s.store.AddUser(ctx, user, s.clock.ShiftDate())
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "user added", "user", rec.User)
	return rec, nil
}

// DeactivateUser hides user from the portal but keeps the history.
func (s *AdminService) DeactivateUser(ctx context.Context, user string) (int, error) {
	n, err := s.store.SetActive(ctx, user, false)
	if err != nil {
		return 0, err
	}
	s.log.Info(ctx, "user deactivated", "user", user, "records", n)
	return n, nil
}

// DeleteUser removes user together with every record.
func (s *AdminService) DeleteUser(ctx context.Context, user string) (int, error) {
	n, err := s.store.DeleteUser(ctx, user)
	if err != nil {
		return 0, err
	}
	s.log.Info(ctx, "user deleted", "user", user, "records", n)
	return n, nil
}

func (s *AdminService) Users() []string { return s.store.Users() }

func (s *AdminService) Dates() []string { return s.store.Dates() }

// Export writes the records matching f as a spreadsheet with a header row.
func (s *AdminService) Export(ctx context.Context, w io.Writer, format sheet.Format, f store.Filter) error {
	recs := s.store.List(f)
	if err := sheet.Write(w, format, recs); err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}
	s.log.Info(ctx, "records exported", "format", format, "count", len(recs))
	return nil
}

// Import reads a CSV, XLSX or XLS snapshot and merges it into the store.
// Nothing is merged unless the whole file reconciles.
func (s *AdminService) Import(ctx context.Context, r io.Reader, filename string) (int, error) {
	recs, err := sheet.Read(r, filename)
	if err != nil {
		return 0, err
	}
	n, err := s.store.Merge(ctx, recs)
	if err != nil {
		if errors.Is(err, model.ErrInvalidRecord) {
			return 0, fmt.Errorf("%w: %w", model.ErrImportValidation, err)
		}
		return 0, fmt.Errorf("import: %w", err)
	}
	return n, nil
}
