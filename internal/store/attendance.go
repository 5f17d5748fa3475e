package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shiftlog/internal/logging"
	"shiftlog/internal/model"
	"shiftlog/internal/shift"
)

var (
	ErrPersist      = errors.New("persist attendance records")
	ErrUserExists   = errors.New("user already exists and is active")
	ErrUserInactive = errors.New("user is inactive")

	errNoChange = errors.New("no change")
)

// Persister writes the full record collection to durable storage.
type Persister interface {
	Save(ctx context.Context, records []*model.AttendanceRecord) error
}

// Loader reads a previously saved collection. found is false when the source
// holds nothing yet.
type Loader interface {
	Load(ctx context.Context) (records []*model.AttendanceRecord, found bool, err error)
}

// Filter narrows List results; empty fields match everything.
type Filter struct {
	User string
	Date string
}

func (f Filter) match(r *model.AttendanceRecord) bool {
	return (f.User == "" || r.User == f.User) && (f.Date == "" || r.ShiftDate == f.Date)
}

// AttendanceStore owns the in-memory record collection. Every mutation runs
// read-modify-persist under one lock against a copy of the collection, which
// only replaces the live collection once the primary persister succeeded.
type AttendanceStore struct {
	mu      sync.RWMutex
	records []*model.AttendanceRecord

	persist Persister
	mirrors []Persister
	loc     *time.Location
	log     logging.Logger
}

// NewAttendanceStore creates an empty store. Mirror failures are logged, not returned.
func NewAttendanceStore(persist Persister, loc *time.Location, log logging.Logger, mirrors ...Persister) *AttendanceStore {
	return &AttendanceStore{
		persist: persist,
		mirrors: mirrors,
		loc:     loc,
		log:     log.With("component", "attendance_store"),
	}
}

// Load fills the store from the first loader that has data. When that is not
// the first loader, the result is written back through the persisters.
func (s *AttendanceStore) Load(ctx context.Context, loaders ...Loader) error {
	for i, l := range loaders {
		recs, found, err := l.Load(ctx)
		if err != nil {
			return fmt.Errorf("load attendance records: %w", err)
		}
		if !found {
			continue
		}
		for _, r := range recs {
			r.ID = uuid.NewString()
			shift.Recompute(r, s.loc)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if i > 0 {
			if err := s.save(ctx, recs); err != nil {
				return err
			}
		}
		s.records = recs
		s.log.Info(ctx, "records loaded", "count", len(recs), "source", i)
		return nil
	}
	s.log.Info(ctx, "no saved records, starting empty")
	return nil
}

// StartSession appends a new empty session for user on shiftDate. Several
// sessions per user and day are allowed; the last one is current. A user whose
// records are all inactive gets ErrUserInactive.
func (s *AttendanceStore) StartSession(ctx context.Context, user, shiftDate string) (*model.AttendanceRecord, error) {
	rec := model.NewSession(user, shiftDate)
	if err := validate(rec); err != nil {
		return nil, err
	}
	rec.ID = uuid.NewString()

	err := s.mutate(ctx, func(recs []*model.AttendanceRecord) ([]*model.AttendanceRecord, error) {
		if active, known := userState(recs, rec.User); known && !active {
			return nil, fmt.Errorf("%w: %s", ErrUserInactive, rec.User)
		}
		return append(recs, rec.Clone()), nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// AddUser registers user by appending an empty active session, unless the
// user already has an active record.
func (s *AttendanceStore) AddUser(ctx context.Context, user, shiftDate string) (*model.AttendanceRecord, error) {
	rec := model.NewSession(user, shiftDate)
	if err := validate(rec); err != nil {
		return nil, err
	}
	rec.ID = uuid.NewString()

	err := s.mutate(ctx, func(recs []*model.AttendanceRecord) ([]*model.AttendanceRecord, error) {
		for _, r := range recs {
			if r.User == rec.User && r.Active {
				return nil, fmt.Errorf("%w: %s", ErrUserExists, rec.User)
			}
		}
		return append(recs, rec.Clone()), nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *AttendanceStore) CheckIn(ctx context.Context, id string, at time.Time) (model.Transition, error) {
	ts := shift.Format(at.In(s.loc))
	return s.transition(ctx, id, func(r *model.AttendanceRecord) error { return r.CheckInAt(ts) })
}

func (s *AttendanceStore) StartBreak(ctx context.Context, id string, n int, at time.Time) (model.Transition, error) {
	ts := shift.Format(at.In(s.loc))
	return s.transition(ctx, id, func(r *model.AttendanceRecord) error { return r.StartBreakAt(n, ts) })
}

func (s *AttendanceStore) EndBreak(ctx context.Context, id string, n int, at time.Time) (model.Transition, error) {
	ts := shift.Format(at.In(s.loc))
	return s.transition(ctx, id, func(r *model.AttendanceRecord) error { return r.EndBreakAt(n, ts) })
}

func (s *AttendanceStore) CheckOut(ctx context.Context, id string, at time.Time) (model.Transition, error) {
	ts := shift.Format(at.In(s.loc))
	return s.transition(ctx, id, func(r *model.AttendanceRecord) error { return r.CheckOutAt(ts) })
}

// transition applies a guarded change. A guard violation, or a user with no
// active record, comes back as a rejected Transition and leaves both memory
// and storage untouched.
func (s *AttendanceStore) transition(ctx context.Context, id string, apply func(*model.AttendanceRecord) error) (model.Transition, error) {
	var result model.Transition
	err := s.mutate(ctx, func(recs []*model.AttendanceRecord) ([]*model.AttendanceRecord, error) {
		i := indexOf(recs, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
		}
		rec := recs[i]
		if active, _ := userState(recs, rec.User); !active {
			result = model.Rejected(rec.Clone(), model.ReasonUserInactive)
			return nil, errNoChange
		}
		if err := apply(rec); err != nil {
			var gv *model.GuardViolation
			if errors.As(err, &gv) {
				result = model.Rejected(rec.Clone(), gv.Reason)
				return nil, errNoChange
			}
			return nil, err
		}
		shift.Recompute(rec, s.loc)
		result = model.Accepted(rec.Clone())
		return recs, nil
	})
	if err != nil {
		return model.Transition{}, err
	}
	return result, nil
}

// Update overwrites a record through fn, bypassing the session guards.
// Used by the admin session editor.
func (s *AttendanceStore) Update(ctx context.Context, id string, fn func(*model.AttendanceRecord) error) (*model.AttendanceRecord, error) {
	var out *model.AttendanceRecord
	err := s.mutate(ctx, func(recs []*model.AttendanceRecord) ([]*model.AttendanceRecord, error) {
		i := indexOf(recs, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
		}
		rec := recs[i]
		if err := fn(rec); err != nil {
			return nil, err
		}
		rec.ID = id
		if err := validate(rec); err != nil {
			return nil, err
		}
		shift.Recompute(rec, s.loc)
		out = rec.Clone()
		return recs, nil
	})
	return out, err
}

// UpsertBulk replaces records whose ID is known and appends the rest under
// fresh IDs. Every row is validated and recomputed; one bad row rejects the batch.
func (s *AttendanceStore) UpsertBulk(ctx context.Context, batch []*model.AttendanceRecord) ([]*model.AttendanceRecord, error) {
	var out []*model.AttendanceRecord
	err := s.mutate(ctx, func(recs []*model.AttendanceRecord) ([]*model.AttendanceRecord, error) {
		out = make([]*model.AttendanceRecord, 0, len(batch))
		for n, in := range batch {
			if in == nil {
				return nil, fmt.Errorf("row %d: %w: empty record", n+1, model.ErrInvalidRecord)
			}
			rec := in.Clone()
			if err := validate(rec); err != nil {
				return nil, fmt.Errorf("row %d: %w", n+1, err)
			}
			shift.Recompute(rec, s.loc)

			if i := indexOf(recs, rec.ID); rec.ID != "" && i >= 0 {
				recs[i] = rec
			} else {
				rec.ID = uuid.NewString()
				recs = append(recs, rec)
			}
			out = append(out, rec.Clone())
		}
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Merge adds imported records and drops duplicates on (user, date, check-in),
// keeping the last occurrence so incoming rows win over existing ones.
func (s *AttendanceStore) Merge(ctx context.Context, incoming []*model.AttendanceRecord) (int, error) {
	err := s.mutate(ctx, func(recs []*model.AttendanceRecord) ([]*model.AttendanceRecord, error) {
		for n, in := range incoming {
			if in == nil {
				return nil, fmt.Errorf("row %d: %w: empty record", n+1, model.ErrInvalidRecord)
			}
			rec := in.Clone()
			if err := validate(rec); err != nil {
				return nil, fmt.Errorf("row %d: %w", n+1, err)
			}
			rec.ID = uuid.NewString()
			shift.Recompute(rec, s.loc)
			recs = append(recs, rec)
		}
		return dedupeKeepLast(recs), nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info(ctx, "records merged", "incoming", len(incoming))
	return len(incoming), nil
}

// SetActive flips the active flag on every record of user.
func (s *AttendanceStore) SetActive(ctx context.Context, user string, active bool) (int, error) {
	var n int
	err := s.mutate(ctx, func(recs []*model.AttendanceRecord) ([]*model.AttendanceRecord, error) {
		for _, r := range recs {
			if r.User == user {
				r.Active = active
				n++
			}
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: user %s", model.ErrNotFound, user)
		}
		return recs, nil
	})
	return n, err
}

// DeleteUser removes every record of user.
func (s *AttendanceStore) DeleteUser(ctx context.Context, user string) (int, error) {
	var n int
	err := s.mutate(ctx, func(recs []*model.AttendanceRecord) ([]*model.AttendanceRecord, error) {
		kept := recs[:0]
		for _, r := range recs {
			if r.User == user {
				n++
				continue
			}
			kept = append(kept, r)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: user %s", model.ErrNotFound, user)
		}
		return kept, nil
	})
	return n, err
}

func (s *AttendanceStore) Get(id string) (*model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.records, id); i >= 0 {
		return s.records[i].Clone(), nil
	}
	return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
}

// CurrentSession returns the most recently appended session for user on shiftDate.
func (s *AttendanceStore) CurrentSession(user, shiftDate string) (*model.AttendanceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.records) - 1; i >= 0; i-- {
		if r := s.records[i]; r.User == user && r.ShiftDate == shiftDate {
			return r.Clone(), true
		}
	}
	return nil, false
}

// Sessions returns the sessions of user on shiftDate in the order they were started.
func (s *AttendanceStore) Sessions(user, shiftDate string) []*model.AttendanceRecord {
	return s.List(Filter{User: user, Date: shiftDate})
}

// List returns copies of the matching records. Derived fields are recomputed
// on the copies so rows edited outside the service display correctly; this
// never writes back.
func (s *AttendanceStore) List(f Filter) []*model.AttendanceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.AttendanceRecord, 0, len(s.records))
	for _, r := range s.records {
		if f.match(r) {
			c := r.Clone()
			shift.Recompute(c, s.loc)
			out = append(out, c)
		}
	}
	return out
}

// Users returns every distinct user, sorted.
func (s *AttendanceStore) Users() []string {
	return s.distinct(func(r *model.AttendanceRecord) (string, bool) { return r.User, true })
}

// ActiveUsers returns the users with at least one active record, sorted.
func (s *AttendanceStore) ActiveUsers() []string {
	return s.distinct(func(r *model.AttendanceRecord) (string, bool) { return r.User, r.Active })
}

// Dates returns every distinct shift date, sorted.
func (s *AttendanceStore) Dates() []string {
	return s.distinct(func(r *model.AttendanceRecord) (string, bool) { return r.ShiftDate, true })
}

// IsActive reports whether user has an active record, and whether user has any record.
func (s *AttendanceStore) IsActive(user string) (active, known bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return userState(s.records, user)
}

func userState(recs []*model.AttendanceRecord, user string) (active, known bool) {
	for _, r := range recs {
		if r.User == user {
			known = true
			if r.Active {
				return true, true
			}
		}
	}
	return false, known
}

func (s *AttendanceStore) distinct(key func(*model.AttendanceRecord) (string, bool)) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range s.records {
		k, ok := key(r)
		if !ok {
			continue
		}
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

func (s *AttendanceStore) mutate(ctx context.Context, fn func([]*model.AttendanceRecord) ([]*model.AttendanceRecord, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(cloneAll(s.records))
	if errors.Is(err, errNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.records = next
	return nil
}

// save must be called with mu held.
func (s *AttendanceStore) save(ctx context.Context, recs []*model.AttendanceRecord) error {
	if err := s.persist.Save(ctx, recs); err != nil {
		s.log.Error(ctx, "save failed", "error", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	for _, m := range s.mirrors {
		if err := m.Save(ctx, recs); err != nil {
			s.log.Warn(ctx, "mirror save failed", "error", err)
		}
	}
	return nil
}

func validate(r *model.AttendanceRecord) error {
	r.User = strings.TrimSpace(r.User)
	if r.User == "" {
		return fmt.Errorf("%w: empty user", model.ErrInvalidRecord)
	}
	d, ok := model.NormalizeDate(r.ShiftDate)
	if !ok {
		return fmt.Errorf("%w: invalid date %q", model.ErrInvalidRecord, r.ShiftDate)
	}
	r.ShiftDate = d
	return nil
}

func indexOf(recs []*model.AttendanceRecord, id string) int {
	return slices.IndexFunc(recs, func(r *model.AttendanceRecord) bool { return r.ID == id })
}

func cloneAll(recs []*model.AttendanceRecord) []*model.AttendanceRecord {
	out := make([]*model.AttendanceRecord, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}

type mergeKey struct {
	user, date, checkIn string
}

func dedupeKeepLast(recs []*model.AttendanceRecord) []*model.AttendanceRecord {
	last := make(map[mergeKey]int, len(recs))
	keys := make([]mergeKey, len(recs))
	for i, r := range recs {
		k := mergeKey{user: r.User, date: r.ShiftDate}
		if r.CheckIn != nil {
			k.checkIn = *r.CheckIn
		}
		keys[i] = k
		last[k] = i
	}
	out := make([]*model.AttendanceRecord, 0, len(last))
	for i, r := range recs {
		if last[keys[i]] == i {
			out = append(out, r)
		}
	}
	return out
}
