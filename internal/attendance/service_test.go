package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/identity"
)

type fakeRepo struct {
	byCodeDay map[string]*Event
	inserted  []Event
	insertErr error
}

func dayKey(code string, day time.Time) string {
	return code + "|" + day.Format("2006-01-02")
}

func (f *fakeRepo) FindByCodeAndDay(_ context.Context, code string, day time.Time) (*Event, error) {
	return f.byCodeDay[dayKey(code, day)], nil
}

func (f *fakeRepo) Insert(_ context.Context, evt Event) (Event, error) {
	if f.insertErr != nil {
		return Event{}, f.insertErr
	}
	evt.ID = "evt-1"
	f.inserted = append(f.inserted, evt)
	if f.byCodeDay == nil {
		f.byCodeDay = map[string]*Event{}
	}
	f.byCodeDay[dayKey(evt.StudentCode, evt.Day)] = &evt
	return evt, nil
}

func (f *fakeRepo) ListByCode(context.Context, string) ([]Event, error)    { return nil, nil }
func (f *fakeRepo) List(context.Context, ListFilter) ([]Event, int, error) { return nil, 0, nil }
func (f *fakeRepo) Delete(context.Context, string) (bool, error)          { return false, nil }
func (f *fakeRepo) CountOnDay(context.Context, time.Time, string) (int, error) {
	return 0, nil
}
func (f *fakeRepo) Recent(context.Context, int) ([]Event, error)      { return nil, nil }
func (f *fakeRepo) Trend(context.Context, int) ([]TrendPoint, error)  { return nil, nil }

type fakeUsers struct {
	users map[string]*identity.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*identity.User, error) {
	return f.users[id], nil
}

func (f *fakeUsers) GetByStudentCode(_ context.Context, code string) (*identity.User, error) {
	for _, u := range f.users {
		if u.Code() == code {
			return u, nil
		}
	}
	return nil, nil
}

type fakeLocker struct {
	denied bool
	keys   []string
}

func (f *fakeLocker) TryLock(_ context.Context, key string) (func(), bool) {
	f.keys = append(f.keys, key)
	if f.denied {
		return func() {}, false
	}
	return func() {}, true
}

func strPtr(s string) *string { return &s }

func newTestService(repo *fakeRepo, users *fakeUsers, locks *fakeLocker) *Service {
	s := NewService(repo, users, locks)
	s.now = func() time.Time {
		return time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	}
	return s
}

func studentDirectory() *fakeUsers {
	return &fakeUsers{users: map[string]*identity.User{
		"u1":   {ID: "u1", Name: "Asha Rao", StudentCode: strPtr("ST101"), IsActive: true},
		"u2":   {ID: "u2", Name: "Vikram Nair", StudentCode: strPtr("ST102"), IsActive: true},
		"adm1": {ID: "adm1", Name: "Warden", Role: identity.RoleAdmin, IsActive: true},
		"u3":   {ID: "u3", Name: "Ravi Kumar", IsActive: true},
	}}
}

func TestMarkDefaults(t *testing.T) {
	repo := &fakeRepo{}
	s := newTestService(repo, studentDirectory(), &fakeLocker{})

	evt, err := s.Mark(context.Background(), "u1", MarkParams{StudentCode: "ST101"})
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if evt.Status != StatusPresent {
		t.Errorf("status = %q, want %q", evt.Status, StatusPresent)
	}
	if evt.Method != MethodFace {
		t.Errorf("method = %q, want %q", evt.Method, MethodFace)
	}
	if evt.Location != DefaultLocation {
		t.Errorf("location = %q, want %q", evt.Location, DefaultLocation)
	}
	if evt.TimeOfDay != "09:30 AM" {
		t.Errorf("timeOfDay = %q, want 09:30 AM", evt.TimeOfDay)
	}
	if evt.Day.Format("2006-01-02") != "2025-03-10" {
		t.Errorf("day = %s", evt.Day)
	}
}

func TestMarkDuplicateReturnsExistingRecord(t *testing.T) {
	repo := &fakeRepo{}
	s := newTestService(repo, studentDirectory(), &fakeLocker{})
	ctx := context.Background()

	first, err := s.Mark(ctx, "u1", MarkParams{StudentCode: "ST101"})
	if err != nil {
		t.Fatalf("first Mark: %v", err)
	}

	_, err = s.Mark(ctx, "u1", MarkParams{StudentCode: "ST101"})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("second Mark err = %v, want conflict", err)
	}
	existing, okType := apperrors.Data(err).(*Event)
	if !okType || existing == nil {
		t.Fatalf("conflict should carry the existing event, got %T", apperrors.Data(err))
	}
	if existing.ID != first.ID {
		t.Errorf("attached event id = %q, want %q", existing.ID, first.ID)
	}
	if len(repo.inserted) != 1 {
		t.Errorf("inserted %d events, want 1", len(repo.inserted))
	}
}

func TestMarkSelfServiceOnly(t *testing.T) {
	// Whatever the recognizer claimed, nobody marks on another's behalf:
	// not a fellow student, not an admin, not an account without a code.
	cases := []struct {
		name   string
		caller string
	}{
		{"student for another student", "u1"},
		{"admin for a student", "adm1"},
		{"student without a code", "u3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepo{}
			s := newTestService(repo, studentDirectory(), &fakeLocker{})

			_, err := s.Mark(context.Background(), tc.caller, MarkParams{StudentCode: "ST102"})
			if !errors.Is(err, apperrors.ErrForbidden) {
				t.Fatalf("err = %v, want forbidden", err)
			}
			if len(repo.inserted) != 0 {
				t.Errorf("forbidden mark must not insert, got %d events", len(repo.inserted))
			}
		})
	}
}

func TestMarkUnknownStudent(t *testing.T) {
	s := newTestService(&fakeRepo{}, studentDirectory(), &fakeLocker{})
	_, err := s.Mark(context.Background(), "u1", MarkParams{StudentCode: "ST999"})
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestMarkInvalidMethod(t *testing.T) {
	s := newTestService(&fakeRepo{}, studentDirectory(), &fakeLocker{})
	_, err := s.Mark(context.Background(), "u1", MarkParams{StudentCode: "ST101", Method: "telepathy"})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestMarkLockDenied(t *testing.T) {
	s := newTestService(&fakeRepo{}, studentDirectory(), &fakeLocker{denied: true})
	_, err := s.Mark(context.Background(), "u1", MarkParams{StudentCode: "ST101"})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("err = %v, want conflict while locked", err)
	}
}

func TestMarkUniqueViolationBackstop(t *testing.T) {
	// The constraint fires when a concurrent insert won between the
	// existence check and our insert.
	repo := &fakeRepo{insertErr: &pgconn.PgError{Code: "23505"}}
	s := newTestService(repo, studentDirectory(), &fakeLocker{})

	_, err := s.Mark(context.Background(), "u1", MarkParams{StudentCode: "ST101"})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestComputeStats(t *testing.T) {
	events := []Event{
		{Status: StatusPresent}, {Status: StatusPresent}, {Status: StatusPresent},
		{Status: StatusLate},
	}
	st := computeStats(events)
	if st.TotalDays != 4 || st.Present != 3 || st.Late != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if st.Percentage != 75 {
		t.Errorf("percentage = %v, want 75", st.Percentage)
	}
}
