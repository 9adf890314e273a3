package attendance

import (
	"context"
	"time"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/identity"
	"hostelhub/internal/store"
)

// Event represents a recorded attendance event. Events are insert-only;
// only admins may hard-delete them.
type Event struct {
	ID          string    `json:"id"`
	UserID      string    `json:"student"`
	StudentCode string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	OccurredAt  time.Time `json:"date"`
	Day         time.Time `json:"-"`
	TimeOfDay   string    `json:"time"`
	Status      string    `json:"status"`
	Method      string    `json:"method"`
	Confidence  *float64  `json:"confidence,omitempty"`
	Location    string    `json:"location"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	MarkedBy    *string   `json:"markedBy,omitempty"`
	Remarks     *string   `json:"remarks,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Attendance statuses and marking methods.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"

	MethodFace   = "face"
	MethodQR     = "qr"
	MethodManual = "manual"

	DefaultLocation = "Main Entrance"
)

// Repo is the storage surface the service needs.
type Repo interface {
	FindByCodeAndDay(ctx context.Context, code string, day time.Time) (*Event, error)
	Insert(ctx context.Context, evt Event) (Event, error)
	ListByCode(ctx context.Context, code string) ([]Event, error)
	List(ctx context.Context, f ListFilter) ([]Event, int, error)
	Delete(ctx context.Context, id string) (bool, error)
	CountOnDay(ctx context.Context, day time.Time, status string) (int, error)
	Recent(ctx context.Context, limit int) ([]Event, error)
	Trend(ctx context.Context, days int) ([]TrendPoint, error)
}

// UserDirectory resolves identities; implemented by identity.Repository.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*identity.User, error)
	GetByStudentCode(ctx context.Context, code string) (*identity.User, error)
}

// Locker serializes marking per (student, day); implemented by store.Locker.
type Locker interface {
	TryLock(ctx context.Context, key string) (func(), bool)
}

// Service coordinates attendance marking and its invariants.
type Service struct {
	repo  Repo
	users UserDirectory
	locks Locker
	now   func() time.Time
}

// NewService creates a service backed by a repository and a user directory.
func NewService(repo Repo, users UserDirectory, locks Locker) *Service {
	return &Service{repo: repo, users: users, locks: locks, now: time.Now}
}

// MarkParams is the typed mark-attendance payload. Method and confidence are
// client-relayed from the recognition flow and recorded as-is; they are never
// part of the authorization decision.
type MarkParams struct {
	StudentCode string
	Method      string
	Confidence  *float64
	ImageURL    string
	Location    string
	Remarks     string
}

// Mark records today's attendance for a student. The caller may only mark
// their own record; at most one event exists per student per calendar day.
func (s *Service) Mark(ctx context.Context, callerID string, p MarkParams) (Event, error) {
	if p.StudentCode == "" {
		return Event{}, apperrors.Validation("studentId is required")
	}
	if p.Method == "" {
		p.Method = MethodFace
	}
	if p.Method != MethodFace && p.Method != MethodQR && p.Method != MethodManual {
		return Event{}, apperrors.Validation("method must be face, qr or manual")
	}
	if p.Confidence != nil && (*p.Confidence < 0 || *p.Confidence > 100) {
		return Event{}, apperrors.Validation("confidence must be between 0 and 100")
	}

	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return Event{}, err
	}
	if caller == nil {
		return Event{}, apperrors.NotFound("user not found")
	}

	target, err := s.users.GetByStudentCode(ctx, p.StudentCode)
	if err != nil {
		return Event{}, err
	}
	if target == nil {
		return Event{}, apperrors.NotFound("student not found")
	}

	// The recognition result arrives via the client, so this is the sole
	// trust boundary: whatever the recognizer claimed, a caller may only
	// confirm their own attendance.
	if caller.Code() != p.StudentCode {
		return Event{}, apperrors.Forbidden("you can only mark your own attendance")
	}

	now := s.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	release, ok := s.locks.TryLock(ctx, "attendance:"+p.StudentCode+":"+day.Format("2006-01-02"))
	if !ok {
		return Event{}, apperrors.Conflict("attendance marking already in progress")
	}
	defer release()

	if existing, err := s.repo.FindByCodeAndDay(ctx, p.StudentCode, day); err != nil {
		return Event{}, err
	} else if existing != nil {
		return Event{}, apperrors.WithData(apperrors.ErrConflict, "attendance already marked for today", existing)
	}

	evt := Event{
		UserID:      target.ID,
		StudentCode: p.StudentCode,
		StudentName: target.Name,
		OccurredAt:  now,
		Day:         day,
		TimeOfDay:   now.Format("03:04 PM"),
		Status:      StatusPresent,
		Method:      p.Method,
		Confidence:  p.Confidence,
		Location:    p.Location,
		MarkedBy:    &caller.ID,
	}
	if evt.Location == "" {
		evt.Location = DefaultLocation
	}
	if p.ImageURL != "" {
		evt.ImageURL = &p.ImageURL
	}
	if p.Remarks != "" {
		evt.Remarks = &p.Remarks
	}

	created, err := s.repo.Insert(ctx, evt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			existing, ferr := s.repo.FindByCodeAndDay(ctx, p.StudentCode, day)
			if ferr == nil && existing != nil {
				return Event{}, apperrors.WithData(apperrors.ErrConflict, "attendance already marked for today", existing)
			}
			return Event{}, apperrors.Conflict("attendance already marked for today")
		}
		return Event{}, err
	}
	return created, nil
}

// Stats summarizes a student's attendance history.
type Stats struct {
	TotalDays  int     `json:"totalDays"`
	Present    int     `json:"presentDays"`
	Absent     int     `json:"absentDays"`
	Late       int     `json:"lateDays"`
	Percentage float64 `json:"attendancePercentage"`
}

// HistoryForCode returns a student's events plus computed statistics.
func (s *Service) HistoryForCode(ctx context.Context, code string) ([]Event, Stats, error) {
	events, err := s.repo.ListByCode(ctx, code)
	if err != nil {
		return nil, Stats{}, err
	}
	return events, computeStats(events), nil
}

// HistoryForUser resolves the caller and returns their own history.
func (s *Service) HistoryForUser(ctx context.Context, userID string) ([]Event, Stats, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, Stats{}, err
	}
	if user == nil {
		return nil, Stats{}, apperrors.NotFound("user not found")
	}
	if user.Code() == "" {
		return nil, Stats{}, apperrors.Validation("no student ID associated with this account")
	}
	return s.HistoryForCode(ctx, user.Code())
}

// List returns events matching the filter plus the total count (admin).
func (s *Service) List(ctx context.Context, f ListFilter) ([]Event, int, error) {
	return s.repo.List(ctx, f)
}

// Delete removes an event (admin).
func (s *Service) Delete(ctx context.Context, id string) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.NotFound("attendance record not found")
	}
	return nil
}

// Dashboard aggregates today's headline numbers for the admin overview.
type Dashboard struct {
	PresentToday int          `json:"presentToday"`
	Recent       []Event      `json:"recentActivity"`
	Trend        []TrendPoint `json:"weeklyTrend"`
}

// DashboardStats returns today's present count, the latest events and the
// seven-day trend.
func (s *Service) DashboardStats(ctx context.Context) (Dashboard, error) {
	now := s.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	present, err := s.repo.CountOnDay(ctx, day, StatusPresent)
	if err != nil {
		return Dashboard{}, err
	}
	recent, err := s.repo.Recent(ctx, 10)
	if err != nil {
		return Dashboard{}, err
	}
	trend, err := s.repo.Trend(ctx, 7)
	if err != nil {
		return Dashboard{}, err
	}
	if recent == nil {
		recent = []Event{}
	}
	if trend == nil {
		trend = []TrendPoint{}
	}
	return Dashboard{PresentToday: present, Recent: recent, Trend: trend}, nil
}

func computeStats(events []Event) Stats {
	st := Stats{TotalDays: len(events)}
	for _, evt := range events {
		switch evt.Status {
		case StatusPresent:
			st.Present++
		case StatusAbsent:
			st.Absent++
		case StatusLate:
			st.Late++
		}
	}
	if st.TotalDays > 0 {
		st.Percentage = float64(st.Present) / float64(st.TotalDays) * 100
	}
	return st
}
