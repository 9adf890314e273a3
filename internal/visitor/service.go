package visitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/identity"
)

// Repo is the storage surface the service needs.
type Repo interface {
	Create(ctx context.Context, v Visitor) (Visitor, error)
	Get(ctx context.Context, id string) (*Visitor, error)
	List(ctx context.Context, f Filter) ([]Visitor, error)
	Checkout(ctx context.Context, id string) (*Visitor, error)
	Update(ctx context.Context, id string, p UpdateParams) (*Visitor, error)
	Delete(ctx context.Context, id string) (bool, error)
	GetStats(ctx context.Context) (Stats, error)
}

// UserDirectory resolves host students for student-bound purposes.
type UserDirectory interface {
	GetByStudentCode(ctx context.Context, code string) (*identity.User, error)
}

// Service implements the gate log workflows.
type Service struct {
	repo  Repo
	users UserDirectory
	log   zerolog.Logger
}

// NewService creates a service.
func NewService(repo Repo, users UserDirectory, log zerolog.Logger) *Service {
	return &Service{repo: repo, users: users, log: log}
}

// CheckInParams is the registration payload at the gate.
type CheckInParams struct {
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	Email       *string `json:"email"`
	Purpose     string  `json:"purpose"`
	StudentCode string  `json:"studentToVisit"`
	RoomNumber  string  `json:"roomNumber"`
	IDProof     string  `json:"idProof"`
	IDNumber    string  `json:"idNumber"`
	Address     string  `json:"address"`
	Remarks     *string `json:"remarks"`
}

// studentBound reports whether the purpose requires a host student.
func studentBound(purpose string) bool {
	return purpose == PurposeMeeting || purpose == PurposeFamilyVisit
}

// CheckIn registers a visitor. Meeting and Family Visit purposes must name an
// existing student and a room.
func (s *Service) CheckIn(ctx context.Context, approverID string, p CheckInParams) (*Visitor, error) {
	switch {
	case p.Name == "", p.Phone == "", p.IDProof == "", p.IDNumber == "", p.Address == "":
		return nil, apperrors.Validation("name, phone, ID proof, ID number and address are required")
	case !ValidPurpose(p.Purpose):
		return nil, apperrors.Validation("invalid visit purpose")
	}

	v := Visitor{
		Name:     p.Name,
		Phone:    p.Phone,
		Email:    p.Email,
		Purpose:  p.Purpose,
		IDProof:  p.IDProof,
		IDNumber: p.IDNumber,
		Address:  p.Address,
		Remarks:  p.Remarks,
	}
	if approverID != "" {
		v.ApprovedBy = &approverID
	}

	if studentBound(p.Purpose) {
		if p.StudentCode == "" || p.RoomNumber == "" {
			return nil, apperrors.Validation("student and room number are required for this purpose")
		}
		student, err := s.users.GetByStudentCode(ctx, p.StudentCode)
		if err != nil {
			return nil, err
		}
		if student == nil {
			return nil, apperrors.NotFound("student to visit not found")
		}
		v.StudentID = &student.ID
		v.RoomNumber = &p.RoomNumber
	}

	created, err := s.repo.Create(ctx, v)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("visitor", created.ID).Str("purpose", created.Purpose).Msg("visitor checked in")
	return &created, nil
}

// Checkout ends an active visit. Checking out twice is a conflict.
func (s *Service) Checkout(ctx context.Context, id string) (*Visitor, error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperrors.NotFound("visitor not found")
	}
	if !v.IsActive {
		return nil, apperrors.Conflict("visitor has already checked out")
	}
	out, err := s.repo.Checkout(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("visitor", id).Msg("visitor checked out")
	return out, nil
}

// Get returns one visit.
func (s *Service) Get(ctx context.Context, id string) (*Visitor, error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperrors.NotFound("visitor not found")
	}
	return v, nil
}

// List returns visits matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]Visitor, error) {
	if f.Purpose != "" && !ValidPurpose(f.Purpose) {
		return nil, apperrors.Validation("invalid visit purpose")
	}
	return s.repo.List(ctx, f)
}

// Update edits contact details of a visit.
func (s *Service) Update(ctx context.Context, id string, p UpdateParams) (*Visitor, error) {
	v, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperrors.NotFound("visitor not found")
	}
	return v, nil
}

// Delete removes a visit record.
func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("visitor not found")
	}
	return nil
}

// Stats summarizes gate activity.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.GetStats(ctx)
}

// ParseDay parses a yyyy-mm-dd query value, nil when empty.
func ParseDay(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, apperrors.Validation("invalid date, expected YYYY-MM-DD")
	}
	return &t, nil
}
