package maintenance

import (
	"context"

	"github.com/rs/zerolog"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/identity"
)

// Repo is the storage surface the service needs.
type Repo interface {
	Create(ctx context.Context, t Ticket) (*Ticket, error)
	Get(ctx context.Context, id string) (*Ticket, error)
	List(ctx context.Context, f Filter) ([]Ticket, int, error)
	Update(ctx context.Context, id string, p UpdateParams) (*Ticket, error)
	Delete(ctx context.Context, id string) (bool, error)
	GetStats(ctx context.Context) (Stats, error)
}

// UserDirectory resolves the reporting resident.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*identity.User, error)
}

// Service implements the ticket workflows with role-scoped visibility.
type Service struct {
	repo  Repo
	users UserDirectory
	log   zerolog.Logger
}

// NewService creates a service.
func NewService(repo Repo, users UserDirectory, log zerolog.Logger) *Service {
	return &Service{repo: repo, users: users, log: log}
}

// CreateParams is a resident's new ticket. RoomNumber defaults to the
// caller's assigned room when omitted.
type CreateParams struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Priority       string   `json:"priority"`
	RoomNumber     string   `json:"roomNumber"`
	Floor          int      `json:"floor"`
	Images         []string `json:"images"`
	StudentRemarks *string  `json:"studentRemarks"`
}

// Create files a ticket on behalf of the caller.
func (s *Service) Create(ctx context.Context, callerID string, p CreateParams) (*Ticket, error) {
	if p.Title == "" || p.Description == "" {
		return nil, apperrors.Validation("title and description are required")
	}
	if !ValidCategory(p.Category) {
		return nil, apperrors.Validation("invalid maintenance category")
	}
	if p.Priority == "" {
		p.Priority = PriorityMedium
	}
	if !ValidPriority(p.Priority) {
		return nil, apperrors.Validation("invalid priority")
	}

	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller == nil {
		return nil, apperrors.NotFound("user not found")
	}
	if p.RoomNumber == "" {
		if caller.RoomNumber == nil || *caller.RoomNumber == "" {
			return nil, apperrors.Validation("room number is required")
		}
		p.RoomNumber = *caller.RoomNumber
	}
	if p.Floor < 0 {
		return nil, apperrors.Validation("invalid floor")
	}

	ticket, err := s.repo.Create(ctx, Ticket{
		Title:          p.Title,
		Description:    p.Description,
		Category:       p.Category,
		Priority:       p.Priority,
		ReportedBy:     callerID,
		RoomNumber:     p.RoomNumber,
		Floor:          p.Floor,
		Images:         p.Images,
		StudentRemarks: p.StudentRemarks,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("ticket", ticket.ID).Str("category", ticket.Category).
		Str("priority", ticket.Priority).Msg("maintenance ticket filed")
	return ticket, nil
}

// List returns tickets visible to the caller: admins see everything,
// students only their own.
func (s *Service) List(ctx context.Context, callerID, callerRole string, f Filter) ([]Ticket, int, error) {
	if callerRole != identity.RoleAdmin {
		f.ReportedBy = callerID
	}
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, apperrors.Validation("invalid status")
	}
	if f.Priority != "" && !ValidPriority(f.Priority) {
		return nil, 0, apperrors.Validation("invalid priority")
	}
	if f.Category != "" && !ValidCategory(f.Category) {
		return nil, 0, apperrors.Validation("invalid maintenance category")
	}
	return s.repo.List(ctx, f)
}

// Get returns one ticket; students can only read their own.
func (s *Service) Get(ctx context.Context, callerID, callerRole, id string) (*Ticket, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperrors.NotFound("maintenance ticket not found")
	}
	if callerRole != identity.RoleAdmin && t.ReportedBy != callerID {
		return nil, apperrors.Forbidden("you can only view your own tickets")
	}
	return t, nil
}

// Update edits a ticket. Students may amend description and remarks of their
// own pending tickets; admins control status, assignment, costs and
// resolution.
func (s *Service) Update(ctx context.Context, callerID, callerRole, id string, p UpdateParams) (*Ticket, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperrors.NotFound("maintenance ticket not found")
	}

	if callerRole != identity.RoleAdmin {
		if existing.ReportedBy != callerID {
			return nil, apperrors.Forbidden("you can only update your own tickets")
		}
		if existing.Status != StatusPending {
			return nil, apperrors.Conflict("ticket can no longer be edited")
		}
		// Students only touch their own narrative fields.
		p = UpdateParams{Description: p.Description, StudentRemarks: p.StudentRemarks}
	}

	if p.Status != nil {
		if !ValidStatus(*p.Status) {
			return nil, apperrors.Validation("invalid status")
		}
		if existing.Status == StatusCompleted || existing.Status == StatusCancelled {
			return nil, apperrors.Conflict("ticket is already closed")
		}
	}
	if p.Priority != nil && !ValidPriority(*p.Priority) {
		return nil, apperrors.Validation("invalid priority")
	}

	updated, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperrors.NotFound("maintenance ticket not found")
	}
	return updated, nil
}

// Delete removes a ticket (admin).
func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("maintenance ticket not found")
	}
	return nil
}

// Stats returns the breakdown by status, priority and category.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.GetStats(ctx)
}
