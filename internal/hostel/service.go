package hostel

import (
	"context"
	"errors"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/identity"
	"hostelhub/internal/store"
)

// ErrCapacity is returned by the repository when the locked re-check finds
// the room full.
var ErrCapacity = errors.New("room is at full capacity")

// Repo is the storage surface the service needs.
type Repo interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id string) (*Room, error)
	ListRooms(ctx context.Context, f RoomFilter) ([]Room, error)
	UpdateRoom(ctx context.Context, id string, p UpdateParams) (*Room, error)
	RoomOfUser(ctx context.Context, userID string) (*Room, error)
	AddOccupant(ctx context.Context, roomID, userID string) error
	RemoveOccupant(ctx context.Context, roomID, userID string) error
	GetOverview(ctx context.Context) (Overview, []FloorStat, error)
	UnassignedStudents(ctx context.Context) ([]identity.User, error)
}

// UserDirectory resolves identities; implemented by identity.Repository.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*identity.User, error)
}

// Locker serializes assignment per room; implemented by store.Locker.
type Locker interface {
	TryLock(ctx context.Context, key string) (func(), bool)
}

// Service enforces room capacity and single-occupancy invariants.
type Service struct {
	repo  Repo
	users UserDirectory
	locks Locker
}

// NewService creates a service backed by a repository and a user directory.
func NewService(repo Repo, users UserDirectory, locks Locker) *Service {
	return &Service{repo: repo, users: users, locks: locks}
}

// CreateParams is the typed room-creation payload.
type CreateParams struct {
	RoomNumber string
	Floor      int
	Capacity   int
	Type       string
	Facilities []string
	Remarks    string
}

// Create adds a new room.
func (s *Service) Create(ctx context.Context, p CreateParams) (Room, error) {
	if p.RoomNumber == "" {
		return Room{}, apperrors.Validation("roomNumber is required")
	}
	if p.Capacity <= 0 {
		p.Capacity = 2
	}
	if p.Type == "" {
		p.Type = TypeDouble
	}
	switch p.Type {
	case TypeSingle, TypeDouble, TypeTriple, TypeQuad:
	default:
		return Room{}, apperrors.Validation("type must be single, double, triple or quad")
	}

	room := Room{
		RoomNumber: p.RoomNumber,
		Floor:      p.Floor,
		Capacity:   p.Capacity,
		Type:       p.Type,
		Facilities: p.Facilities,
	}
	if p.Remarks != "" {
		room.Remarks = &p.Remarks
	}

	created, err := s.repo.CreateRoom(ctx, room)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return Room{}, apperrors.Conflict("room number already exists")
		}
		return Room{}, err
	}
	return created, nil
}

// Get returns a room or not-found.
func (s *Service) Get(ctx context.Context, id string) (Room, error) {
	room, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		return Room{}, err
	}
	if room == nil {
		return Room{}, apperrors.NotFound("room not found")
	}
	return *room, nil
}

// List returns rooms matching the filter.
func (s *Service) List(ctx context.Context, f RoomFilter) ([]Room, error) {
	return s.repo.ListRooms(ctx, f)
}

// Update applies admin edits to a room.
func (s *Service) Update(ctx context.Context, id string, p UpdateParams) (Room, error) {
	if p.Capacity != nil && *p.Capacity <= 0 {
		return Room{}, apperrors.Validation("capacity must be positive")
	}
	room, err := s.repo.UpdateRoom(ctx, id, p)
	if err != nil {
		return Room{}, err
	}
	if room == nil {
		return Room{}, apperrors.NotFound("room not found")
	}
	return *room, nil
}

// Assign puts a student into a room. Rejected when the room is full or the
// student already occupies any room; a rejected assign never mutates state.
func (s *Service) Assign(ctx context.Context, roomID, userID string) (Room, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return Room{}, err
	}
	if room == nil {
		return Room{}, apperrors.NotFound("room not found")
	}

	student, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Room{}, err
	}
	if student == nil || !student.IsActive {
		return Room{}, apperrors.NotFound("student not found")
	}

	release, ok := s.locks.TryLock(ctx, "room:"+roomID)
	if !ok {
		return Room{}, apperrors.Conflict("room assignment already in progress")
	}
	defer release()

	if len(room.Occupants) >= room.Capacity {
		return Room{}, apperrors.Conflict("room is at full capacity")
	}

	if current, err := s.repo.RoomOfUser(ctx, userID); err != nil {
		return Room{}, err
	} else if current != nil {
		if current.ID == roomID {
			return Room{}, apperrors.Conflict("student is already assigned to this room")
		}
		return Room{}, apperrors.Newf(apperrors.ErrConflict, "student is already assigned to room %s", current.RoomNumber)
	}

	if err := s.repo.AddOccupant(ctx, roomID, userID); err != nil {
		switch {
		case errors.Is(err, ErrCapacity):
			return Room{}, apperrors.Conflict("room is at full capacity")
		case store.IsUniqueViolation(err):
			return Room{}, apperrors.Conflict("student is already assigned to a room")
		default:
			return Room{}, err
		}
	}
	return s.Get(ctx, roomID)
}

// Remove takes a student out of a room and clears their room-number cache.
func (s *Service) Remove(ctx context.Context, roomID, userID string) (Room, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return Room{}, err
	}
	if room == nil {
		return Room{}, apperrors.NotFound("room not found")
	}

	student, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Room{}, err
	}
	if student == nil {
		return Room{}, apperrors.NotFound("student not found")
	}

	if err := s.repo.RemoveOccupant(ctx, roomID, userID); err != nil {
		return Room{}, err
	}
	return s.Get(ctx, roomID)
}

// RoomOf returns the caller's room or not-found when unassigned.
func (s *Service) RoomOf(ctx context.Context, userID string) (Room, error) {
	room, err := s.repo.RoomOfUser(ctx, userID)
	if err != nil {
		return Room{}, err
	}
	if room == nil {
		return Room{}, apperrors.NotFound("you are not assigned to any room yet")
	}
	return *room, nil
}

// Overview returns hostel-wide occupancy statistics.
func (s *Service) Overview(ctx context.Context) (Overview, []FloorStat, error) {
	return s.repo.GetOverview(ctx)
}

// Unassigned lists active students without a room.
func (s *Service) Unassigned(ctx context.Context) ([]identity.User, error) {
	return s.repo.UnassignedStudents(ctx)
}
