package hostel

import (
	"context"
	"errors"
	"strings"
	"testing"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/identity"
)

type fakeRepo struct {
	rooms      map[string]*Room
	roomOf     map[string]string // userID -> roomID
	addCalls   int
	addErr     error
	removeDone bool
}

func (f *fakeRepo) CreateRoom(_ context.Context, room Room) (Room, error) {
	room.ID = "r-new"
	return room, nil
}

func (f *fakeRepo) GetRoom(_ context.Context, id string) (*Room, error) {
	if r, ok := f.rooms[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) ListRooms(context.Context, RoomFilter) ([]Room, error) { return nil, nil }

func (f *fakeRepo) UpdateRoom(context.Context, string, UpdateParams) (*Room, error) {
	return nil, nil
}

func (f *fakeRepo) RoomOfUser(_ context.Context, userID string) (*Room, error) {
	if roomID, ok := f.roomOf[userID]; ok {
		return f.GetRoom(context.Background(), roomID)
	}
	return nil, nil
}

func (f *fakeRepo) AddOccupant(_ context.Context, roomID, userID string) error {
	f.addCalls++
	if f.addErr != nil {
		return f.addErr
	}
	room := f.rooms[roomID]
	room.Occupants = append(room.Occupants, Occupant{UserID: userID})
	if f.roomOf == nil {
		f.roomOf = map[string]string{}
	}
	f.roomOf[userID] = roomID
	return nil
}

func (f *fakeRepo) RemoveOccupant(_ context.Context, roomID, userID string) error {
	f.removeDone = true
	room := f.rooms[roomID]
	kept := room.Occupants[:0]
	for _, o := range room.Occupants {
		if o.UserID != userID {
			kept = append(kept, o)
		}
	}
	room.Occupants = kept
	delete(f.roomOf, userID)
	return nil
}

func (f *fakeRepo) GetOverview(context.Context) (Overview, []FloorStat, error) {
	return Overview{}, nil, nil
}

func (f *fakeRepo) UnassignedStudents(context.Context) ([]identity.User, error) {
	return nil, nil
}

type fakeUsers struct {
	users map[string]*identity.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*identity.User, error) {
	return f.users[id], nil
}

type openLocker struct{}

func (openLocker) TryLock(context.Context, string) (func(), bool) { return func() {}, true }

func testFixture() (*fakeRepo, *Service) {
	repo := &fakeRepo{
		rooms: map[string]*Room{
			"r1": {ID: "r1", RoomNumber: "A-101", Capacity: 2},
			"r2": {ID: "r2", RoomNumber: "A-102", Capacity: 1, Occupants: []Occupant{{UserID: "u9"}}},
		},
		roomOf: map[string]string{"u9": "r2"},
	}
	users := &fakeUsers{users: map[string]*identity.User{
		"u1": {ID: "u1", Name: "Asha Rao", IsActive: true},
		"u9": {ID: "u9", Name: "Vikram Nair", IsActive: true},
	}}
	return repo, NewService(repo, users, openLocker{})
}

func TestAssign(t *testing.T) {
	repo, s := testFixture()

	room, err := s.Assign(context.Background(), "r1", "u1")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if len(room.Occupants) != 1 || room.Occupants[0].UserID != "u1" {
		t.Fatalf("unexpected occupants %+v", room.Occupants)
	}
	if repo.addCalls != 1 {
		t.Errorf("AddOccupant calls = %d, want 1", repo.addCalls)
	}
}

func TestAssignFullRoomDoesNotMutate(t *testing.T) {
	repo, s := testFixture()

	_, err := s.Assign(context.Background(), "r2", "u1")
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if repo.addCalls != 0 {
		t.Errorf("rejected assign must not call AddOccupant, got %d", repo.addCalls)
	}
	if len(repo.rooms["r2"].Occupants) != 1 {
		t.Errorf("room r2 mutated: %+v", repo.rooms["r2"].Occupants)
	}
}

func TestAssignAlreadyHoused(t *testing.T) {
	// u9 already lives in A-102; the error names the current room.
	_, s := testFixture()
	_, err := s.Assign(context.Background(), "r1", "u9")
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if !strings.Contains(err.Error(), "A-102") {
		t.Errorf("error should name the current room, got %q", err.Error())
	}
}

func TestAssignSameRoomTwice(t *testing.T) {
	repo, s := testFixture()
	repo.rooms["r2"].Capacity = 2

	_, err := s.Assign(context.Background(), "r2", "u9")
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if !strings.Contains(err.Error(), "already assigned to this room") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestAssignUnknownRoom(t *testing.T) {
	_, s := testFixture()
	_, err := s.Assign(context.Background(), "nope", "u1")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestRemove(t *testing.T) {
	repo, s := testFixture()

	room, err := s.Remove(context.Background(), "r2", "u9")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !repo.removeDone {
		t.Fatal("RemoveOccupant not called")
	}
	if len(room.Occupants) != 0 {
		t.Errorf("occupants after remove: %+v", room.Occupants)
	}
}

func TestRoomOfUnassigned(t *testing.T) {
	_, s := testFixture()
	_, err := s.RoomOf(context.Background(), "u1")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestCreateValidatesType(t *testing.T) {
	_, s := testFixture()
	_, err := s.Create(context.Background(), CreateParams{RoomNumber: "B-201", Type: "penthouse"})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestAvailableBeds(t *testing.T) {
	room := Room{Capacity: 3, Occupants: []Occupant{{UserID: "a"}}}
	if got := room.AvailableBeds(); got != 2 {
		t.Fatalf("AvailableBeds = %d, want 2", got)
	}
}
