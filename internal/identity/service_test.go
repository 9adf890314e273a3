package identity

import (
	"context"
	"errors"
	"testing"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/auth"
)

type fakeRepo struct {
	byEmail map[string]*User
	created []User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byEmail: map[string]*User{}}
}

func (f *fakeRepo) Create(_ context.Context, u User) (User, error) {
	if _, exists := f.byEmail[u.Email]; exists {
		return User{}, errors.New("duplicate email")
	}
	u.ID = "u1"
	u.IsActive = true
	f.byEmail[u.Email] = &u
	f.created = append(f.created, u)
	return u, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	if u, ok := f.byEmail[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) GetByStudentCode(context.Context, string) (*User, error) { return nil, nil }

func (f *fakeRepo) ListStudents(context.Context, Filter) ([]User, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) Update(context.Context, string, UpdateParams) (*User, error) {
	return nil, nil
}

func (f *fakeRepo) Deactivate(context.Context, string) error { return nil }

func (f *fakeRepo) CountStudents(context.Context) (Counts, error) { return Counts{}, nil }

func TestEnsureAdminCreatesFirstAccount(t *testing.T) {
	repo := newFakeRepo()
	s := NewService(repo)

	created, err := s.EnsureAdmin(context.Background(), BootstrapParams{
		Email:    "Warden@Hostel.edu",
		Password: "first-login",
	})
	if err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	if !created {
		t.Fatal("expected an account to be created")
	}

	u := repo.byEmail["warden@hostel.edu"]
	if u == nil {
		t.Fatal("email not normalized to lowercase")
	}
	if u.Role != RoleAdmin {
		t.Errorf("role = %q, want admin", u.Role)
	}
	if u.Name != "System Administrator" {
		t.Errorf("name = %q, want default", u.Name)
	}
	if u.PasswordHash == "first-login" || !auth.CheckPassword(u.PasswordHash, "first-login") {
		t.Error("password not stored as a usable hash")
	}
}

func TestEnsureAdminLeavesExistingAccountAlone(t *testing.T) {
	repo := newFakeRepo()
	s := NewService(repo)
	ctx := context.Background()

	if _, err := s.EnsureAdmin(ctx, BootstrapParams{Email: "warden@hostel.edu", Password: "first-login"}); err != nil {
		t.Fatal(err)
	}
	before := repo.byEmail["warden@hostel.edu"].PasswordHash

	created, err := s.EnsureAdmin(ctx, BootstrapParams{Email: "warden@hostel.edu", Password: "changed-later"})
	if err != nil {
		t.Fatalf("second EnsureAdmin: %v", err)
	}
	if created {
		t.Error("second bootstrap must not create another account")
	}
	if repo.byEmail["warden@hostel.edu"].PasswordHash != before {
		t.Error("bootstrap must never overwrite an existing password")
	}
	if len(repo.created) != 1 {
		t.Errorf("accounts created = %d, want 1", len(repo.created))
	}
}

func TestEnsureAdminValidation(t *testing.T) {
	s := NewService(newFakeRepo())
	ctx := context.Background()

	if _, err := s.EnsureAdmin(ctx, BootstrapParams{Email: "warden@hostel.edu"}); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("missing password: err = %v, want validation", err)
	}
	if _, err := s.EnsureAdmin(ctx, BootstrapParams{Email: "not-an-email", Password: "first-login"}); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("bad email: err = %v, want validation", err)
	}
	if _, err := s.EnsureAdmin(ctx, BootstrapParams{Email: "warden@hostel.edu", Password: "short"}); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("short password: err = %v, want validation", err)
	}
}

func TestRegisterAssignsStudentRole(t *testing.T) {
	repo := newFakeRepo()
	s := NewService(repo)

	u, err := s.Register(context.Background(), RegisterParams{
		Name:        "Asha Rao",
		Email:       "asha@hostel.edu",
		Password:    "hunter22",
		StudentCode: "st101",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Role != RoleStudent {
		t.Errorf("role = %q, registration must not mint admins", u.Role)
	}
	if u.Code() != "ST101" {
		t.Errorf("student code = %q, want uppercased", u.Code())
	}
}
