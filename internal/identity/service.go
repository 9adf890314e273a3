package identity

import (
	"context"
	"net/mail"
	"strings"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/auth"
	"hostelhub/internal/store"
)

// Repo is the storage surface the service needs.
type Repo interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByStudentCode(ctx context.Context, code string) (*User, error)
	ListStudents(ctx context.Context, f Filter) ([]User, int, error)
	Update(ctx context.Context, id string, p UpdateParams) (*User, error)
	Deactivate(ctx context.Context, id string) error
	CountStudents(ctx context.Context) (Counts, error)
}

// Service implements account management.
type Service struct {
	repo Repo
}

// NewService creates a service backed by a repository.
func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

// RegisterParams is the typed registration payload.
type RegisterParams struct {
	Name        string
	Email       string
	Password    string
	StudentCode string
	Department  string
	Semester    *int
	PhoneNumber string
}

// Register creates a student account.
func (s *Service) Register(ctx context.Context, p RegisterParams) (User, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Name == "" || p.Email == "" || p.Password == "" {
		return User{}, apperrors.Validation("name, email and password are required")
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return User{}, apperrors.Validation("invalid email address")
	}
	if len(p.Password) < 6 {
		return User{}, apperrors.Validation("password must be at least 6 characters")
	}

	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return User{}, err
	}

	u := User{
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: hash,
		Role:         RoleStudent,
	}
	if p.StudentCode != "" {
		code := strings.ToUpper(strings.TrimSpace(p.StudentCode))
		u.StudentCode = &code
	}
	if p.Department != "" {
		u.Department = &p.Department
	}
	u.Semester = p.Semester
	if p.PhoneNumber != "" {
		u.PhoneNumber = &p.PhoneNumber
	}

	created, err := s.repo.Create(ctx, u)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return User{}, apperrors.Conflict("an account with this email or student ID already exists")
		}
		return User{}, err
	}
	return created, nil
}

// BootstrapParams describes the initial admin account.
type BootstrapParams struct {
	Name     string
	Email    string
	Password string
}

// EnsureAdmin creates the first admin account when no account holds the
// given email. An existing account is left untouched, a redeploy must never
// reset a changed password. Returns whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, p BootstrapParams) (bool, error) {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Email == "" || p.Password == "" {
		return false, apperrors.Validation("admin email and password are required")
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return false, apperrors.Validation("invalid admin email address")
	}
	if len(p.Password) < 6 {
		return false, apperrors.Validation("admin password must be at least 6 characters")
	}

	existing, err := s.repo.GetByEmail(ctx, p.Email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	if p.Name == "" {
		p.Name = "System Administrator"
	}
	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return false, err
	}
	department := "Administration"
	if _, err := s.repo.Create(ctx, User{
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: hash,
		Role:         RoleAdmin,
		Department:   &department,
	}); err != nil {
		// Another replica bootstrapping concurrently is fine.
		if store.IsUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Login verifies credentials. Failures are indistinguishable to the caller
// except for disabled accounts.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return User{}, err
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, password) {
		return User{}, apperrors.New(apperrors.ErrUnauthorized, "invalid credentials")
	}
	if !u.IsActive {
		return User{}, apperrors.Forbidden("account is disabled")
	}
	return *u, nil
}

// Get returns a user or not-found.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if u == nil {
		return User{}, apperrors.NotFound("user not found")
	}
	return *u, nil
}

// GetByStudentCode returns the user behind a student code or not-found.
func (s *Service) GetByStudentCode(ctx context.Context, code string) (User, error) {
	u, err := s.repo.GetByStudentCode(ctx, code)
	if err != nil {
		return User{}, err
	}
	if u == nil {
		return User{}, apperrors.NotFound("student not found")
	}
	return *u, nil
}

// ListStudents returns students matching the filter plus the total count.
func (s *Service) ListStudents(ctx context.Context, f Filter) ([]User, int, error) {
	return s.repo.ListStudents(ctx, f)
}

// Update applies admin edits through the typed allow-list.
func (s *Service) Update(ctx context.Context, id string, p UpdateParams) (User, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if existing == nil {
		return User{}, apperrors.NotFound("student not found")
	}

	updated, err := s.repo.Update(ctx, id, p)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return User{}, apperrors.Conflict("email or student ID already in use")
		}
		return User{}, err
	}
	return *updated, nil
}

// Deactivate soft-deletes an account; the record is kept for attendance
// history.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperrors.NotFound("student not found")
	}
	return s.repo.Deactivate(ctx, id)
}

// CountStudents tallies active and enrolled students for the dashboard.
func (s *Service) CountStudents(ctx context.Context) (Counts, error) {
	return s.repo.CountStudents(ctx)
}
