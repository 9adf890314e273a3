package identity

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const userColumns = `id, name, email, password_hash, role, student_code, department, semester,
	phone_number, room_number, is_face_enrolled, profile_image_url, cloudinary_public_id,
	is_active, created_at, updated_at`

// Repository persists user accounts in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.StudentCode,
		&u.Department, &u.Semester, &u.PhoneNumber, &u.RoomNumber, &u.IsFaceEnrolled,
		&u.ProfileImageURL, &u.CloudinaryPublicID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, student_code, department, semester, phone_number)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING is_face_enrolled, is_active, created_at, updated_at
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.StudentCode, u.Department, u.Semester, u.PhoneNumber)
	if err := row.Scan(&u.IsFaceEnrolled, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, err
	}
	return u, nil
}

// GetByID returns a user by id, nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email, nil when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// GetByStudentCode returns a user by student code, nil when absent.
func (r *Repository) GetByStudentCode(ctx context.Context, code string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE student_code = $1`, code))
}

// Filter narrows student listings.
type Filter struct {
	Search     string
	Department string
	Semester   *int
	Enrolled   *bool
	Limit      int
	Offset     int
}

// ListStudents returns student accounts matching the filter plus the total
// count for pagination.
func (r *Repository) ListStudents(ctx context.Context, f Filter) ([]User, int, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	clauses := []string{"role = 'student'"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		clauses = append(clauses, "(name ILIKE "+p+" OR email ILIKE "+p+" OR student_code ILIKE "+p+")")
	}
	if f.Department != "" {
		clauses = append(clauses, "department = "+arg(f.Department))
	}
	if f.Semester != nil {
		clauses = append(clauses, "semester = "+arg(*f.Semester))
	}
	if f.Enrolled != nil {
		clauses = append(clauses, "is_face_enrolled = "+arg(*f.Enrolled))
	}
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users` + where +
		` ORDER BY created_at DESC LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

// UpdateParams carries the admin-editable fields; nil means leave unchanged.
type UpdateParams struct {
	Name        *string
	Email       *string
	StudentCode *string
	Department  *string
	Semester    *int
	PhoneNumber *string
	RoomNumber  *string
	IsActive    *bool
}

// Update applies the allow-listed fields and returns the updated user.
func (r *Repository) Update(ctx context.Context, id string, p UpdateParams) (*User, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if p.Name != nil {
		set("name", *p.Name)
	}
	if p.Email != nil {
		set("email", *p.Email)
	}
	if p.StudentCode != nil {
		set("student_code", *p.StudentCode)
	}
	if p.Department != nil {
		set("department", *p.Department)
	}
	if p.Semester != nil {
		set("semester", *p.Semester)
	}
	if p.PhoneNumber != nil {
		set("phone_number", *p.PhoneNumber)
	}
	if p.RoomNumber != nil {
		set("room_number", *p.RoomNumber)
	}
	if p.IsActive != nil {
		set("is_active", *p.IsActive)
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, args...))
}

// Deactivate soft-deletes an account.
func (r *Repository) Deactivate(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Freeing the bed is part of deactivation; a disabled account must not
	// hold a room slot.
	var roomID sql.NullString
	err = tx.QueryRowContext(ctx, `
		DELETE FROM room_occupants WHERE user_id = $1 RETURNING room_id
	`, id).Scan(&roomID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if roomID.Valid {
		if _, err := tx.ExecContext(ctx, `
			UPDATE rooms SET is_available = (SELECT COUNT(*) FROM room_occupants WHERE room_id = $1) < capacity,
				updated_at = NOW()
			WHERE id = $1
		`, roomID.String); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET is_active = FALSE, room_number = NULL, updated_at = NOW() WHERE id = $1
	`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// SetFaceEnrollment records the enrollment flag and image references.
func (r *Repository) SetFaceEnrollment(ctx context.Context, id string, enrolled bool, imageURL, publicID *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET is_face_enrolled = $2, profile_image_url = $3, cloudinary_public_id = $4, updated_at = NOW()
		WHERE id = $1
	`, id, enrolled, imageURL, publicID)
	return err
}

// ClearFaceEnrollment resets every account's enrollment flag and image
// references. Maintenance operation for environment resets.
func (r *Repository) ClearFaceEnrollment(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET is_face_enrolled = FALSE, profile_image_url = NULL, cloudinary_public_id = NULL, updated_at = NOW()
		WHERE is_face_enrolled = TRUE
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Counts holds dashboard tallies.
type Counts struct {
	TotalStudents    int `json:"totalStudents"`
	EnrolledStudents int `json:"enrolledStudents"`
}

// CountStudents tallies active students and face-enrolled students.
func (r *Repository) CountStudents(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE TRUE),
		       COUNT(*) FILTER (WHERE is_face_enrolled)
		FROM users WHERE role = 'student' AND is_active
	`).Scan(&c.TotalStudents, &c.EnrolledStudents)
	return c, err
}
