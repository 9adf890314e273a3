package visitor

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const visitorColumns = `id, name, phone, email, purpose, student_id, room_number, id_proof,
	id_number, address, check_in_time, check_out_time, is_active, approved_by, remarks,
	created_at, updated_at`

// Repository persists visitor logs in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanVisitor(row interface{ Scan(...any) error }) (*Visitor, error) {
	var v Visitor
	err := row.Scan(&v.ID, &v.Name, &v.Phone, &v.Email, &v.Purpose, &v.StudentID, &v.RoomNumber,
		&v.IDProof, &v.IDNumber, &v.Address, &v.CheckInTime, &v.CheckOutTime, &v.IsActive,
		&v.ApprovedBy, &v.Remarks, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// Create inserts a checked-in visitor.
func (r *Repository) Create(ctx context.Context, v Visitor) (Visitor, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO visitors (id, name, phone, email, purpose, student_id, room_number,
			id_proof, id_number, address, approved_by, remarks)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING check_in_time, is_active, created_at, updated_at
	`, v.ID, v.Name, v.Phone, v.Email, v.Purpose, v.StudentID, v.RoomNumber,
		v.IDProof, v.IDNumber, v.Address, v.ApprovedBy, v.Remarks)
	if err := row.Scan(&v.CheckInTime, &v.IsActive, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return Visitor{}, err
	}
	return v, nil
}

// Get returns a visitor by id, nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*Visitor, error) {
	return scanVisitor(r.db.QueryRowContext(ctx, `SELECT `+visitorColumns+` FROM visitors WHERE id = $1`, id))
}

// Filter narrows visitor listings.
type Filter struct {
	Active  *bool
	Purpose string
	Day     *time.Time
	Limit   int
	Offset  int
}

// List returns visitors matching the filter, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Visitor, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}

	clauses := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.Active != nil {
		clauses = append(clauses, "is_active = "+arg(*f.Active))
	}
	if f.Purpose != "" {
		clauses = append(clauses, "purpose = "+arg(f.Purpose))
	}
	if f.Day != nil {
		clauses = append(clauses, "check_in_time::date = "+arg(f.Day.Format("2006-01-02")))
	}

	query := `SELECT ` + visitorColumns + ` FROM visitors`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY check_in_time DESC LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visitors []Visitor
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, err
		}
		visitors = append(visitors, *v)
	}
	return visitors, rows.Err()
}

// Checkout stamps the checkout time and deactivates the visit.
func (r *Repository) Checkout(ctx context.Context, id string) (*Visitor, error) {
	return scanVisitor(r.db.QueryRowContext(ctx, `
		UPDATE visitors SET check_out_time = NOW(), is_active = FALSE, updated_at = NOW()
		WHERE id = $1
		RETURNING `+visitorColumns, id))
}

// UpdateParams carries the editable fields of an active visit.
type UpdateParams struct {
	Phone   *string
	Email   *string
	Remarks *string
}

// Update applies the allow-listed fields.
func (r *Repository) Update(ctx context.Context, id string, p UpdateParams) (*Visitor, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if p.Phone != nil {
		set("phone", *p.Phone)
	}
	if p.Email != nil {
		set("email", *p.Email)
	}
	if p.Remarks != nil {
		set("remarks", *p.Remarks)
	}
	query := `UPDATE visitors SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + visitorColumns
	return scanVisitor(r.db.QueryRowContext(ctx, query, args...))
}

// Delete removes a visitor record (admin).
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM visitors WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Stats summarizes gate activity.
type Stats struct {
	Today              int     `json:"todayVisitors"`
	Active             int     `json:"activeVisitors"`
	AvgDurationMinutes float64 `json:"avgDurationMinutes"`
}

// GetStats computes today's counters and the average completed-visit length.
func (r *Repository) GetStats(ctx context.Context) (Stats, error) {
	var st Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE check_in_time::date = CURRENT_DATE),
		       COUNT(*) FILTER (WHERE is_active),
		       COALESCE(AVG(EXTRACT(EPOCH FROM (check_out_time - check_in_time)) / 60)
		                FILTER (WHERE check_out_time IS NOT NULL), 0)
		FROM visitors
	`).Scan(&st.Today, &st.Active, &st.AvgDurationMinutes)
	return st, err
}
