package maintenance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const ticketColumns = `t.id, t.title, t.description, t.category, t.priority, t.status,
	t.reported_by, u.name, t.room_number, t.floor, t.assigned_to, t.assigned_date,
	t.completed_date, t.estimated_cost, t.actual_cost, t.images, t.admin_remarks,
	t.student_remarks, t.resolution_details, t.created_at, t.updated_at`

// Repository persists maintenance tickets in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanTicket(row interface{ Scan(...any) error }) (*Ticket, error) {
	var t Ticket
	var images []byte
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.Priority, &t.Status,
		&t.ReportedBy, &t.ReporterName, &t.RoomNumber, &t.Floor, &t.AssignedTo, &t.AssignedDate,
		&t.CompletedDate, &t.EstimatedCost, &t.ActualCost, &images, &t.AdminRemarks,
		&t.StudentRemarks, &t.ResolutionDetails, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(images) > 0 {
		_ = json.Unmarshal(images, &t.Images)
	}
	if t.Images == nil {
		t.Images = []string{}
	}
	return &t, nil
}

// Create inserts a new pending ticket.
func (r *Repository) Create(ctx context.Context, t Ticket) (*Ticket, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	images, _ := json.Marshal(t.Images)
	if t.Images == nil {
		images = []byte("[]")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO maintenance_tickets (id, title, description, category, priority,
			reported_by, room_number, floor, images, student_remarks)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, t.ID, t.Title, t.Description, t.Category, t.Priority,
		t.ReportedBy, t.RoomNumber, t.Floor, images, t.StudentRemarks)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, t.ID)
}

// Get returns a ticket with its reporter's name, nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*Ticket, error) {
	return scanTicket(r.db.QueryRowContext(ctx, `
		SELECT `+ticketColumns+`
		FROM maintenance_tickets t JOIN users u ON u.id = t.reported_by
		WHERE t.id = $1
	`, id))
}

// Filter narrows ticket listings. ReportedBy scopes students to their own
// tickets.
type Filter struct {
	Status     string
	Priority   string
	Category   string
	ReportedBy string
	Limit      int
	Offset     int
}

// List returns tickets matching the filter, emergency first, then newest.
func (r *Repository) List(ctx context.Context, f Filter) ([]Ticket, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}

	clauses := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.Status != "" {
		clauses = append(clauses, "t.status = "+arg(f.Status))
	}
	if f.Priority != "" {
		clauses = append(clauses, "t.priority = "+arg(f.Priority))
	}
	if f.Category != "" {
		clauses = append(clauses, "t.category = "+arg(f.Category))
	}
	if f.ReportedBy != "" {
		clauses = append(clauses, "t.reported_by = "+arg(f.ReportedBy))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM maintenance_tickets t`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + ticketColumns + `
		FROM maintenance_tickets t JOIN users u ON u.id = t.reported_by` + where + `
		ORDER BY CASE t.priority
			WHEN 'Emergency' THEN 0 WHEN 'High' THEN 1 WHEN 'Medium' THEN 2 ELSE 3
		END, t.created_at DESC
		LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tickets []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, total, rows.Err()
}

// UpdateParams carries a partial ticket update. Nil means unchanged.
type UpdateParams struct {
	Description       *string
	StudentRemarks    *string
	Status            *string
	Priority          *string
	AssignedTo        *string
	EstimatedCost     *float64
	ActualCost        *float64
	AdminRemarks      *string
	ResolutionDetails *string
}

// Update applies the given fields. Assigning stamps assigned_date; completing
// stamps completed_date.
func (r *Repository) Update(ctx context.Context, id string, p UpdateParams) (*Ticket, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if p.Description != nil {
		set("description", *p.Description)
	}
	if p.StudentRemarks != nil {
		set("student_remarks", *p.StudentRemarks)
	}
	if p.Status != nil {
		set("status", *p.Status)
		if *p.Status == StatusCompleted {
			sets = append(sets, "completed_date = NOW()")
		}
	}
	if p.Priority != nil {
		set("priority", *p.Priority)
	}
	if p.AssignedTo != nil {
		set("assigned_to", *p.AssignedTo)
		sets = append(sets, "assigned_date = NOW()")
	}
	if p.EstimatedCost != nil {
		set("estimated_cost", *p.EstimatedCost)
	}
	if p.ActualCost != nil {
		set("actual_cost", *p.ActualCost)
	}
	if p.AdminRemarks != nil {
		set("admin_remarks", *p.AdminRemarks)
	}
	if p.ResolutionDetails != nil {
		set("resolution_details", *p.ResolutionDetails)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE maintenance_tickets SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.Get(ctx, id)
}

// Delete removes a ticket.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM maintenance_tickets WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Stats breaks tickets down by status, priority and category.
type Stats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"byStatus"`
	ByPriority map[string]int `json:"byPriority"`
	ByCategory map[string]int `json:"byCategory"`
}

// GetStats computes the breakdown in one pass.
func (r *Repository) GetStats(ctx context.Context) (Stats, error) {
	st := Stats{
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
		ByCategory: map[string]int{},
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, priority, category, COUNT(*)
		FROM maintenance_tickets
		GROUP BY status, priority, category
	`)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var status, priority, category string
		var n int
		if err := rows.Scan(&status, &priority, &category, &n); err != nil {
			return Stats{}, err
		}
		st.Total += n
		st.ByStatus[status] += n
		st.ByPriority[priority] += n
		st.ByCategory[category] += n
	}
	return st, rows.Err()
}
