package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const eventColumns = `id, user_id, student_code, student_name, occurred_at, day, time_of_day,
	status, method, confidence, location, image_url, marked_by, remarks, created_at`

// Repository persists attendance events in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanEvent(row interface{ Scan(...any) error }) (*Event, error) {
	var evt Event
	err := row.Scan(&evt.ID, &evt.UserID, &evt.StudentCode, &evt.StudentName, &evt.OccurredAt,
		&evt.Day, &evt.TimeOfDay, &evt.Status, &evt.Method, &evt.Confidence, &evt.Location,
		&evt.ImageURL, &evt.MarkedBy, &evt.Remarks, &evt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &evt, nil
}

// FindByCodeAndDay returns the event for (student, calendar day), nil when
// absent.
func (r *Repository) FindByCodeAndDay(ctx context.Context, code string, day time.Time) (*Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM attendance_events
		WHERE student_code = $1 AND day = $2
	`, code, day.Format("2006-01-02")))
}

// Insert writes a new event. The unique index on (student_code, day) rejects
// concurrent duplicates that slipped past the pre-check.
func (r *Repository) Insert(ctx context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_events
			(id, user_id, student_code, student_name, occurred_at, day, time_of_day,
			 status, method, confidence, location, image_url, marked_by, remarks)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at
	`, evt.ID, evt.UserID, evt.StudentCode, evt.StudentName, evt.OccurredAt,
		evt.Day.Format("2006-01-02"), evt.TimeOfDay, evt.Status, evt.Method,
		evt.Confidence, evt.Location, evt.ImageURL, evt.MarkedBy, evt.Remarks)
	if err := row.Scan(&evt.CreatedAt); err != nil {
		return Event{}, err
	}
	return evt, nil
}

// ListByCode returns a student's full history, newest first.
func (r *Repository) ListByCode(ctx context.Context, code string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM attendance_events
		WHERE student_code = $1
		ORDER BY day DESC, created_at DESC
	`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListFilter narrows admin attendance listings.
type ListFilter struct {
	Day         *time.Time
	Start       *time.Time
	End         *time.Time
	StudentCode string
	Status      string
	Limit       int
	Offset      int
}

// List returns events matching the filter plus the total count.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Event, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	clauses := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Day != nil {
		clauses = append(clauses, "day = "+arg(f.Day.Format("2006-01-02")))
	}
	if f.Start != nil && f.End != nil {
		clauses = append(clauses, "day BETWEEN "+arg(f.Start.Format("2006-01-02"))+" AND "+arg(f.End.Format("2006-01-02")))
	}
	if f.StudentCode != "" {
		clauses = append(clauses, "student_code = "+arg(f.StudentCode))
	}
	if f.Status != "" {
		clauses = append(clauses, "status = "+arg(f.Status))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance_events`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + eventColumns + ` FROM attendance_events` + where +
		` ORDER BY day DESC, created_at DESC LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	events, err := collectEvents(rows)
	return events, total, err
}

// Delete hard-deletes an event (admin only). Returns whether a row existed.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_events WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountOnDay tallies events with the given status on a day.
func (r *Repository) CountOnDay(ctx context.Context, day time.Time, status string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance_events WHERE day = $1 AND status = $2
	`, day.Format("2006-01-02"), status).Scan(&n)
	return n, err
}

// Recent returns the latest events for the dashboard.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM attendance_events
		ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// TrendPoint is one day of the attendance trend.
type TrendPoint struct {
	Day   string `json:"date"`
	Count int    `json:"count"`
}

// trendStart is the first day of an n-day window ending on today.
func trendStart(today time.Time, days int) time.Time {
	if days < 1 {
		days = 1
	}
	return today.AddDate(0, 0, -(days - 1))
}

// Trend returns per-day event counts for the last n days, today included.
func (r *Repository) Trend(ctx context.Context, days int) ([]TrendPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT day::text, COUNT(*) FROM attendance_events
		WHERE day >= $1
		GROUP BY day ORDER BY day
	`, trendStart(time.Now(), days).Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Day, &p.Count); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func collectEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *evt)
	}
	return events, rows.Err()
}
