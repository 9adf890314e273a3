package mealplan

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository persists weekly plans, daily meals and feedback in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const weeklyColumns = `id, week_start, week_end, title, file_name, file_url, file_type,
	file_size, extracted_text, is_extracted, status, created_by, created_at, updated_at`

func scanWeekly(row interface{ Scan(...any) error }) (*WeeklyPlan, error) {
	var w WeeklyPlan
	err := row.Scan(&w.ID, &w.WeekStart, &w.WeekEnd, &w.Title, &w.FileName, &w.FileURL,
		&w.FileType, &w.FileSize, &w.ExtractedText, &w.IsExtracted, &w.Status,
		&w.CreatedBy, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

// CreateWeekly inserts an uploaded plan in pending state.
func (r *Repository) CreateWeekly(ctx context.Context, w WeeklyPlan) (WeeklyPlan, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO weekly_meal_plans (id, week_start, week_end, title, file_name, file_url,
			file_type, file_size, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING status, is_extracted, created_at, updated_at
	`, w.ID, w.WeekStart, w.WeekEnd, w.Title, w.FileName, w.FileURL, w.FileType, w.FileSize, w.CreatedBy)
	if err := row.Scan(&w.Status, &w.IsExtracted, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return WeeklyPlan{}, err
	}
	return w, nil
}

// GetWeekly returns a plan by id, nil when absent.
func (r *Repository) GetWeekly(ctx context.Context, id string) (*WeeklyPlan, error) {
	return scanWeekly(r.db.QueryRowContext(ctx,
		`SELECT `+weeklyColumns+` FROM weekly_meal_plans WHERE id = $1`, id))
}

// ListWeekly returns plans newest week first.
func (r *Repository) ListWeekly(ctx context.Context, limit, offset int) ([]WeeklyPlan, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+weeklyColumns+` FROM weekly_meal_plans
		ORDER BY week_start DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []WeeklyPlan
	for rows.Next() {
		w, err := scanWeekly(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *w)
	}
	return plans, rows.Err()
}

// MarkExtracted records the extraction outcome for a plan.
func (r *Repository) MarkExtracted(ctx context.Context, id, text, status string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE weekly_meal_plans
		SET extracted_text = $2, is_extracted = $3, status = $4, updated_at = NOW()
		WHERE id = $1
	`, id, text, status == WeeklyProcessed, status)
	return err
}

// SetWeeklyStatus moves a plan through its lifecycle.
func (r *Repository) SetWeeklyStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE weekly_meal_plans SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	return err
}

const mealColumns = `id, meal_date, meal_type, items, special_menu, occasion, status,
	weekly_plan_id, created_by, created_at, updated_at`

func scanMeal(row interface{ Scan(...any) error }) (*Meal, error) {
	var m Meal
	var items []byte
	err := row.Scan(&m.ID, &m.Date, &m.MealType, &items, &m.SpecialMenu, &m.Occasion,
		&m.Status, &m.WeeklyPlanID, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(items) > 0 {
		_ = json.Unmarshal(items, &m.Items)
	}
	if m.Items == nil {
		m.Items = []string{}
	}
	return &m, nil
}

// CreateMeal inserts a daily meal. The (date, type) unique constraint makes
// duplicates surface as unique violations.
func (r *Repository) CreateMeal(ctx context.Context, m Meal) (Meal, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	items, _ := json.Marshal(m.Items)
	if m.Items == nil {
		items = []byte("[]")
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO meal_plans (id, meal_date, meal_type, items, special_menu, occasion,
			weekly_plan_id, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING status, created_at, updated_at
	`, m.ID, m.Date, m.MealType, items, m.SpecialMenu, m.Occasion, m.WeeklyPlanID, m.CreatedBy)
	if err := row.Scan(&m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return Meal{}, err
	}
	return m, nil
}

// SeedMeal inserts a meal only when the (date, type) slot is still empty.
// Returns false when an existing meal was kept.
func (r *Repository) SeedMeal(ctx context.Context, m Meal) (bool, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	items, _ := json.Marshal(m.Items)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO meal_plans (id, meal_date, meal_type, items, special_menu, occasion,
			weekly_plan_id, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (meal_date, meal_type) DO NOTHING
	`, m.ID, m.Date, m.MealType, items, m.SpecialMenu, m.Occasion, m.WeeklyPlanID, m.CreatedBy)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetMeal returns a meal by id, nil when absent.
func (r *Repository) GetMeal(ctx context.Context, id string) (*Meal, error) {
	return scanMeal(r.db.QueryRowContext(ctx,
		`SELECT `+mealColumns+` FROM meal_plans WHERE id = $1`, id))
}

// MealsOn returns the meals of one calendar day in serving order.
func (r *Repository) MealsOn(ctx context.Context, day time.Time) ([]Meal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+mealColumns+` FROM meal_plans
		WHERE meal_date = $1
		ORDER BY CASE meal_type
			WHEN 'Breakfast' THEN 0 WHEN 'Lunch' THEN 1 WHEN 'Snacks' THEN 2 ELSE 3
		END
	`, day.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meals []Meal
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, *m)
	}
	return meals, rows.Err()
}

// MealUpdateParams carries a partial daily-meal update. Nil means unchanged.
type MealUpdateParams struct {
	Items       []string
	SpecialMenu *bool
	Occasion    *string
	Status      *string
}

// UpdateMeal applies the given fields.
func (r *Repository) UpdateMeal(ctx context.Context, id string, p MealUpdateParams) (*Meal, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if p.Items != nil {
		items, _ := json.Marshal(p.Items)
		set("items", items)
	}
	if p.SpecialMenu != nil {
		set("special_menu", *p.SpecialMenu)
	}
	if p.Occasion != nil {
		set("occasion", *p.Occasion)
	}
	if p.Status != nil {
		set("status", *p.Status)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE meal_plans SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.GetMeal(ctx, id)
}

// DeleteMeal removes a daily meal.
func (r *Repository) DeleteMeal(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meal_plans WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

const feedbackColumns = `f.id, f.meal_plan_id, f.student_id, u.name, f.feedback_type,
	f.rating, f.taste, f.quantity, f.hygiene, f.comments, f.suggestions, f.priority,
	f.complaint_category, f.status, f.admin_response, f.resolved_by, f.resolved_at,
	f.created_at, f.updated_at`

func scanFeedback(row interface{ Scan(...any) error }) (*Feedback, error) {
	var f Feedback
	err := row.Scan(&f.ID, &f.MealPlanID, &f.StudentID, &f.StudentName, &f.FeedbackType,
		&f.Rating, &f.Taste, &f.Quantity, &f.Hygiene, &f.Comments, &f.Suggestions,
		&f.Priority, &f.ComplaintCategory, &f.Status, &f.AdminResponse, &f.ResolvedBy,
		&f.ResolvedAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// CreateFeedback inserts one student's take on one meal. The unique
// (meal, student) constraint rejects a second submission.
func (r *Repository) CreateFeedback(ctx context.Context, f Feedback) (*Feedback, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO meal_feedback (id, meal_plan_id, student_id, feedback_type, rating,
			taste, quantity, hygiene, comments, suggestions, priority, complaint_category)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, f.ID, f.MealPlanID, f.StudentID, f.FeedbackType, f.Rating,
		f.Taste, f.Quantity, f.Hygiene, f.Comments, f.Suggestions, f.Priority, f.ComplaintCategory)
	if err != nil {
		return nil, err
	}
	return r.GetFeedback(ctx, f.ID)
}

// GetFeedback returns one entry with the student's name, nil when absent.
func (r *Repository) GetFeedback(ctx context.Context, id string) (*Feedback, error) {
	return scanFeedback(r.db.QueryRowContext(ctx, `
		SELECT `+feedbackColumns+`
		FROM meal_feedback f JOIN users u ON u.id = f.student_id
		WHERE f.id = $1
	`, id))
}

// FeedbackFilter narrows feedback listings.
type FeedbackFilter struct {
	MealPlanID string
	Type       string
	Status     string
	Limit      int
	Offset     int
}

// ListFeedback returns entries matching the filter, newest first.
func (r *Repository) ListFeedback(ctx context.Context, f FeedbackFilter) ([]Feedback, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	clauses := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.MealPlanID != "" {
		clauses = append(clauses, "f.meal_plan_id = "+arg(f.MealPlanID))
	}
	if f.Type != "" {
		clauses = append(clauses, "f.feedback_type = "+arg(f.Type))
	}
	if f.Status != "" {
		clauses = append(clauses, "f.status = "+arg(f.Status))
	}
	query := `SELECT ` + feedbackColumns + ` FROM meal_feedback f JOIN users u ON u.id = f.student_id`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY f.created_at DESC LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *fb)
	}
	return out, rows.Err()
}

// ResolveFeedback records the admin response and closes the entry.
func (r *Repository) ResolveFeedback(ctx context.Context, id, adminID, response, status string) (*Feedback, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE meal_feedback
		SET admin_response = $2, resolved_by = $3, resolved_at = NOW(), status = $4, updated_at = NOW()
		WHERE id = $1
	`, id, response, adminID, status)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.GetFeedback(ctx, id)
}

// MealStats aggregates today's meals and open complaints.
type MealStats struct {
	MealsToday     int     `json:"mealsToday"`
	AvgRating      float64 `json:"avgRating"`
	TotalFeedback  int     `json:"totalFeedback"`
	OpenComplaints int     `json:"openComplaints"`
}

// GetStats computes the meal dashboard counters.
func (r *Repository) GetStats(ctx context.Context) (MealStats, error) {
	var st MealStats
	err := r.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM meal_plans WHERE meal_date = CURRENT_DATE),
		       (SELECT COALESCE(AVG(rating), 0) FROM meal_feedback WHERE rating IS NOT NULL),
		       (SELECT COUNT(*) FROM meal_feedback),
		       (SELECT COUNT(*) FROM meal_feedback
		        WHERE feedback_type = 'complaint' AND status IN ('pending', 'reviewing'))
	`).Scan(&st.MealsToday, &st.AvgRating, &st.TotalFeedback, &st.OpenComplaints)
	return st, err
}
