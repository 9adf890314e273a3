package mealplan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/cloudinary"
	"hostelhub/internal/queue"
	"hostelhub/internal/store"
)

// JobExtract is the queue message type for weekly-plan text extraction.
const JobExtract = "mealplan.extract"

// ExtractJob is the payload of a JobExtract message.
type ExtractJob struct {
	WeeklyPlanID string `json:"weeklyPlanId"`
}

// Repo is the storage surface the service needs.
type Repo interface {
	CreateWeekly(ctx context.Context, w WeeklyPlan) (WeeklyPlan, error)
	GetWeekly(ctx context.Context, id string) (*WeeklyPlan, error)
	ListWeekly(ctx context.Context, limit, offset int) ([]WeeklyPlan, error)
	MarkExtracted(ctx context.Context, id, text, status string) error
	SetWeeklyStatus(ctx context.Context, id, status string) error
	CreateMeal(ctx context.Context, m Meal) (Meal, error)
	SeedMeal(ctx context.Context, m Meal) (bool, error)
	GetMeal(ctx context.Context, id string) (*Meal, error)
	MealsOn(ctx context.Context, day time.Time) ([]Meal, error)
	UpdateMeal(ctx context.Context, id string, p MealUpdateParams) (*Meal, error)
	DeleteMeal(ctx context.Context, id string) (bool, error)
	CreateFeedback(ctx context.Context, f Feedback) (*Feedback, error)
	GetFeedback(ctx context.Context, id string) (*Feedback, error)
	ListFeedback(ctx context.Context, f FeedbackFilter) ([]Feedback, error)
	ResolveFeedback(ctx context.Context, id, adminID, response, status string) (*Feedback, error)
	GetStats(ctx context.Context) (MealStats, error)
}

// TextExtractor is the optional OCR collaborator.
type TextExtractor interface {
	Enabled() bool
	Extract(ctx context.Context, fileURL, fileType string) (string, error)
}

// ImageStore uploads the weekly plan file.
type ImageStore interface {
	UploadBytes(data []byte, filename string) (*cloudinary.UploadResult, error)
}

// Service implements the mess planning workflows.
type Service struct {
	repo       Repo
	jobs       queue.Queue
	ocr        TextExtractor
	files      ImageStore
	log        zerolog.Logger
	retryDelay time.Duration
}

// NewService creates a service. files may be nil when no file storage is
// configured; uploads then keep only the metadata.
func NewService(repo Repo, jobs queue.Queue, ocr TextExtractor, files ImageStore, log zerolog.Logger) *Service {
	return &Service{repo: repo, jobs: jobs, ocr: ocr, files: files, log: log, retryDelay: 2 * time.Second}
}

// UploadParams describes a weekly plan upload.
type UploadParams struct {
	WeekStart time.Time
	Title     string
	FileName  string
	FileType  string
	File      []byte
}

// UploadWeekly stores the plan document and enqueues text extraction. The
// worker picks the job up; upload never blocks on the OCR collaborator.
func (s *Service) UploadWeekly(ctx context.Context, callerID string, p UploadParams) (*WeeklyPlan, error) {
	if p.WeekStart.IsZero() {
		return nil, apperrors.Validation("week start date is required")
	}
	if p.Title == "" {
		p.Title = "Weekly Mess Menu " + p.WeekStart.Format("Jan 2, 2006")
	}
	if p.FileType != "" && p.FileType != "pdf" && p.FileType != "image" {
		return nil, apperrors.Validation("file type must be pdf or image")
	}

	w := WeeklyPlan{
		WeekStart: p.WeekStart,
		WeekEnd:   p.WeekStart.AddDate(0, 0, 6),
		Title:     p.Title,
		CreatedBy: callerID,
	}
	if len(p.File) > 0 {
		if s.files == nil {
			return nil, apperrors.Unavailable("file storage not configured")
		}
		upload, err := s.files.UploadBytes(p.File, p.FileName)
		if err != nil {
			s.log.Error().Err(err).Msg("weekly plan upload failed")
			return nil, apperrors.Unavailable("file upload failed")
		}
		size := int64(len(p.File))
		w.FileName = &p.FileName
		w.FileURL = &upload.SecureURL
		w.FileSize = &size
		if p.FileType != "" {
			w.FileType = &p.FileType
		}
	}

	created, err := s.repo.CreateWeekly(ctx, w)
	if err != nil {
		return nil, err
	}

	msg, err := queue.NewMessage(JobExtract, ExtractJob{WeeklyPlanID: created.ID})
	if err != nil {
		return nil, err
	}
	if err := s.jobs.Publish(ctx, msg); err != nil {
		// The plan exists; extraction can be re-run later.
		s.log.Error().Err(err).Str("plan", created.ID).Msg("failed to enqueue extraction job")
	}
	return &created, nil
}

// GetWeekly returns one weekly plan.
func (s *Service) GetWeekly(ctx context.Context, id string) (*WeeklyPlan, error) {
	w, err := s.repo.GetWeekly(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, apperrors.NotFound("weekly meal plan not found")
	}
	return w, nil
}

// ListWeekly returns uploaded plans, newest week first.
func (s *Service) ListWeekly(ctx context.Context, limit, offset int) ([]WeeklyPlan, error) {
	return s.repo.ListWeekly(ctx, limit, offset)
}

// extractAttempts bounds extraction retries per job.
const extractAttempts = 3

// RunExtraction is the worker-side handler for JobExtract. Without an OCR
// collaborator the plan is marked processed with empty text so Process can
// still materialize the default menu. Collaborator failures are retried with
// backoff before marking the plan failed.
func (s *Service) RunExtraction(ctx context.Context, raw json.RawMessage) error {
	var job ExtractJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return fmt.Errorf("decode extract job: %w", err)
	}

	plan, err := s.repo.GetWeekly(ctx, job.WeeklyPlanID)
	if err != nil {
		return err
	}
	if plan == nil {
		s.log.Warn().Str("plan", job.WeeklyPlanID).Msg("extraction job for missing plan dropped")
		return nil
	}

	if s.ocr == nil || !s.ocr.Enabled() || plan.FileURL == nil {
		s.log.Info().Str("plan", plan.ID).Msg("no extractor configured, marking plan processed")
		return s.repo.MarkExtracted(ctx, plan.ID, "", WeeklyProcessed)
	}

	fileType := "image"
	if plan.FileType != nil {
		fileType = *plan.FileType
	}

	var lastErr error
	for attempt := 1; attempt <= extractAttempts; attempt++ {
		text, err := s.ocr.Extract(ctx, *plan.FileURL, fileType)
		if err == nil {
			s.log.Info().Str("plan", plan.ID).Int("attempt", attempt).Msg("weekly plan text extracted")
			return s.repo.MarkExtracted(ctx, plan.ID, strings.TrimSpace(text), WeeklyProcessed)
		}
		lastErr = err
		s.log.Warn().Err(err).Str("plan", plan.ID).Int("attempt", attempt).Msg("extraction attempt failed")
		if attempt < extractAttempts {
			select {
			case <-time.After(time.Duration(attempt) * s.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if err := s.repo.MarkExtracted(ctx, plan.ID, "", WeeklyFailed); err != nil {
		return err
	}
	s.log.Error().Err(lastErr).Str("plan", plan.ID).Msg("weekly plan extraction failed")
	return nil
}

// ProcessResult reports how many meal slots Process filled.
type ProcessResult struct {
	MealsCreated int `json:"mealsCreated"`
	MealsKept    int `json:"mealsSkipped"`
}

// Process materializes the seven days by four slots of a weekly plan from
// the default menu, skipping slots that already have a meal. The plan moves
// to active.
func (s *Service) Process(ctx context.Context, callerID, weeklyID string) (*ProcessResult, error) {
	plan, err := s.repo.GetWeekly(ctx, weeklyID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, apperrors.NotFound("weekly meal plan not found")
	}
	if plan.Status == WeeklyPending {
		return nil, apperrors.Conflict("weekly plan has not been processed yet")
	}

	var result ProcessResult
	for day := 0; day < 7; day++ {
		date := plan.WeekStart.AddDate(0, 0, day)
		for _, mealType := range MealTypes {
			inserted, err := s.repo.SeedMeal(ctx, Meal{
				Date:         date,
				MealType:     mealType,
				Items:        DefaultItems(mealType, day),
				WeeklyPlanID: &plan.ID,
				CreatedBy:    callerID,
			})
			if err != nil {
				return nil, err
			}
			if inserted {
				result.MealsCreated++
			} else {
				result.MealsKept++
			}
		}
	}

	if err := s.repo.SetWeeklyStatus(ctx, plan.ID, WeeklyActive); err != nil {
		return nil, err
	}
	s.log.Info().Str("plan", plan.ID).Int("created", result.MealsCreated).Msg("weekly plan materialized")
	return &result, nil
}

// CreateMealParams is an admin's manual daily meal.
type CreateMealParams struct {
	Date        time.Time `json:"date"`
	MealType    string    `json:"mealType"`
	Items       []string  `json:"items"`
	SpecialMenu bool      `json:"specialMenu"`
	Occasion    *string   `json:"occasion"`
}

// CreateMeal adds a daily meal; a second meal for the same slot is a
// conflict.
func (s *Service) CreateMeal(ctx context.Context, callerID string, p CreateMealParams) (*Meal, error) {
	if p.Date.IsZero() {
		return nil, apperrors.Validation("meal date is required")
	}
	if !ValidMealType(p.MealType) {
		return nil, apperrors.Validation("meal type must be Breakfast, Lunch, Snacks or Dinner")
	}
	if len(p.Items) == 0 {
		return nil, apperrors.Validation("at least one menu item is required")
	}

	meal, err := s.repo.CreateMeal(ctx, Meal{
		Date:        p.Date,
		MealType:    p.MealType,
		Items:       p.Items,
		SpecialMenu: p.SpecialMenu,
		Occasion:    p.Occasion,
		CreatedBy:   callerID,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("a meal for this date and slot already exists")
		}
		return nil, err
	}
	return &meal, nil
}

// MealsOn returns the meals of one day.
func (s *Service) MealsOn(ctx context.Context, day time.Time) ([]Meal, error) {
	return s.repo.MealsOn(ctx, day)
}

// UpdateMeal edits a daily meal.
func (s *Service) UpdateMeal(ctx context.Context, id string, p MealUpdateParams) (*Meal, error) {
	if p.Status != nil && !ValidMealStatus(*p.Status) {
		return nil, apperrors.Validation("invalid meal status")
	}
	meal, err := s.repo.UpdateMeal(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if meal == nil {
		return nil, apperrors.NotFound("meal not found")
	}
	return meal, nil
}

// DeleteMeal removes a daily meal.
func (s *Service) DeleteMeal(ctx context.Context, id string) error {
	ok, err := s.repo.DeleteMeal(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("meal not found")
	}
	return nil
}

// FeedbackParams is a resident's review or complaint.
type FeedbackParams struct {
	MealPlanID        string  `json:"mealPlanId"`
	FeedbackType      string  `json:"feedbackType"`
	Rating            *int    `json:"rating"`
	Taste             *int    `json:"taste"`
	Quantity          *int    `json:"quantity"`
	Hygiene           *int    `json:"hygiene"`
	Comments          *string `json:"comments"`
	Suggestions       *string `json:"suggestions"`
	Priority          string  `json:"priority"`
	ComplaintCategory *string `json:"complaintCategory"`
}

func validScore(v *int) bool {
	return v == nil || (*v >= 1 && *v <= 5)
}

// SubmitFeedback records one student's take on a meal. A second submission
// for the same meal is a conflict.
func (s *Service) SubmitFeedback(ctx context.Context, callerID string, p FeedbackParams) (*Feedback, error) {
	if p.MealPlanID == "" {
		return nil, apperrors.Validation("meal is required")
	}
	if p.FeedbackType == "" {
		p.FeedbackType = FeedbackReview
	}
	if p.FeedbackType != FeedbackReview && p.FeedbackType != FeedbackComplaint {
		return nil, apperrors.Validation("feedback type must be review or complaint")
	}
	if !validScore(p.Rating) || !validScore(p.Taste) || !validScore(p.Quantity) || !validScore(p.Hygiene) {
		return nil, apperrors.Validation("ratings must be between 1 and 5")
	}
	if p.FeedbackType == FeedbackReview && p.Rating == nil {
		return nil, apperrors.Validation("a rating is required for reviews")
	}
	if p.FeedbackType == FeedbackComplaint && p.ComplaintCategory == nil {
		return nil, apperrors.Validation("a complaint category is required for complaints")
	}
	if p.Priority == "" {
		p.Priority = "medium"
	}

	meal, err := s.repo.GetMeal(ctx, p.MealPlanID)
	if err != nil {
		return nil, err
	}
	if meal == nil {
		return nil, apperrors.NotFound("meal not found")
	}

	fb, err := s.repo.CreateFeedback(ctx, Feedback{
		MealPlanID:        p.MealPlanID,
		StudentID:         callerID,
		FeedbackType:      p.FeedbackType,
		Rating:            p.Rating,
		Taste:             p.Taste,
		Quantity:          p.Quantity,
		Hygiene:           p.Hygiene,
		Comments:          p.Comments,
		Suggestions:       p.Suggestions,
		Priority:          p.Priority,
		ComplaintCategory: p.ComplaintCategory,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("you have already submitted feedback for this meal")
		}
		return nil, err
	}
	return fb, nil
}

// ListFeedback returns entries matching the filter.
func (s *Service) ListFeedback(ctx context.Context, f FeedbackFilter) ([]Feedback, error) {
	return s.repo.ListFeedback(ctx, f)
}

// ResolveFeedback records the admin's response to an entry.
func (s *Service) ResolveFeedback(ctx context.Context, adminID, id, response, status string) (*Feedback, error) {
	if response == "" {
		return nil, apperrors.Validation("a response is required")
	}
	if status == "" {
		status = FeedbackResolved
	}
	if status != FeedbackReviewing && status != FeedbackResolved && status != FeedbackClosed {
		return nil, apperrors.Validation("invalid feedback status")
	}
	fb, err := s.repo.ResolveFeedback(ctx, id, adminID, response, status)
	if err != nil {
		return nil, err
	}
	if fb == nil {
		return nil, apperrors.NotFound("feedback not found")
	}
	return fb, nil
}

// Stats returns the meal dashboard counters.
func (s *Service) Stats(ctx context.Context) (MealStats, error) {
	return s.repo.GetStats(ctx)
}
