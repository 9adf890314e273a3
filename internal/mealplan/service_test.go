package mealplan

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/queue"
)

type fakeRepo struct {
	weekly     map[string]*WeeklyPlan
	meals      map[string]*Meal // key date|type
	mealsByID  map[string]*Meal
	feedback   map[string]*Feedback
	lastStatus string
	lastText   string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		weekly:    map[string]*WeeklyPlan{},
		meals:     map[string]*Meal{},
		mealsByID: map[string]*Meal{},
		feedback:  map[string]*Feedback{},
	}
}

func mealKey(day time.Time, mealType string) string {
	return day.Format("2006-01-02") + "|" + mealType
}

func (f *fakeRepo) CreateWeekly(_ context.Context, w WeeklyPlan) (WeeklyPlan, error) {
	w.ID = "wp1"
	w.Status = WeeklyPending
	f.weekly[w.ID] = &w
	return w, nil
}

func (f *fakeRepo) GetWeekly(_ context.Context, id string) (*WeeklyPlan, error) {
	if w, ok := f.weekly[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) ListWeekly(context.Context, int, int) ([]WeeklyPlan, error) { return nil, nil }

func (f *fakeRepo) MarkExtracted(_ context.Context, id, text, status string) error {
	w := f.weekly[id]
	w.Status = status
	w.ExtractedText = &text
	w.IsExtracted = status == WeeklyProcessed
	f.lastStatus = status
	f.lastText = text
	return nil
}

func (f *fakeRepo) SetWeeklyStatus(_ context.Context, id, status string) error {
	f.weekly[id].Status = status
	f.lastStatus = status
	return nil
}

func (f *fakeRepo) CreateMeal(_ context.Context, m Meal) (Meal, error) {
	key := mealKey(m.Date, m.MealType)
	if _, exists := f.meals[key]; exists {
		return Meal{}, &pgconn.PgError{Code: "23505"}
	}
	m.ID = "m-" + key
	m.Status = MealPlanned
	f.meals[key] = &m
	f.mealsByID[m.ID] = &m
	return m, nil
}

func (f *fakeRepo) SeedMeal(_ context.Context, m Meal) (bool, error) {
	key := mealKey(m.Date, m.MealType)
	if _, exists := f.meals[key]; exists {
		return false, nil
	}
	m.ID = "m-" + key
	m.Status = MealPlanned
	f.meals[key] = &m
	f.mealsByID[m.ID] = &m
	return true, nil
}

func (f *fakeRepo) GetMeal(_ context.Context, id string) (*Meal, error) {
	if m, ok := f.mealsByID[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) MealsOn(context.Context, time.Time) ([]Meal, error) { return nil, nil }

func (f *fakeRepo) UpdateMeal(context.Context, string, MealUpdateParams) (*Meal, error) {
	return nil, nil
}

func (f *fakeRepo) DeleteMeal(context.Context, string) (bool, error) { return false, nil }

func (f *fakeRepo) CreateFeedback(_ context.Context, fb Feedback) (*Feedback, error) {
	key := fb.MealPlanID + "|" + fb.StudentID
	if _, exists := f.feedback[key]; exists {
		return nil, &pgconn.PgError{Code: "23505"}
	}
	fb.ID = "fb-" + key
	fb.Status = FeedbackPending
	f.feedback[key] = &fb
	cp := fb
	return &cp, nil
}

func (f *fakeRepo) GetFeedback(context.Context, string) (*Feedback, error) { return nil, nil }

func (f *fakeRepo) ListFeedback(context.Context, FeedbackFilter) ([]Feedback, error) {
	return nil, nil
}

func (f *fakeRepo) ResolveFeedback(context.Context, string, string, string, string) (*Feedback, error) {
	return nil, nil
}

func (f *fakeRepo) GetStats(context.Context) (MealStats, error) { return MealStats{}, nil }

type fakeExtractor struct {
	enabled  bool
	failures int
	calls    int
	text     string
}

func (f *fakeExtractor) Enabled() bool { return f.enabled }

func (f *fakeExtractor) Extract(context.Context, string, string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", apperrors.Unavailable("text extraction service unreachable")
	}
	return f.text, nil
}

func newMealService(repo *fakeRepo, ocr TextExtractor) (*Service, *queue.InMemory) {
	jobs := queue.NewInMemory(8)
	s := NewService(repo, jobs, ocr, nil, zerolog.Nop())
	s.retryDelay = 0
	return s, jobs
}

func weekOf() time.Time {
	return time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
}

func TestUploadWeeklyEnqueuesExtraction(t *testing.T) {
	repo := newFakeRepo()
	s, jobs := newMealService(repo, &fakeExtractor{})
	ctx := context.Background()

	plan, err := s.UploadWeekly(ctx, "adm1", UploadParams{WeekStart: weekOf()})
	if err != nil {
		t.Fatalf("UploadWeekly: %v", err)
	}
	if plan.WeekEnd.Sub(plan.WeekStart) != 6*24*time.Hour {
		t.Errorf("week end = %s", plan.WeekEnd)
	}

	out, err := jobs.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case msg := <-out:
		if msg.Type != JobExtract {
			t.Errorf("job type = %q", msg.Type)
		}
		var job ExtractJob
		if err := json.Unmarshal(msg.Body, &job); err != nil || job.WeeklyPlanID != plan.ID {
			t.Errorf("job payload = %s", msg.Body)
		}
	case <-time.After(time.Second):
		t.Fatal("no job enqueued")
	}
}

func TestRunExtractionWithoutCollaborator(t *testing.T) {
	repo := newFakeRepo()
	s, _ := newMealService(repo, &fakeExtractor{enabled: false})
	ctx := context.Background()

	plan, err := s.UploadWeekly(ctx, "adm1", UploadParams{WeekStart: weekOf()})
	if err != nil {
		t.Fatal(err)
	}

	raw, _ := json.Marshal(ExtractJob{WeeklyPlanID: plan.ID})
	if err := s.RunExtraction(ctx, raw); err != nil {
		t.Fatalf("RunExtraction: %v", err)
	}
	if repo.lastStatus != WeeklyProcessed {
		t.Errorf("status = %q, want processed without a collaborator", repo.lastStatus)
	}
}

func TestRunExtractionRetriesThenSucceeds(t *testing.T) {
	repo := newFakeRepo()
	ocr := &fakeExtractor{enabled: true, failures: 2, text: "Monday: Idli, Sambar"}
	s, _ := newMealService(repo, ocr)
	ctx := context.Background()

	plan, err := s.UploadWeekly(ctx, "adm1", UploadParams{WeekStart: weekOf()})
	if err != nil {
		t.Fatal(err)
	}
	url := "https://cdn/plan.pdf"
	repo.weekly[plan.ID].FileURL = &url

	raw, _ := json.Marshal(ExtractJob{WeeklyPlanID: plan.ID})
	if err := s.RunExtraction(ctx, raw); err != nil {
		t.Fatalf("RunExtraction: %v", err)
	}
	if ocr.calls != 3 {
		t.Errorf("extractor calls = %d, want 3", ocr.calls)
	}
	if repo.lastStatus != WeeklyProcessed || repo.lastText != "Monday: Idli, Sambar" {
		t.Errorf("status=%q text=%q", repo.lastStatus, repo.lastText)
	}
}

func TestRunExtractionGivesUpAfterBoundedRetries(t *testing.T) {
	repo := newFakeRepo()
	ocr := &fakeExtractor{enabled: true, failures: 10}
	s, _ := newMealService(repo, ocr)
	ctx := context.Background()

	plan, err := s.UploadWeekly(ctx, "adm1", UploadParams{WeekStart: weekOf()})
	if err != nil {
		t.Fatal(err)
	}
	url := "https://cdn/plan.pdf"
	repo.weekly[plan.ID].FileURL = &url

	raw, _ := json.Marshal(ExtractJob{WeeklyPlanID: plan.ID})
	if err := s.RunExtraction(ctx, raw); err != nil {
		t.Fatalf("RunExtraction: %v", err)
	}
	if ocr.calls != extractAttempts {
		t.Errorf("extractor calls = %d, want %d", ocr.calls, extractAttempts)
	}
	if repo.lastStatus != WeeklyFailed {
		t.Errorf("status = %q, want failed", repo.lastStatus)
	}
}

func TestProcessMaterializesWeek(t *testing.T) {
	repo := newFakeRepo()
	s, _ := newMealService(repo, &fakeExtractor{})
	ctx := context.Background()

	plan, err := s.UploadWeekly(ctx, "adm1", UploadParams{WeekStart: weekOf()})
	if err != nil {
		t.Fatal(err)
	}
	repo.weekly[plan.ID].Status = WeeklyProcessed

	// One slot is hand-crafted already and must survive Process.
	occasion := "Holi"
	if _, err := s.CreateMeal(ctx, "adm1", CreateMealParams{
		Date:        weekOf().AddDate(0, 0, 2),
		MealType:    MealDinner,
		Items:       []string{"Puran Poli", "Thandai"},
		SpecialMenu: true,
		Occasion:    &occasion,
	}); err != nil {
		t.Fatal(err)
	}

	result, err := s.Process(ctx, "adm1", plan.ID)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.MealsCreated != 27 || result.MealsKept != 1 {
		t.Errorf("created=%d kept=%d, want 27/1", result.MealsCreated, result.MealsKept)
	}
	if len(repo.meals) != 28 {
		t.Errorf("total meals = %d, want 7 days x 4 slots", len(repo.meals))
	}
	if repo.weekly[plan.ID].Status != WeeklyActive {
		t.Errorf("plan status = %q, want active", repo.weekly[plan.ID].Status)
	}

	kept := repo.meals[mealKey(weekOf().AddDate(0, 0, 2), MealDinner)]
	if !kept.SpecialMenu || kept.Items[0] != "Puran Poli" {
		t.Errorf("existing meal overwritten: %+v", kept)
	}
}

func TestProcessPendingPlanConflicts(t *testing.T) {
	repo := newFakeRepo()
	s, _ := newMealService(repo, &fakeExtractor{})
	ctx := context.Background()

	plan, err := s.UploadWeekly(ctx, "adm1", UploadParams{WeekStart: weekOf()})
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Process(ctx, "adm1", plan.ID)
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("err = %v, want conflict for unprocessed plan", err)
	}
}

func TestCreateMealDuplicateSlot(t *testing.T) {
	repo := newFakeRepo()
	s, _ := newMealService(repo, &fakeExtractor{})
	ctx := context.Background()

	p := CreateMealParams{Date: weekOf(), MealType: MealLunch, Items: []string{"Rice", "Dal"}}
	if _, err := s.CreateMeal(ctx, "adm1", p); err != nil {
		t.Fatal(err)
	}
	_, err := s.CreateMeal(ctx, "adm1", p)
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("err = %v, want conflict for duplicate slot", err)
	}
}

func TestSubmitFeedbackOncePerMeal(t *testing.T) {
	repo := newFakeRepo()
	s, _ := newMealService(repo, &fakeExtractor{})
	ctx := context.Background()

	meal, err := s.CreateMeal(ctx, "adm1", CreateMealParams{
		Date: weekOf(), MealType: MealBreakfast, Items: []string{"Idli"},
	})
	if err != nil {
		t.Fatal(err)
	}

	rating := 4
	params := FeedbackParams{MealPlanID: meal.ID, Rating: &rating}
	if _, err := s.SubmitFeedback(ctx, "stud1", params); err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	_, err = s.SubmitFeedback(ctx, "stud1", params)
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("second submit err = %v, want conflict", err)
	}
}

func TestSubmitFeedbackValidation(t *testing.T) {
	repo := newFakeRepo()
	s, _ := newMealService(repo, &fakeExtractor{})
	ctx := context.Background()

	meal, err := s.CreateMeal(ctx, "adm1", CreateMealParams{
		Date: weekOf(), MealType: MealSnacks, Items: []string{"Samosa"},
	})
	if err != nil {
		t.Fatal(err)
	}

	// A review without a rating is rejected.
	_, err = s.SubmitFeedback(ctx, "stud1", FeedbackParams{MealPlanID: meal.ID})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}

	// A complaint needs a category.
	_, err = s.SubmitFeedback(ctx, "stud1", FeedbackParams{
		MealPlanID: meal.ID, FeedbackType: FeedbackComplaint,
	})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}

	// Out-of-range scores are rejected.
	bad := 9
	_, err = s.SubmitFeedback(ctx, "stud1", FeedbackParams{MealPlanID: meal.ID, Rating: &bad})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestDefaultItemsRotation(t *testing.T) {
	for day := 0; day < 7; day++ {
		for _, mealType := range MealTypes {
			if items := DefaultItems(mealType, day); len(items) == 0 {
				t.Fatalf("no default items for %s day %d", mealType, day)
			}
		}
	}
	if DefaultItems("Brunch", 0) == nil {
		t.Error("unknown slot should return an empty slice, not nil")
	}
}
