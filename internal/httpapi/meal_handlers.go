package httpapi

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/auth"
	"hostelhub/internal/mealplan"
)

func (h *Handler) uploadWeeklyPlan(c *gin.Context) {
	weekStart, err := time.Parse("2006-01-02", c.PostForm("weekStartDate"))
	if err != nil {
		fail(c, apperrors.Validation("weekStartDate is required, expected YYYY-MM-DD"))
		return
	}

	params := mealplan.UploadParams{
		WeekStart: weekStart,
		Title:     c.PostForm("title"),
	}
	if file, header, ferr := c.Request.FormFile("file"); ferr == nil {
		defer file.Close()
		data, rerr := io.ReadAll(file)
		if rerr != nil {
			fail(c, apperrors.Validation("could not read uploaded file"))
			return
		}
		params.File = data
		params.FileName = header.Filename
		if strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
			params.FileType = "pdf"
		} else {
			params.FileType = "image"
		}
	}

	claims := auth.FromContext(c)
	plan, err := h.meals.UploadWeekly(c.Request.Context(), claims.Subject, params)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"message": "weekly plan uploaded, extraction queued", "weeklyPlan": plan})
}

func (h *Handler) listWeeklyPlans(c *gin.Context) {
	plans, err := h.meals.ListWeekly(c.Request.Context(), intQuery(c, "limit", 20), intQuery(c, "offset", 0))
	if err != nil {
		fail(c, err)
		return
	}
	if plans == nil {
		plans = []mealplan.WeeklyPlan{}
	}
	ok(c, http.StatusOK, gin.H{"weeklyPlans": plans})
}

func (h *Handler) getWeeklyPlan(c *gin.Context) {
	plan, err := h.meals.GetWeekly(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"weeklyPlan": plan})
}

func (h *Handler) processWeeklyPlan(c *gin.Context) {
	claims := auth.FromContext(c)
	result, err := h.meals.Process(c.Request.Context(), claims.Subject, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "weekly plan materialized", "result": result})
}

func (h *Handler) createMeal(c *gin.Context) {
	var req struct {
		Date        string   `json:"date"`
		MealType    string   `json:"mealType"`
		Items       []string `json:"items"`
		SpecialMenu bool     `json:"specialMenu"`
		Occasion    *string  `json:"occasion"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.Validation("invalid request body"))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		fail(c, apperrors.Validation("date is required, expected YYYY-MM-DD"))
		return
	}

	claims := auth.FromContext(c)
	meal, err := h.meals.CreateMeal(c.Request.Context(), claims.Subject, mealplan.CreateMealParams{
		Date:        date,
		MealType:    req.MealType,
		Items:       req.Items,
		SpecialMenu: req.SpecialMenu,
		Occasion:    req.Occasion,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"meal": meal})
}

func (h *Handler) listMeals(c *gin.Context) {
	day := time.Now()
	if v := c.Query("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			fail(c, apperrors.Validation("invalid date, expected YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	meals, err := h.meals.MealsOn(c.Request.Context(), day)
	if err != nil {
		fail(c, err)
		return
	}
	if meals == nil {
		meals = []mealplan.Meal{}
	}
	ok(c, http.StatusOK, gin.H{"date": day.Format("2006-01-02"), "meals": meals})
}

func (h *Handler) updateMeal(c *gin.Context) {
	var req struct {
		Items       []string `json:"items"`
		SpecialMenu *bool    `json:"specialMenu"`
		Occasion    *string  `json:"occasion"`
		Status      *string  `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.Validation("invalid request body"))
		return
	}

	meal, err := h.meals.UpdateMeal(c.Request.Context(), c.Param("id"), mealplan.MealUpdateParams{
		Items:       req.Items,
		SpecialMenu: req.SpecialMenu,
		Occasion:    req.Occasion,
		Status:      req.Status,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"meal": meal})
}

func (h *Handler) deleteMeal(c *gin.Context) {
	if err := h.meals.DeleteMeal(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "meal deleted"})
}

func (h *Handler) submitMealFeedback(c *gin.Context) {
	var req mealplan.FeedbackParams
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.Validation("invalid request body"))
		return
	}

	claims := auth.FromContext(c)
	fb, err := h.meals.SubmitFeedback(c.Request.Context(), claims.Subject, req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"message": "feedback submitted", "feedback": fb})
}

func (h *Handler) listMealFeedback(c *gin.Context) {
	feedback, err := h.meals.ListFeedback(c.Request.Context(), mealplan.FeedbackFilter{
		MealPlanID: c.Query("mealPlanId"),
		Type:       c.Query("type"),
		Status:     c.Query("status"),
		Limit:      intQuery(c, "limit", 50),
		Offset:     intQuery(c, "offset", 0),
	})
	if err != nil {
		fail(c, err)
		return
	}
	if feedback == nil {
		feedback = []mealplan.Feedback{}
	}
	ok(c, http.StatusOK, gin.H{"feedback": feedback})
}

func (h *Handler) resolveMealFeedback(c *gin.Context) {
	var req struct {
		Response string `json:"response"`
		Status   string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.Validation("invalid request body"))
		return
	}

	claims := auth.FromContext(c)
	fb, err := h.meals.ResolveFeedback(c.Request.Context(), claims.Subject, c.Param("id"), req.Response, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"feedback": fb})
}

func (h *Handler) mealStats(c *gin.Context) {
	stats, err := h.meals.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"stats": stats})
}
