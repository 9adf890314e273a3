package mealplan

import "time"

// Meal types, in serving order.
const (
	MealBreakfast = "Breakfast"
	MealLunch     = "Lunch"
	MealSnacks    = "Snacks"
	MealDinner    = "Dinner"
)

// MealTypes lists the four daily slots in serving order.
var MealTypes = []string{MealBreakfast, MealLunch, MealSnacks, MealDinner}

// ValidMealType reports whether t is a known meal slot.
func ValidMealType(t string) bool {
	switch t {
	case MealBreakfast, MealLunch, MealSnacks, MealDinner:
		return true
	}
	return false
}

// Weekly plan statuses.
const (
	WeeklyPending   = "pending"
	WeeklyProcessed = "processed"
	WeeklyFailed    = "failed"
	WeeklyActive    = "active"
	WeeklyCompleted = "completed"
)

// Daily meal statuses.
const (
	MealPlanned   = "planned"
	MealPrepared  = "prepared"
	MealServed    = "served"
	MealCompleted = "completed"
)

// ValidMealStatus reports whether s is a known daily meal status.
func ValidMealStatus(s string) bool {
	switch s {
	case MealPlanned, MealPrepared, MealServed, MealCompleted:
		return true
	}
	return false
}

// Feedback types and statuses.
const (
	FeedbackReview    = "review"
	FeedbackComplaint = "complaint"

	FeedbackPending   = "pending"
	FeedbackReviewing = "reviewing"
	FeedbackResolved  = "resolved"
	FeedbackClosed    = "closed"
)

// WeeklyPlan is an uploaded mess menu document for one week.
type WeeklyPlan struct {
	ID            string    `json:"id"`
	WeekStart     time.Time `json:"weekStartDate"`
	WeekEnd       time.Time `json:"weekEndDate"`
	Title         string    `json:"title"`
	FileName      *string   `json:"fileName,omitempty"`
	FileURL       *string   `json:"fileUrl,omitempty"`
	FileType      *string   `json:"fileType,omitempty"`
	FileSize      *int64    `json:"fileSize,omitempty"`
	ExtractedText *string   `json:"extractedText,omitempty"`
	IsExtracted   bool      `json:"isExtracted"`
	Status        string    `json:"status"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Meal is one served slot on one day. At most one row per (date, type).
type Meal struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	MealType     string    `json:"mealType"`
	Items        []string  `json:"items"`
	SpecialMenu  bool      `json:"specialMenu"`
	Occasion     *string   `json:"occasion,omitempty"`
	Status       string    `json:"status"`
	WeeklyPlanID *string   `json:"weeklyPlanId,omitempty"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Feedback is a resident's review or complaint about one meal. One entry per
// student per meal.
type Feedback struct {
	ID                string     `json:"id"`
	MealPlanID        string     `json:"mealPlan"`
	StudentID         string     `json:"student"`
	StudentName       string     `json:"studentName,omitempty"`
	FeedbackType      string     `json:"feedbackType"`
	Rating            *int       `json:"rating,omitempty"`
	Taste             *int       `json:"taste,omitempty"`
	Quantity          *int       `json:"quantity,omitempty"`
	Hygiene           *int       `json:"hygiene,omitempty"`
	Comments          *string    `json:"comments,omitempty"`
	Suggestions       *string    `json:"suggestions,omitempty"`
	Priority          string     `json:"priority"`
	ComplaintCategory *string    `json:"complaintCategory,omitempty"`
	Status            string     `json:"status"`
	AdminResponse     *string    `json:"adminResponse,omitempty"`
	ResolvedBy        *string    `json:"resolvedBy,omitempty"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// defaultMenu is the fallback mess menu, one rotation per weekday. Used by
// Process when a weekly plan has no machine-readable schedule.
var defaultMenu = map[string][][]string{
	MealBreakfast: {
		{"Idli", "Sambar", "Coconut Chutney", "Tea"},
		{"Poha", "Boiled Eggs", "Banana", "Coffee"},
		{"Aloo Paratha", "Curd", "Pickle", "Tea"},
		{"Upma", "Medu Vada", "Chutney", "Coffee"},
		{"Bread Toast", "Omelette", "Jam", "Tea"},
		{"Masala Dosa", "Sambar", "Chutney", "Coffee"},
		{"Puri", "Chana Masala", "Halwa", "Tea"},
	},
	MealLunch: {
		{"Rice", "Dal Tadka", "Mixed Veg", "Roti", "Salad"},
		{"Jeera Rice", "Rajma", "Aloo Gobi", "Roti", "Curd"},
		{"Rice", "Sambar", "Cabbage Poriyal", "Roti", "Papad"},
		{"Veg Pulao", "Raita", "Paneer Butter Masala", "Roti"},
		{"Rice", "Dal Fry", "Bhindi Masala", "Roti", "Salad"},
		{"Lemon Rice", "Chicken Curry", "Veg Kurma", "Roti"},
		{"Veg Biryani", "Raita", "Gulab Jamun", "Papad"},
	},
	MealSnacks: {
		{"Samosa", "Tea"},
		{"Veg Sandwich", "Coffee"},
		{"Pakora", "Tea"},
		{"Biscuits", "Banana", "Tea"},
		{"Bhel Puri", "Coffee"},
		{"Vada Pav", "Tea"},
		{"Cake Slice", "Coffee"},
	},
	MealDinner: {
		{"Chapati", "Paneer Curry", "Rice", "Dal"},
		{"Chapati", "Egg Curry", "Rice", "Rasam"},
		{"Chapati", "Veg Korma", "Rice", "Dal"},
		{"Chapati", "Chana Masala", "Rice", "Kheer"},
		{"Chapati", "Mixed Veg Curry", "Rice", "Sambar"},
		{"Chapati", "Chicken Masala", "Rice", "Dal"},
		{"Chapati", "Dal Makhani", "Veg Fried Rice", "Ice Cream"},
	},
}

// DefaultItems returns the fallback items for a slot on the given day of the
// planned week (0-6).
func DefaultItems(mealType string, dayIndex int) []string {
	rotations, ok := defaultMenu[mealType]
	if !ok || len(rotations) == 0 {
		return []string{}
	}
	items := rotations[((dayIndex%len(rotations))+len(rotations))%len(rotations)]
	out := make([]string, len(items))
	copy(out, items)
	return out
}
