package maintenance

import "time"

// Ticket categories.
const (
	CategoryElectrical = "Electrical"
	CategoryPlumbing   = "Plumbing"
	CategoryFurniture  = "Furniture"
	CategoryAC         = "AC/Heating"
	CategoryInternet   = "Internet"
	CategorySecurity   = "Security"
	CategoryCleaning   = "Cleaning"
	CategoryOther      = "Other"
)

// Priorities.
const (
	PriorityLow       = "Low"
	PriorityMedium    = "Medium"
	PriorityHigh      = "High"
	PriorityEmergency = "Emergency"
)

// Statuses. Tickets move Pending -> In Progress -> Completed, or are
// cancelled at any point before completion.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusCancelled  = "Cancelled"
)

// ValidCategory reports whether c is a known category.
func ValidCategory(c string) bool {
	switch c {
	case CategoryElectrical, CategoryPlumbing, CategoryFurniture, CategoryAC,
		CategoryInternet, CategorySecurity, CategoryCleaning, CategoryOther:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Ticket is a maintenance request raised by a resident.
type Ticket struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Category          string     `json:"category"`
	Priority          string     `json:"priority"`
	Status            string     `json:"status"`
	ReportedBy        string     `json:"reportedBy"`
	ReporterName      string     `json:"reporterName,omitempty"`
	RoomNumber        string     `json:"roomNumber"`
	Floor             int        `json:"floor"`
	AssignedTo        *string    `json:"assignedTo,omitempty"`
	AssignedDate      *time.Time `json:"assignedDate,omitempty"`
	CompletedDate     *time.Time `json:"completedDate,omitempty"`
	EstimatedCost     *float64   `json:"estimatedCost,omitempty"`
	ActualCost        *float64   `json:"actualCost,omitempty"`
	Images            []string   `json:"images"`
	AdminRemarks      *string    `json:"adminRemarks,omitempty"`
	StudentRemarks    *string    `json:"studentRemarks,omitempty"`
	ResolutionDetails *string    `json:"resolutionDetails,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}
