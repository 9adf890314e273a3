package visitor

import "time"

// Visit purposes. Meeting and Family Visit require a host student.
const (
	PurposeMeeting     = "Meeting"
	PurposeDelivery    = "Delivery"
	PurposeMaintenance = "Maintenance"
	PurposeFamilyVisit = "Family Visit"
	PurposeOfficial    = "Official"
	PurposeOther       = "Other"
)

// ValidPurpose reports whether p is a known purpose.
func ValidPurpose(p string) bool {
	switch p {
	case PurposeMeeting, PurposeDelivery, PurposeMaintenance, PurposeFamilyVisit, PurposeOfficial, PurposeOther:
		return true
	}
	return false
}

// Visitor is a gate log entry. IsActive means the visitor is still on the
// premises.
type Visitor struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Email        *string    `json:"email,omitempty"`
	Purpose      string     `json:"purpose"`
	StudentID    *string    `json:"studentToVisit,omitempty"`
	RoomNumber   *string    `json:"roomNumber,omitempty"`
	IDProof      string     `json:"idProof"`
	IDNumber     string     `json:"idNumber"`
	Address      string     `json:"address"`
	CheckInTime  time.Time  `json:"checkInTime"`
	CheckOutTime *time.Time `json:"checkOutTime,omitempty"`
	IsActive     bool       `json:"isActive"`
	ApprovedBy   *string    `json:"approvedBy,omitempty"`
	Remarks      *string    `json:"remarks,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// DurationMinutes returns the completed visit length, nil while active.
func (v *Visitor) DurationMinutes() *int {
	if v.CheckOutTime == nil {
		return nil
	}
	minutes := int(v.CheckOutTime.Sub(v.CheckInTime).Minutes())
	return &minutes
}
