package hostel

import "time"

// Room types.
const (
	TypeSingle = "single"
	TypeDouble = "double"
	TypeTriple = "triple"
	TypeQuad   = "quad"
)

// Occupant is a student currently assigned to a room.
type Occupant struct {
	UserID      string  `json:"id"`
	Name        string  `json:"name"`
	StudentCode *string `json:"studentId,omitempty"`
	Email       string  `json:"email"`
	Department  *string `json:"department,omitempty"`
}

// Room is a hostel room. An identity appears in at most one room's occupant
// set system-wide; occupancy never exceeds capacity.
type Room struct {
	ID          string     `json:"id"`
	RoomNumber  string     `json:"roomNumber"`
	Floor       int        `json:"floor"`
	Capacity    int        `json:"capacity"`
	Type        string     `json:"type"`
	Facilities  []string   `json:"facilities"`
	IsAvailable bool       `json:"isAvailable"`
	Remarks     *string    `json:"remarks,omitempty"`
	Occupants   []Occupant `json:"occupants"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// AvailableBeds returns capacity minus current occupancy.
func (r *Room) AvailableBeds() int {
	return r.Capacity - len(r.Occupants)
}
