package identity

import "time"

// Roles a user account can hold.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User is an account record. Accounts are soft-deleted via IsActive and
// never removed from storage.
type User struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	Role               string     `json:"role"`
	StudentCode        *string    `json:"studentId,omitempty"`
	Department         *string    `json:"department,omitempty"`
	Semester           *int       `json:"semester,omitempty"`
	PhoneNumber        *string    `json:"phoneNumber,omitempty"`
	RoomNumber         *string    `json:"roomNumber,omitempty"`
	IsFaceEnrolled     bool       `json:"isFaceEnrolled"`
	ProfileImageURL    *string    `json:"profileImage,omitempty"`
	CloudinaryPublicID *string    `json:"-"`
	IsActive           bool       `json:"isActive"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// Code returns the student code or "".
func (u *User) Code() string {
	if u == nil || u.StudentCode == nil {
		return ""
	}
	return *u.StudentCode
}
