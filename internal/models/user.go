package models

import "time"

// UserRole represents the roles known to the tutoring program.
type UserRole string

const (
	RoleTutor         UserRole = "TUTOR"
	RoleTutee         UserRole = "TUTEE"
	RoleAdministrator UserRole = "ADMINISTRATOR"
)

// User is a program member as exposed by the directory. Role and limit are
// managed elsewhere; this service only reads them.
type User struct {
	ID                  string    `db:"id" json:"id"`
	ExternalID          *string   `db:"external_id" json:"external_id,omitempty"`
	FullName            string    `db:"full_name" json:"full_name"`
	Email               string    `db:"email" json:"email"`
	Role                UserRole  `db:"role" json:"role"`
	ChapterID           *string   `db:"chapter_id" json:"chapter_id,omitempty"`
	ActiveTutoringLimit int       `db:"active_tutoring_limit" json:"active_tutoring_limit"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// IsAdministrator reports whether the user holds the administrator role.
func (u *User) IsAdministrator() bool {
	return u != nil && u.Role == RoleAdministrator
}

// CanTutor reports whether the user may be assigned as a tutor.
func (u *User) CanTutor() bool {
	return u != nil && (u.Role == RoleTutor || u.Role == RoleAdministrator)
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}
