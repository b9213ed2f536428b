package model

import "time"

// Role is the account type carried by a User.  The backend only knows two
// roles; anything else decodes as-is and is treated as a student by the
// navigation helpers.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// IsAdmin reports whether r is the admin role.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// ParseRole maps a raw role string onto a Role.  Empty input yields
// RoleStudent, matching the signup default.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleStudent
}

// User is the snapshot returned by the backend on signin/signup and kept in
// durable storage under the "user" key.  It is never refreshed in place; a
// new snapshot only arrives with the next successful auth operation.
//
// Fields:
//  ID        – backend identifier.
//  Fullname  – display name.
//  Email     – login email.
//  Role      – student or admin.
//  IsActive  – account flag maintained by the backend.
//  CreatedAt – account creation timestamp.
type User struct {
	ID        string    `json:"id"`
	Fullname  string    `json:"fullname"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}
