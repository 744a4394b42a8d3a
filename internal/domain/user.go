package domain

import "time"

// Role is the coarse permission tier trusted from the identity provider.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSupport  Role = "support"
	RoleEmployee Role = "employee"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleSupport || r == RoleEmployee
}

// User is a directory entry for requesters and technicians.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Department   string    `json:"department"`
	Position     string    `json:"position"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ref returns the denormalized id+name pair.
func (u *User) Ref() UserRef {
	name := u.FullName
	if name == "" {
		name = u.Username
	}
	return UserRef{ID: u.ID, Name: name}
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID         string
	Name       string
	Role       Role
	Department string
}

func (a Actor) Ref() UserRef {
	return UserRef{ID: a.ID, Name: a.Name}
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsStaff reports membership in the support or admin tiers.
func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleSupport
}
