package dto

import (
	"time"

	"github.com/spec-kit/request-tracker/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of a directory user.
type UserResponse struct {
	ID         string      `json:"id"`
	Username   string      `json:"username"`
	FullName   string      `json:"full_name"`
	Department string      `json:"department"`
	Position   string      `json:"position"`
	Role       domain.Role `json:"role"`
}

// NewUserResponse drops credentials.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		Department: u.Department,
		Position:   u.Position,
		Role:       u.Role,
	}
}
