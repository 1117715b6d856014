package dto

import (
	"time"

	"accounts/internal/domain"
)

type UserResponse struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"emailVerified"`
	IsActive      bool       `json:"isActive"`
	IsBlocked     bool       `json:"isBlocked"`
	RecoveryEmail *string    `json:"recoveryEmail,omitempty"`
	PhoneNumber   *string    `json:"phoneNumber,omitempty"`
	Address       *string    `json:"address,omitempty"`
	Country       *string    `json:"country,omitempty"`
	Bio           *string    `json:"bio,omitempty"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:            u.ID.String(),
		Username:      u.Username,
		Email:         u.Email,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
		IsActive:      u.IsActive,
		IsBlocked:     u.IsBlocked,
		RecoveryEmail: u.RecoveryEmail,
		PhoneNumber:   u.PhoneNumber,
		Address:       u.Address,
		Country:       u.Country,
		Bio:           u.Bio,
		LastLogin:     u.LastLogin,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

type ProfileUpdateRequest struct {
	Username      *string `json:"username,omitempty"`
	RecoveryEmail *string `json:"recoveryEmail,omitempty"`
	PhoneNumber   *string `json:"phoneNumber,omitempty"`
	Address       *string `json:"address,omitempty"`
	Country       *string `json:"country,omitempty"`
	Bio           *string `json:"bio,omitempty"`
}

// UserListItem is the trimmed shape for the admin list endpoint.
type UserListItem struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	IsBlocked bool      `json:"isBlocked"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewUserListItem(u *domain.User) UserListItem {
	return UserListItem{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		IsBlocked: u.IsBlocked,
		CreatedAt: u.CreatedAt,
	}
}
