package service

import (
	"context"

	"accounts/internal/dto"
)

// UserService covers profile and administrative user management.
type UserService interface {
	Profile(ctx context.Context, userID string) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID string, r dto.ProfileUpdateRequest) (*dto.UserResponse, error)
	List(ctx context.Context) ([]dto.UserListItem, error)
	Get(ctx context.Context, targetID string) (*dto.UserResponse, error)
	AdminUpdate(ctx context.Context, actorID, targetID string, r dto.AdminUserUpdateRequest) (*dto.UserResponse, error)
	AdminDelete(ctx context.Context, actorID, targetID string) error
}
