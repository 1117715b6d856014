package service

import (
	"context"

	"accounts/internal/domain"
	"accounts/internal/dto"
)

type TokenService interface {
	Issue(ctx context.Context, user *domain.User, ip, ua string) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken, ip, ua string) (*dto.TokenResponse, error)
	Revoke(ctx context.Context, refreshToken string) error
	RevokeAll(ctx context.Context, userID domain.UserID) (int64, error)
	// VerifyAccess is a pure signature+expiry check; no store lookup.
	VerifyAccess(tokenStr string) (*AccessIdentity, error)
}

// AccessIdentity is what a verified access token asserts about the caller.
type AccessIdentity struct {
	UserID    domain.UserID
	SessionID domain.SessionID
	Role      domain.Role
}
