package service

import (
	"context"

	"accounts/internal/dto"
)

// AuthService drives the credential lifecycle: registration, login,
// logout, token refresh, password changes and the reset/verification
// flows. Every call is independent; session state is reconstructed per
// request from the presented token and store lookups.
type AuthService interface {
	Register(ctx context.Context, r dto.RegisterRequest, ip, ua string) (*dto.UserResponse, error)
	Login(ctx context.Context, r dto.LoginRequest, ip, ua string) (*dto.LoginResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken, ip, ua string) (*dto.TokenResponse, error)
	ChangePassword(ctx context.Context, userID string, r dto.PasswordChangeRequest) error
	RequestPasswordReset(ctx context.Context, r dto.PasswordResetRequest, ip string) error
	ConfirmPasswordReset(ctx context.Context, r dto.PasswordResetConfirmRequest) error
	RequestEmailVerification(ctx context.Context, r dto.EmailVerificationRequest, ip string) error
	ConfirmEmailVerification(ctx context.Context, r dto.EmailVerificationConfirmRequest) error
}
