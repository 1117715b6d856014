package service

import (
	"context"

	"accounts/internal/domain"
)

// ActionTokenService issues and redeems the single-use tokens behind
// password reset and email verification. Redemption is atomic with the
// action it authorizes.
type ActionTokenService interface {
	Issue(ctx context.Context, userID domain.UserID, kind domain.ActionTokenKind) (string, error)
	RedeemPasswordReset(ctx context.Context, token string, userID domain.UserID, newPassword string) error
	RedeemEmailVerification(ctx context.Context, token string, userID domain.UserID) error
}
