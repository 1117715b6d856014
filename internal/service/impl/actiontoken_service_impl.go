package impl

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"accounts/internal/domain"
	"accounts/internal/observability/metrics"
	"accounts/internal/service"
	"accounts/internal/store"

	"github.com/google/uuid"
)

var _ service.ActionTokenService = (*ActionTokenServiceImpl)(nil)

// ActionTokenServiceImpl manages the single-use tokens behind password
// reset and email verification. A token is invalidated in the same
// transaction that applies its action, so concurrent redemptions of the
// same token have exactly one winner.
type ActionTokenServiceImpl struct {
	Store           dataStore
	PasswordService service.PasswordService
	TTL             time.Duration
	now             func() time.Time
}

func NewActionTokenService(st *store.Store, passwordService service.PasswordService, ttl time.Duration) *ActionTokenServiceImpl {
	return &ActionTokenServiceImpl{
		Store:           gormStoreAdapter{store: st},
		PasswordService: passwordService,
		TTL:             ttl,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Issue mints an opaque URL-safe token (32 bytes of entropy) tied to the
// user and kind, valid for the configured TTL.
func (a *ActionTokenServiceImpl) Issue(ctx context.Context, userID domain.UserID, kind domain.ActionTokenKind) (string, error) {
	token, err := newOpaqueToken()
	if err != nil {
		return "", err
	}
	now := a.now()
	err = a.Store.WithTx(ctx, func(tx storeTx) error {
		return tx.ActionTokens().Create(ctx, &domain.ActionToken{
			ID:        uuid.New(),
			UserID:    userID,
			Kind:      kind,
			Token:     token,
			ExpiresAt: now.Add(a.TTL),
			CreatedAt: now,
		})
	})
	if err != nil {
		metrics.ActionTokensTotal.WithLabelValues(string(kind), "issue", "failure").Inc()
		return "", err
	}
	metrics.ActionTokensTotal.WithLabelValues(string(kind), "issue", "success").Inc()
	return token, nil
}

// RedeemPasswordReset consumes the token, installs the new secret and
// revokes every live session of the user, all in one transaction.
// Unknown, expired, consumed and mismatched tokens are the same error.
func (a *ActionTokenServiceImpl) RedeemPasswordReset(ctx context.Context, token string, userID domain.UserID, newPassword string) error {
	err := a.Store.WithTx(ctx, func(tx storeTx) error {
		at, err := tx.ActionTokens().Consume(ctx, token, domain.TokenPasswordReset, a.now())
		if err != nil {
			return domain.ErrInvalidToken
		}
		if at.UserID != userID {
			return domain.ErrInvalidToken
		}

		hash, salt, paramsJSON, algo, ver, err := a.PasswordService.Hash(newPassword)
		if err != nil {
			return err
		}
		if err := tx.Credentials().UpsertPassword(ctx, &domain.PasswordCredential{
			UserID:      userID,
			Algo:        algo,
			Hash:        hash,
			Salt:        salt,
			ParamsJSON:  paramsJSON,
			PasswordVer: ver,
		}); err != nil {
			return err
		}

		// Force re-login everywhere with the new secret.
		count, err := tx.Sessions().RevokeAllForUser(ctx, userID, a.now())
		if err != nil {
			return err
		}
		if count > 0 {
			metrics.SessionsRevokedTotal.WithLabelValues("password_reset").Add(float64(count))
		}
		return nil
	})
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.ActionTokensTotal.WithLabelValues(string(domain.TokenPasswordReset), "redeem", result).Inc()
	return err
}

// RedeemEmailVerification consumes the token and flips the user's
// verified flag in one transaction.
func (a *ActionTokenServiceImpl) RedeemEmailVerification(ctx context.Context, token string, userID domain.UserID) error {
	err := a.Store.WithTx(ctx, func(tx storeTx) error {
		at, err := tx.ActionTokens().Consume(ctx, token, domain.TokenEmailVerification, a.now())
		if err != nil {
			return domain.ErrInvalidToken
		}
		if at.UserID != userID {
			return domain.ErrInvalidToken
		}
		return tx.Users().SetEmailVerified(ctx, userID)
	})
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.ActionTokensTotal.WithLabelValues(string(domain.TokenEmailVerification), "redeem", result).Inc()
	return err
}

func newOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
