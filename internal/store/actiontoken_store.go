package store

import (
	"context"
	"time"

	"accounts/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActionTokenStore struct{ db *gorm.DB }

func (s *Store) ActionTokens() *ActionTokenStore { return &ActionTokenStore{s.DB} }

func (ts *ActionTokenStore) Create(ctx context.Context, t *domain.ActionToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return ts.db.WithContext(ctx).Create(t).Error
}

// Consume redeems a token in a single guarded UPDATE. The consumed flag
// is checked and set in the same statement, so two concurrent redeemers
// race to exactly one winner; the loser gets ErrRecordNotFound. Expired
// and already-consumed tokens are indistinguishable to the caller.
func (ts *ActionTokenStore) Consume(ctx context.Context, token string, kind domain.ActionTokenKind, now time.Time) (*domain.ActionToken, error) {
	tx := ts.db.WithContext(ctx).
		Model(&domain.ActionToken{}).
		Where("token = ? AND kind = ? AND consumed = false AND expires_at > ?", token, kind, now).
		Update("consumed", true)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}

	var out domain.ActionToken
	if err := ts.db.WithContext(ctx).First(&out, "token = ? AND kind = ?", token, kind).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteExpired garbage-collects tokens that were never redeemed.
func (ts *ActionTokenStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := ts.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&domain.ActionToken{})
	return tx.RowsAffected, tx.Error
}
