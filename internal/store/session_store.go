package store

import (
	"context"
	"time"

	"accounts/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionStore struct{ db *gorm.DB }

func (s *Store) Sessions() *SessionStore { return &SessionStore{s.DB} }

func (ss *SessionStore) Create(ctx context.Context, s *domain.Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.RefreshID == uuid.Nil {
		s.RefreshID = uuid.New()
	}
	return ss.db.WithContext(ctx).Create(s).Error
}

func (ss *SessionStore) GetByRefreshID(ctx context.Context, rid uuid.UUID) (*domain.Session, error) {
	var s domain.Session
	if err := ss.db.WithContext(ctx).First(&s, "refresh_id = ?", rid).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Rotate swaps the refresh id and extends expiry in one conditional
// UPDATE keyed on the presented refresh id. A concurrent rotation or
// revocation makes RowsAffected zero, so the old and new tokens are
// never simultaneously live.
func (ss *SessionStore) Rotate(ctx context.Context, id uuid.UUID, oldRID, newRID uuid.UUID, expires time.Time, ip, ua string) error {
	tx := ss.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ? AND refresh_id = ? AND revoked_at IS NULL", id, oldRID).
		Updates(map[string]any{
			"refresh_id": newRID,
			"expires_at": expires,
			"ip":         ip,
			"user_agent": ua,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Revoke is idempotent: revoking an already revoked session keeps the
// original revocation time.
func (ss *SessionStore) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	return ss.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at).Error
}

func (ss *SessionStore) RevokeAllForUser(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	tx := ss.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at)
	return tx.RowsAffected, tx.Error
}

// DeleteExpired clears sessions whose lifetime ended before cutoff.
// Run from a maintenance loop; live sessions are never touched.
func (ss *SessionStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := ss.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&domain.Session{})
	return tx.RowsAffected, tx.Error
}
