package impl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"accounts/internal/domain"
	"accounts/internal/dto"
	"accounts/internal/events"
	"accounts/internal/observability/metrics"
	"accounts/internal/service"
	"accounts/internal/store"

	"github.com/google/uuid"
)

var _ service.UserService = (*UserServiceImpl)(nil)

type UserServiceImpl struct {
	Store dataStore
	now   func() time.Time
}

func NewUserServiceImpl(st *store.Store) *UserServiceImpl {
	return &UserServiceImpl{
		Store: gormStoreAdapter{store: st},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserServiceImpl) Profile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	return s.Get(ctx, userID)
}

func (s *UserServiceImpl) Get(ctx context.Context, targetID string) (*dto.UserResponse, error) {
	uid, err := uuid.Parse(targetID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	var out *dto.UserResponse
	err = s.Store.WithTx(ctx, func(tx storeTx) error {
		user, err := tx.Users().GetByID(ctx, uid)
		if err != nil {
			return notFound(err)
		}
		resp := dto.NewUserResponse(user)
		out = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProfile applies the caller's partial profile changes. Username
// uniqueness is enforced by the store constraint, not a pre-check.
func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID string, r dto.ProfileUpdateRequest) (*dto.UserResponse, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var out *dto.UserResponse
	err = s.Store.WithTx(ctx, func(tx storeTx) error {
		user, err := tx.Users().GetByID(ctx, uid)
		if err != nil {
			return notFound(err)
		}

		if r.Username != nil {
			if *r.Username == "" {
				return ErrEmptyUsername
			}
			user.Username = *r.Username
		}
		if r.RecoveryEmail != nil {
			user.RecoveryEmail = r.RecoveryEmail
		}
		if r.PhoneNumber != nil {
			user.PhoneNumber = r.PhoneNumber
		}
		if r.Address != nil {
			user.Address = r.Address
		}
		if r.Country != nil {
			user.Country = r.Country
		}
		if r.Bio != nil {
			user.Bio = r.Bio
		}

		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		resp := dto.NewUserResponse(user)
		out = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *UserServiceImpl) List(ctx context.Context) ([]dto.UserListItem, error) {
	var out []dto.UserListItem
	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		users, err := tx.Users().List(ctx)
		if err != nil {
			return err
		}
		out = make([]dto.UserListItem, 0, len(users))
		for i := range users {
			out = append(out, dto.NewUserListItem(&users[i]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AdminUpdate changes role and status flags on the target account. The
// acting admin may not block, deactivate or demote themselves. Blocking
// revokes every live session of the target in the same transaction.
func (s *UserServiceImpl) AdminUpdate(ctx context.Context, actorID, targetID string, r dto.AdminUserUpdateRequest) (*dto.UserResponse, error) {
	target, err := uuid.Parse(targetID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return nil, domain.ErrForbidden
	}

	var out *dto.UserResponse
	err = s.Store.WithTx(ctx, func(tx storeTx) error {
		user, err := tx.Users().GetByID(ctx, target)
		if err != nil {
			return notFound(err)
		}
		old := *user

		if r.Role != nil {
			role := domain.Role(*r.Role)
			if !domain.ValidRole(role) {
				return ErrInvalidRole
			}
			user.Role = role
		}
		if r.IsActive != nil {
			user.IsActive = *r.IsActive
		}
		if r.IsBlocked != nil {
			user.IsBlocked = *r.IsBlocked
		}

		if actor == target && lockoutAttempt(&old, user) {
			return ErrSelfUpdate
		}

		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}

		now := s.now()
		for _, e := range events.DiffUser(&old, user, now) {
			slog.Info("admin updated user", "user_id", user.ID, "event", e)
		}

		if !old.IsBlocked && user.IsBlocked {
			count, err := tx.Sessions().RevokeAllForUser(ctx, user.ID, now)
			if err != nil {
				return err
			}
			if count > 0 {
				metrics.SessionsRevokedTotal.WithLabelValues("admin_block").Add(float64(count))
				slog.Info("blocked user sessions revoked", "event", events.SessionsRevoked{
					UserID: user.ID.String(),
					Count:  count,
					At:     now,
				})
			}
		}

		resp := dto.NewUserResponse(user)
		out = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AdminDelete removes a user record. Admin accounts cannot delete
// themselves.
func (s *UserServiceImpl) AdminDelete(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return ErrSelfDelete
	}
	target, err := uuid.Parse(targetID)
	if err != nil {
		return domain.ErrNotFound
	}
	return s.Store.WithTx(ctx, func(tx storeTx) error {
		if _, err := tx.Sessions().RevokeAllForUser(ctx, target, s.now()); err != nil {
			return err
		}
		if err := tx.Users().Delete(ctx, target); err != nil {
			return notFound(err)
		}
		return nil
	})
}

// lockoutAttempt reports whether the update would strip the acting
// admin's own access.
func lockoutAttempt(old, updated *domain.User) bool {
	if !updated.IsActive && old.IsActive {
		return true
	}
	if updated.IsBlocked && !old.IsBlocked {
		return true
	}
	if old.Role == domain.RoleAdmin && updated.Role != domain.RoleAdmin {
		return true
	}
	return false
}

func notFound(err error) error {
	if errors.Is(err, store.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
