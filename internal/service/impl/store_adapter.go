package impl

import (
	"context"
	"errors"
	"time"

	"accounts/internal/domain"
	"accounts/internal/store"

	"github.com/google/uuid"
)

// Narrow views over the persistence layer, so service logic can be
// exercised against in-memory fakes.

type dataStore interface {
	WithTx(ctx context.Context, fn func(tx storeTx) error) error
}

type storeTx interface {
	Users() userStore
	Credentials() credentialStore
	ActionTokens() actionTokenStore
	Sessions() sessionRevoker
}

type userStore interface {
	Create(ctx context.Context, usr *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, usr *domain.User) error
	SetEmailVerified(ctx context.Context, userID uuid.UUID) error
	SetLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type credentialStore interface {
	UpsertPassword(ctx context.Context, c *domain.PasswordCredential) error
	GetPasswordByUserID(ctx context.Context, userID uuid.UUID) (*domain.PasswordCredential, error)
}

type actionTokenStore interface {
	Create(ctx context.Context, t *domain.ActionToken) error
	Consume(ctx context.Context, token string, kind domain.ActionTokenKind, now time.Time) (*domain.ActionToken, error)
}

type sessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
}

// gormStoreAdapter bridges the concrete gorm store to the narrow views.

type gormStoreAdapter struct {
	store *store.Store
}

func (g gormStoreAdapter) WithTx(ctx context.Context, fn func(tx storeTx) error) error {
	if g.store == nil {
		return errors.New("nil store")
	}
	return g.store.WithTx(ctx, func(tx *store.Store) error {
		return fn(gormTxAdapter{tx: tx})
	})
}

type gormTxAdapter struct {
	tx *store.Store
}

func (g gormTxAdapter) Users() userStore { return g.tx.Users() }

func (g gormTxAdapter) Credentials() credentialStore { return g.tx.Credentials() }

func (g gormTxAdapter) ActionTokens() actionTokenStore { return g.tx.ActionTokens() }

func (g gormTxAdapter) Sessions() sessionRevoker { return g.tx.Sessions() }
