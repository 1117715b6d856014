package store

import (
	"context"
	"errors"

	"accounts/internal/domain"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

// AutoMigrate creates or updates the schema for every persisted entity.
func (s *Store) AutoMigrate(ctx context.Context) error {
	return s.DB.WithContext(ctx).AutoMigrate(
		&domain.User{},
		&domain.PasswordCredential{},
		&domain.Session{},
		&domain.ActionToken{},
	)
}

var ErrRecordNotFound = errors.New("record not found")

// translateUnique maps a Postgres unique-constraint violation to the
// matching domain error. Uniqueness lives in the constraints, not in
// application-level check-then-write, so this is where duplicate
// registrations surface.
func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "ux_users_email":
		return domain.ErrDuplicateEmail
	case "ux_users_username":
		return domain.ErrDuplicateUsername
	}
	return err
}
