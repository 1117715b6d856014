package domain

import "time"

// ActionTokenKind separates the two single-use flows sharing one table.
type ActionTokenKind string

const (
	TokenPasswordReset     ActionTokenKind = "password_reset"
	TokenEmailVerification ActionTokenKind = "email_verification"
)

// ActionToken authorizes exactly one password-reset or email-verification
// action. Redemption flips Consumed in the same statement that checks it,
// so concurrent redeemers race to a single winner.
type ActionToken struct {
	ID        TokenID         `gorm:"type:uuid;primaryKey" db:"id"`
	UserID    UserID          `gorm:"type:uuid;index" db:"user_id"`
	Kind      ActionTokenKind `gorm:"type:text;not null;index" db:"kind"`
	Token     string          `gorm:"type:text;uniqueIndex:ux_action_tokens_token" db:"token"`
	ExpiresAt time.Time       `gorm:"not null" db:"expires_at"`
	Consumed  bool            `gorm:"not null;default:false" db:"consumed"`
	CreatedAt time.Time       `gorm:"not null" db:"created_at"`
}

func (ActionToken) TableName() string { return "action_tokens" }
