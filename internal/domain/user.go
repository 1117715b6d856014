package domain

import "time"

// Role controls what administrative surface a user may reach.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// ValidRole reports whether r is one of the enumerated roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

type User struct {
	ID            UserID     `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	Email         string     `gorm:"type:citext;uniqueIndex:ux_users_email" db:"email" json:"email"`
	EmailVerified bool       `gorm:"not null;default:false" db:"email_verified" json:"emailVerified"`
	Username      string     `gorm:"type:citext;uniqueIndex:ux_users_username" db:"username" json:"username"`
	Role          Role       `gorm:"type:text;not null;default:user" db:"role" json:"role"`
	IsActive      bool       `gorm:"not null;default:true" db:"is_active" json:"isActive"`
	IsBlocked     bool       `gorm:"not null;default:false" db:"is_blocked" json:"isBlocked"`
	RecoveryEmail *string    `gorm:"type:citext" db:"recovery_email" json:"recoveryEmail,omitempty"`
	PhoneNumber   *string    `gorm:"type:text" db:"phone_number" json:"phoneNumber,omitempty"`
	Address       *string    `gorm:"type:text" db:"address" json:"address,omitempty"`
	Country       *string    `gorm:"type:text" db:"country" json:"country,omitempty"`
	Bio           *string    `gorm:"type:text" db:"bio" json:"bio,omitempty"`
	LastLogin     *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u *User) IsStaff() bool { return u.Role == RoleAdmin || u.Role == RoleModerator }

// CanLogin reports whether the account may obtain a new session.
func (u *User) CanLogin() bool { return u.IsActive && !u.IsBlocked }
