// Package authz evaluates route capabilities against an authenticated
// principal. It is pure: no HTTP, no storage, no clock.
package authz

import (
	"accounts/internal/domain"

	"github.com/google/uuid"
)

// Principal is the identity snapshot reconstructed per request from the
// access token plus a user lookup.
type Principal struct {
	UserID   domain.UserID
	Role     domain.Role
	Active   bool
	Blocked  bool
	Verified bool
}

func NewPrincipal(u *domain.User) Principal {
	return Principal{
		UserID:   u.ID,
		Role:     u.Role,
		Active:   u.IsActive,
		Blocked:  u.IsBlocked,
		Verified: u.EmailVerified,
	}
}

type Capability string

const (
	Authenticated Capability = "authenticated"
	Active        Capability = "active"
	NotBlocked    Capability = "not_blocked"
	Verified      Capability = "verified"
	Admin         Capability = "admin"
	Staff         Capability = "staff"
)

// Allows reports whether p satisfies a single capability. An anonymous
// principal (nil) satisfies nothing.
func Allows(p *Principal, c Capability) bool {
	if p == nil || p.UserID == uuid.Nil {
		return false
	}
	switch c {
	case Authenticated:
		return true
	case Active:
		return p.Active
	case NotBlocked:
		return !p.Blocked
	case Verified:
		return p.Active && p.Verified
	case Admin:
		return p.Role == domain.RoleAdmin
	case Staff:
		return p.Role == domain.RoleAdmin || p.Role == domain.RoleModerator
	}
	return false
}

// Require evaluates capabilities in order and returns the first one that
// fails, plus false. Capabilities compose by conjunction.
func Require(p *Principal, caps ...Capability) (Capability, bool) {
	for _, c := range caps {
		if !Allows(p, c) {
			return c, false
		}
	}
	return "", true
}

// OwnerOrAdmin grants admins unconditionally and owners on identity
// match. Evaluated after identity-level capabilities.
func OwnerOrAdmin(p *Principal, ownerID domain.UserID) bool {
	if p == nil || p.UserID == uuid.Nil {
		return false
	}
	if p.Role == domain.RoleAdmin {
		return true
	}
	return p.UserID == ownerID
}
