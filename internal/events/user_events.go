package events

import (
	"time"

	"accounts/internal/domain"
)

type UserRegistered struct {
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

type RoleChanged struct {
	UserID string    `json:"userId"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	At     time.Time `json:"at"`
}

type ActiveChanged struct {
	UserID string    `json:"userId"`
	Active bool      `json:"active"`
	At     time.Time `json:"at"`
}

type BlockedChanged struct {
	UserID  string    `json:"userId"`
	Blocked bool      `json:"blocked"`
	At      time.Time `json:"at"`
}

type SessionsRevoked struct {
	UserID string    `json:"userId"`
	Count  int64     `json:"count"`
	At     time.Time `json:"at"`
}

// DiffUser compares two explicit snapshots of the same user and returns
// one event per observable change. Both snapshots are handed in; nothing
// is inferred from in-flight mutation.
func DiffUser(old, updated *domain.User, at time.Time) []any {
	var out []any
	if old == nil || updated == nil {
		return out
	}
	id := updated.ID.String()
	if old.Role != updated.Role {
		out = append(out, RoleChanged{UserID: id, From: string(old.Role), To: string(updated.Role), At: at})
	}
	if old.IsActive != updated.IsActive {
		out = append(out, ActiveChanged{UserID: id, Active: updated.IsActive, At: at})
	}
	if old.IsBlocked != updated.IsBlocked {
		out = append(out, BlockedChanged{UserID: id, Blocked: updated.IsBlocked, At: at})
	}
	return out
}
