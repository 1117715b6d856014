package impl

import "errors"

var (
	ErrEmptyPassword    = errors.New("empty password")
	ErrEmptyCredential  = errors.New("empty credential(s)")
	ErrEmptyUsername    = errors.New("empty username")
	ErrEmptyEmail       = errors.New("empty email")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrPasswordLength   = errors.New("password must be at least 8 characters")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrInvalidRole      = errors.New("invalid role")
	ErrSelfUpdate       = errors.New("admins cannot block, deactivate or demote their own account")
	ErrSelfDelete       = errors.New("admins cannot delete their own account")
)
