package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"accounts/internal/domain"
	impl "accounts/internal/service/impl"
)

// errorResponse is the stable error shape: a machine-readable kind plus
// a human-readable detail. Internal state never leaks through it.
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind, status := classify(err)
	detail := err.Error()
	if status >= http.StatusInternalServerError {
		// Operator problem, not caller input; keep the body generic.
		detail = "service temporarily unavailable"
	}
	writeJSON(w, status, errorResponse{Error: kind, Detail: detail})
}

func classify(err error) (string, int) {
	switch {
	case errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrDuplicateUsername):
		return "duplicate_resource", http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUserDisabled),
		errors.Is(err, domain.ErrUserBlocked):
		return "unauthorized", http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid_token", http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden", http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited", http.StatusTooManyRequests
	case errors.Is(err, domain.ErrDependency):
		return "dependency_unavailable", http.StatusServiceUnavailable
	case isValidation(err):
		return "validation_error", http.StatusBadRequest
	}
	// Anything unrecognized is treated as a dependency fault.
	return "dependency_unavailable", http.StatusServiceUnavailable
}

func isValidation(err error) bool {
	for _, v := range []error{
		impl.ErrEmptyPassword,
		impl.ErrEmptyCredential,
		impl.ErrEmptyUsername,
		impl.ErrEmptyEmail,
		impl.ErrInvalidEmail,
		impl.ErrPasswordLength,
		impl.ErrPasswordMismatch,
		impl.ErrInvalidRole,
		impl.ErrSelfUpdate,
		impl.ErrSelfDelete,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
