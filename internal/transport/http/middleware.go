package http

import (
	"context"
	"net/http"
	"strings"

	"accounts/internal/authz"
	"accounts/internal/domain"
	"accounts/internal/service"
)

type ctxKey string

const (
	principalKey ctxKey = "principal"
	sessionKey   ctxKey = "session_id"
)

// principalUserStore is the slice of the store the auth middleware needs.
type principalUserStore interface {
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
}

// PrincipalFrom returns the authenticated principal attached by RequireAuth.
func PrincipalFrom(ctx context.Context) (*authz.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*authz.Principal)
	return p, ok
}

// SessionFrom returns the session id carried by the access token.
func SessionFrom(ctx context.Context) (domain.SessionID, bool) {
	sid, ok := ctx.Value(sessionKey).(domain.SessionID)
	return sid, ok
}

// RequireAuth verifies the bearer token and loads the live user record so
// downstream checks see current flags, not the ones frozen into the token.
func RequireAuth(tokens service.TokenService, users principalUserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeError(w, domain.ErrInvalidToken)
				return
			}
			ident, err := tokens.VerifyAccess(raw)
			if err != nil {
				writeError(w, domain.ErrInvalidToken)
				return
			}
			u, err := users.GetByID(r.Context(), ident.UserID)
			if err != nil {
				writeError(w, domain.ErrInvalidToken)
				return
			}
			p := authz.NewPrincipal(u)
			ctx := context.WithValue(r.Context(), principalKey, &p)
			ctx = context.WithValue(ctx, sessionKey, ident.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCaps gates a subtree on capabilities of the already-attached
// principal. A missing principal reads as unauthenticated; any other
// failed capability is a forbidden, not an unauthorized.
func RequireCaps(caps ...authz.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				writeError(w, domain.ErrInvalidToken)
				return
			}
			if failed, allowed := authz.Require(p, caps...); !allowed {
				if failed == authz.Authenticated {
					writeError(w, domain.ErrInvalidToken)
					return
				}
				writeError(w, domain.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
