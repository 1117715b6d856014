package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"accounts/internal/domain"
	"accounts/internal/dto"
	"accounts/internal/netutil"
	"accounts/internal/service"
)

// Handlers binds the account services to their HTTP routes.
type Handlers struct {
	Auth       service.AuthService
	Users      service.UserService
	Tokens     service.TokenService
	UserLookup principalUserStore
	TrustProxy bool
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.Auth.Register(r.Context(), req, h.clientIP(r), userAgent(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.Auth.Login(r.Context(), req, h.clientIP(r), userAgent(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	var req dto.LogoutRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Auth.Logout(r.Context(), req.RefreshToken); err != nil {
		// A bad refresh token on logout is caller input, not an auth failure.
		if errors.Is(err, domain.ErrInvalidToken) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Detail: "invalid refresh token"})
			return
		}
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusResetContent)
}

func (h *Handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.Auth.Refresh(r.Context(), req.RefreshToken, h.clientIP(r), userAgent(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) changePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, domain.ErrInvalidToken)
		return
	}
	var req dto.PasswordChangeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Auth.ChangePassword(r.Context(), p.UserID.String(), req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DetailResponse{Detail: "password updated"})
}

// requestPasswordReset answers identically for known and unknown emails.
func (h *Handlers) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Auth.RequestPasswordReset(r.Context(), req, h.clientIP(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DetailResponse{Detail: "if the email exists, a reset link has been sent"})
}

func (h *Handlers) confirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetConfirmRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Auth.ConfirmPasswordReset(r.Context(), req); err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Detail: "invalid or expired token"})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DetailResponse{Detail: "password has been reset"})
}

func (h *Handlers) requestEmailVerification(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailVerificationRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Auth.RequestEmailVerification(r.Context(), req, h.clientIP(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DetailResponse{Detail: "if the email exists, a verification link has been sent"})
}

func (h *Handlers) confirmEmailVerification(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailVerificationConfirmRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Auth.ConfirmEmailVerification(r.Context(), req); err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Detail: "invalid or expired token"})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DetailResponse{Detail: "email verified"})
}

func (h *Handlers) profile(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, domain.ErrInvalidToken)
		return
	}
	u, err := h.Users.Profile(r.Context(), p.UserID.String())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, domain.ErrInvalidToken)
		return
	}
	var req dto.ProfileUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.Users.UpdateProfile(r.Context(), p.UserID.String(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	items, err := h.Users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handlers) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) adminUpdateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, domain.ErrInvalidToken)
		return
	}
	var req dto.AdminUserUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.Users.AdminUpdate(r.Context(), p.UserID.String(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, domain.ErrInvalidToken)
		return
	}
	if err := h.Users.AdminDelete(r.Context(), p.UserID.String(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Detail: "malformed request body"})
		return false
	}
	return true
}

// clientIP prefers the proxy-supplied address only when the deployment
// says the proxy is trusted; otherwise the socket peer wins.
func (h *Handlers) clientIP(r *http.Request) string {
	if h.TrustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if ip, ok := netutil.NormalizeIP(first); ok {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip, ok := netutil.NormalizeIP(host); ok {
		return ip
	}
	return host
}

func userAgent(r *http.Request) string {
	return netutil.TruncateUserAgent(r.Header.Get("User-Agent"))
}
