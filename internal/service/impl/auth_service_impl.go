package impl

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"accounts/internal/domain"
	"accounts/internal/dto"
	"accounts/internal/events"
	"accounts/internal/observability/metrics"
	"accounts/internal/ratelimit"
	"accounts/internal/service"
	"accounts/internal/store"

	"github.com/google/uuid"
)

var _ service.AuthService = (*AuthServiceImpl)(nil)

// AuthServiceImpl coordinates the credential store, token service,
// action-token manager and rate limiter behind the auth endpoints.
type AuthServiceImpl struct {
	Store           dataStore
	PasswordService service.PasswordService
	TService        service.TokenService
	ActionTokens    service.ActionTokenService
	Email           service.EmailService
	Limiter         ratelimit.Limiter
	FrontendURL     string

	now func() time.Time
}

func NewAuthServiceImpl(
	st *store.Store,
	passwordService service.PasswordService,
	tokenService service.TokenService,
	actionTokens service.ActionTokenService,
	email service.EmailService,
	limiter ratelimit.Limiter,
	frontendURL string,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		Store:           gormStoreAdapter{store: st},
		PasswordService: passwordService,
		TService:        tokenService,
		ActionTokens:    actionTokens,
		Email:           email,
		Limiter:         limiter,
		FrontendURL:     strings.TrimRight(frontendURL, "/"),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Register creates the user and password credential in one transaction.
// No auto-login: the caller goes through Login afterwards.
func (a *AuthServiceImpl) Register(ctx context.Context, r dto.RegisterRequest, ip, ua string) (*dto.UserResponse, error) {
	r.Email = normalizeEmail(r.Email)
	r.Username = strings.TrimSpace(r.Username)

	if r.Email == "" {
		return nil, ErrEmptyEmail
	}
	if !validEmail(r.Email) {
		return nil, ErrInvalidEmail
	}
	if r.Username == "" {
		return nil, ErrEmptyUsername
	}
	if err := validatePassword(r.Password, r.PasswordConfirm); err != nil {
		return nil, err
	}

	var created *domain.User

	err := a.Store.WithTx(ctx, func(tx storeTx) error {
		now := a.now()

		u := &domain.User{
			ID:            uuid.New(),
			Email:         r.Email,
			Username:      r.Username,
			Role:          domain.RoleUser,
			IsActive:      true,
			IsBlocked:     false,
			EmailVerified: false,
			RecoveryEmail: r.RecoveryEmail,
			PhoneNumber:   r.PhoneNumber,
			Address:       r.Address,
			Country:       r.Country,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Users().Create(ctx, u); err != nil {
			return err // unique constraints surface duplicates
		}

		hash, salt, paramsJSON, algo, ver, err := a.PasswordService.Hash(r.Password)
		if err != nil {
			return err
		}
		if err := tx.Credentials().UpsertPassword(ctx, &domain.PasswordCredential{
			ID:          uuid.New(),
			UserID:      u.ID,
			Algo:        algo,
			Hash:        hash,
			Salt:        salt,
			ParamsJSON:  paramsJSON,
			PasswordVer: ver,
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return err
		}

		created = u
		return nil
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	slog.Info("user registered", "event", events.UserRegistered{
		UserID: created.ID.String(),
		Email:  created.Email,
		At:     created.CreatedAt,
	})

	a.sendVerificationMail(ctx, created)
	dispatchEmail(func(ctx context.Context) error {
		return a.Email.SendWelcome(ctx, created.Email)
	})

	out := dto.NewUserResponse(created)
	return &out, nil
}

// Login authenticates by email and password. The limiter gates both the
// account and the client IP; credential failures are indistinct, but a
// correct password against a disabled or blocked account says so.
func (a *AuthServiceImpl) Login(ctx context.Context, r dto.LoginRequest, ip, ua string) (*dto.LoginResponse, error) {
	r.Email = normalizeEmail(r.Email)
	if r.Email == "" || r.Password == "" {
		return nil, ErrEmptyCredential
	}

	if err := a.admit(ctx, "login", r.Email, ip); err != nil {
		return nil, err
	}

	var out *dto.LoginResponse

	err := a.Store.WithTx(ctx, func(tx storeTx) error {
		user, err := tx.Users().GetByEmail(ctx, r.Email)
		if err != nil {
			return domain.ErrInvalidCredentials // don't reveal whether the account exists
		}

		cred, err := tx.Credentials().GetPasswordByUserID(ctx, user.ID)
		if err != nil {
			return domain.ErrInvalidCredentials
		}
		rehashNeeded, ok := a.PasswordService.Verify(r.Password, cred)
		if !ok {
			return domain.ErrInvalidCredentials
		}

		if !user.IsActive {
			return domain.ErrUserDisabled
		}
		if user.IsBlocked {
			return domain.ErrUserBlocked
		}

		if rehashNeeded {
			hash, salt, paramsJSON, algo, ver, err := a.PasswordService.Hash(r.Password)
			if err != nil {
				return err
			}
			cred.Algo = algo
			cred.Hash = hash
			cred.Salt = salt
			cred.ParamsJSON = paramsJSON
			cred.PasswordVer = ver
			if err := tx.Credentials().UpsertPassword(ctx, cred); err != nil {
				return err
			}
		}

		tokens, err := a.TService.Issue(ctx, user, ip, ua)
		if err != nil {
			return err
		}

		now := a.now()
		if err := tx.Users().SetLastLogin(ctx, user.ID, now); err != nil {
			return err
		}
		user.LastLogin = &now

		out = &dto.LoginResponse{
			User:         dto.NewUserResponse(user),
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			ExpiresIn:    tokens.ExpiresIn,
		}
		return nil
	})
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return out, nil
}

func (a *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrEmptyCredential
	}
	return a.TService.Revoke(ctx, refreshToken)
}

func (a *AuthServiceImpl) Refresh(ctx context.Context, refreshToken, ip, ua string) (*dto.TokenResponse, error) {
	if refreshToken == "" {
		return nil, domain.ErrInvalidToken
	}
	return a.TService.Refresh(ctx, refreshToken, ip, ua)
}

// ChangePassword swaps the secret after verifying the old one, then
// revokes every session so all devices re-authenticate.
func (a *AuthServiceImpl) ChangePassword(ctx context.Context, userID string, r dto.PasswordChangeRequest) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return domain.ErrNotFound
	}
	if r.OldPassword == "" {
		return ErrEmptyPassword
	}
	if err := validatePassword(r.NewPassword, r.NewPasswordConfirm); err != nil {
		return err
	}

	return a.Store.WithTx(ctx, func(tx storeTx) error {
		cred, err := tx.Credentials().GetPasswordByUserID(ctx, uid)
		if err != nil {
			return domain.ErrInvalidCredentials
		}
		if _, ok := a.PasswordService.Verify(r.OldPassword, cred); !ok {
			return domain.ErrInvalidCredentials
		}

		hash, salt, paramsJSON, algo, ver, err := a.PasswordService.Hash(r.NewPassword)
		if err != nil {
			return err
		}
		cred.Algo = algo
		cred.Hash = hash
		cred.Salt = salt
		cred.ParamsJSON = paramsJSON
		cred.PasswordVer = ver
		if err := tx.Credentials().UpsertPassword(ctx, cred); err != nil {
			return err
		}

		count, err := tx.Sessions().RevokeAllForUser(ctx, uid, a.now())
		if err != nil {
			return err
		}
		if count > 0 {
			metrics.SessionsRevokedTotal.WithLabelValues("password_change").Add(float64(count))
		}
		return nil
	})
}

// RequestPasswordReset always reports success. Unknown accounts burn the
// same token-generation work as real ones so the two branches stay
// indistinguishable by response shape or timing.
func (a *AuthServiceImpl) RequestPasswordReset(ctx context.Context, r dto.PasswordResetRequest, ip string) error {
	email := normalizeEmail(r.Email)
	if email == "" || !validEmail(email) {
		return ErrInvalidEmail
	}
	if err := a.admit(ctx, "reset", email, ip); err != nil {
		return err
	}

	user, err := a.lookupByEmail(ctx, email)
	if err != nil {
		_, _ = newOpaqueToken()
		return nil
	}

	token, err := a.ActionTokens.Issue(ctx, user.ID, domain.TokenPasswordReset)
	if err != nil {
		return domain.ErrDependency
	}
	resetURL := a.FrontendURL + "/reset-password?token=" + token + "&uid=" + user.ID.String()
	dispatchEmail(func(ctx context.Context) error {
		return a.Email.SendPasswordReset(ctx, user.Email, resetURL)
	})
	return nil
}

func (a *AuthServiceImpl) ConfirmPasswordReset(ctx context.Context, r dto.PasswordResetConfirmRequest) error {
	uid, err := uuid.Parse(r.UserID)
	if err != nil {
		return domain.ErrInvalidToken
	}
	if r.Token == "" {
		return domain.ErrInvalidToken
	}
	if err := validatePassword(r.NewPassword, r.NewPasswordConfirm); err != nil {
		return err
	}
	return a.ActionTokens.RedeemPasswordReset(ctx, r.Token, uid, r.NewPassword)
}

// RequestEmailVerification mirrors the reset request: same response for
// unknown and already-verified addresses.
func (a *AuthServiceImpl) RequestEmailVerification(ctx context.Context, r dto.EmailVerificationRequest, ip string) error {
	email := normalizeEmail(r.Email)
	if email == "" || !validEmail(email) {
		return ErrInvalidEmail
	}
	if err := a.admit(ctx, "verify", email, ip); err != nil {
		return err
	}

	user, err := a.lookupByEmail(ctx, email)
	if err != nil || user.EmailVerified {
		_, _ = newOpaqueToken()
		return nil
	}

	a.sendVerificationMail(ctx, user)
	return nil
}

func (a *AuthServiceImpl) ConfirmEmailVerification(ctx context.Context, r dto.EmailVerificationConfirmRequest) error {
	uid, err := uuid.Parse(r.UserID)
	if err != nil {
		return domain.ErrInvalidToken
	}
	if r.Token == "" {
		return domain.ErrInvalidToken
	}
	return a.ActionTokens.RedeemEmailVerification(ctx, r.Token, uid)
}

// ====== Helpers ======

// admit gates an attempt on both the account key and the client IP.
func (a *AuthServiceImpl) admit(ctx context.Context, scope, account, ip string) error {
	if a.Limiter == nil {
		return nil
	}
	keys := []string{scope + ":acct:" + account}
	if ip != "" {
		keys = append(keys, scope+":ip:"+ip)
	}
	for _, key := range keys {
		ok, err := a.Limiter.Admit(ctx, key)
		if err != nil {
			return domain.ErrDependency
		}
		if !ok {
			metrics.RateLimitRejectionsTotal.WithLabelValues(scope).Inc()
			return domain.ErrRateLimited
		}
	}
	return nil
}

func (a *AuthServiceImpl) lookupByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user *domain.User
	err := a.Store.WithTx(ctx, func(tx storeTx) error {
		u, err := tx.Users().GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	return user, err
}

func (a *AuthServiceImpl) sendVerificationMail(ctx context.Context, user *domain.User) {
	token, err := a.ActionTokens.Issue(ctx, user.ID, domain.TokenEmailVerification)
	if err != nil {
		return
	}
	verifyURL := a.FrontendURL + "/verify-email?token=" + token + "&uid=" + user.ID.String()
	dispatchEmail(func(ctx context.Context) error {
		return a.Email.SendVerification(ctx, user.Email, verifyURL)
	})
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func validatePassword(password, confirm string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if len(password) < 8 {
		return ErrPasswordLength
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}
