package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"accounts/internal/domain"
	"accounts/internal/dto"
	"accounts/internal/netutil"
	"accounts/internal/observability/metrics"
	"accounts/internal/observability/middleware"
	"accounts/internal/service"
	"accounts/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ====== Config ======

type TokenConfig struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration // default 60 min
	RefreshTTL time.Duration // default 7 days
	SigningKey []byte        // HS256 secret
	// RotateRefresh blacklists the presented refresh token on every
	// successful refresh and issues a fresh one. Stolen refresh tokens
	// stop replaying after the first legitimate use.
	RotateRefresh bool
}

// ====== Claims ======

type AccessClaims struct {
	SID  string `json:"sid"`
	Role string `json:"role"`
	Typ  string `json:"typ"` // always "access"
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	SID                  string `json:"sid"`
	Typ                  string `json:"typ"` // always "refresh"
	jwt.RegisteredClaims        // jti == the session row's refresh_id
}

// ====== Narrow store views ======

type sessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByRefreshID(ctx context.Context, rid uuid.UUID) (*domain.Session, error)
	Rotate(ctx context.Context, id, oldRID, newRID uuid.UUID, expires time.Time, ip, ua string) error
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
}

type sessionUserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// ====== Service ======

var _ service.TokenService = (*TokenServiceImpl)(nil)

type TokenServiceImpl struct {
	cfg      TokenConfig
	sessions sessionStore
	users    sessionUserStore
	now      func() time.Time
}

func NewTokenServiceHS256(cfg TokenConfig, st *store.Store) *TokenServiceImpl {
	return &TokenServiceImpl{
		cfg:      cfg,
		sessions: st.Sessions(),
		users:    st.Users(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a session row with a fresh refresh id and mints the
// access+refresh pair bound to it.
func (t *TokenServiceImpl) Issue(ctx context.Context, user *domain.User, ip, ua string) (*dto.TokenResponse, error) {
	result := "success"
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues("issue", result).Inc()
	}()
	ip = normalizeIP(ip)
	ua = netutil.TruncateUserAgent(ua)
	now := t.now()

	sess := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		RefreshID: uuid.New(),
		ExpiresAt: now.Add(t.cfg.RefreshTTL),
		CreatedAt: now,
		IP:        ip,
		UserAgent: ua,
	}
	if err := t.sessions.Create(ctx, sess); err != nil {
		result = "failure"
		return nil, err
	}

	access, err := t.signAccess(user, sess, now)
	if err != nil {
		result = "failure"
		return nil, err
	}
	refresh, err := t.signRefresh(user.ID, sess, now)
	if err != nil {
		result = "failure"
		return nil, err
	}

	slog.Info("issued tokens",
		"session_id", sess.ID, "user_id", user.ID,
		"request_id", middleware.RequestIDFromContext(ctx),
		"trace_id", middleware.TraceIDFromContext(ctx))

	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(t.cfg.AccessTTL.Seconds()),
	}, nil
}

// Refresh validates the presented refresh JWT against its session row,
// rotates the refresh id, and mints a new pair. Signature mismatch,
// expiry, revocation and rotation races all surface as the same
// ErrInvalidToken; callers learn nothing about which check failed.
func (t *TokenServiceImpl) Refresh(ctx context.Context, refreshToken, ip, ua string) (*dto.TokenResponse, error) {
	result := "success"
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues("refresh", result).Inc()
	}()
	ip = normalizeIP(ip)
	ua = netutil.TruncateUserAgent(ua)
	now := t.now()

	claims, err := t.parseRefresh(refreshToken)
	if err != nil {
		result = "failure"
		return nil, domain.ErrInvalidToken
	}
	rid, err := uuid.Parse(claims.ID)
	if err != nil {
		result = "failure"
		return nil, domain.ErrInvalidToken
	}

	sess, err := t.sessions.GetByRefreshID(ctx, rid)
	if err != nil {
		result = "failure"
		return nil, domain.ErrInvalidToken
	}
	if !sess.Live(now) {
		result = "failure"
		return nil, domain.ErrInvalidToken
	}

	// A disabled or blocked account never gets a new pair, even if its
	// sessions were somehow left live.
	user, err := t.users.GetByID(ctx, sess.UserID)
	if err != nil || !user.CanLogin() {
		result = "failure"
		return nil, domain.ErrInvalidToken
	}

	if t.cfg.RotateRefresh {
		newRID := uuid.New()
		newExp := now.Add(t.cfg.RefreshTTL)
		// Conditional on the presented refresh id: a concurrent rotation
		// with the same token loses here, so old and new are never both live.
		if err := t.sessions.Rotate(ctx, sess.ID, sess.RefreshID, newRID, newExp, ip, ua); err != nil {
			result = "failure"
			return nil, domain.ErrInvalidToken
		}
		sess.RefreshID = newRID
		sess.ExpiresAt = newExp
	}

	access, err := t.signAccess(user, sess, now)
	if err != nil {
		result = "failure"
		return nil, err
	}
	refresh, err := t.signRefresh(sess.UserID, sess, now)
	if err != nil {
		result = "failure"
		return nil, err
	}

	slog.Info("refreshed tokens",
		"session_id", sess.ID, "user_id", sess.UserID,
		"request_id", middleware.RequestIDFromContext(ctx),
		"trace_id", middleware.TraceIDFromContext(ctx))

	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(t.cfg.AccessTTL.Seconds()),
	}, nil
}

// Revoke blacklists the session behind the presented refresh token.
// Revoking an already revoked session is a no-op success.
func (t *TokenServiceImpl) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := t.parseRefresh(refreshToken)
	if err != nil {
		return domain.ErrInvalidToken
	}
	rid, err := uuid.Parse(claims.ID)
	if err != nil {
		return domain.ErrInvalidToken
	}
	sess, err := t.sessions.GetByRefreshID(ctx, rid)
	if err != nil {
		return domain.ErrInvalidToken
	}
	if err := t.sessions.Revoke(ctx, sess.ID, t.now()); err != nil {
		return err
	}
	metrics.SessionsRevokedTotal.WithLabelValues("logout").Inc()
	return nil
}

// RevokeAll blacklists every live session of the user and returns the
// count. Used on logout-everywhere, password change and account block.
func (t *TokenServiceImpl) RevokeAll(ctx context.Context, userID domain.UserID) (int64, error) {
	count, err := t.sessions.RevokeAllForUser(ctx, userID, t.now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		metrics.SessionsRevokedTotal.WithLabelValues("revoke_all").Add(float64(count))
	}
	return count, nil
}

// VerifyAccess is a pure signature+expiry check, no store lookup.
func (t *TokenServiceImpl) VerifyAccess(tokenStr string) (*service.AccessIdentity, error) {
	claims := &AccessClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	tok, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.cfg.SigningKey, nil
	})
	if err != nil || !tok.Valid {
		return nil, domain.ErrInvalidToken
	}
	if claims.Typ != "access" {
		return nil, domain.ErrInvalidToken
	}
	if claims.Issuer != t.cfg.Issuer || !containsAudience(claims.Audience, t.cfg.Audience) {
		return nil, domain.ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	sid, err := uuid.Parse(claims.SID)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	return &service.AccessIdentity{
		UserID:    userID,
		SessionID: sid,
		Role:      domain.Role(claims.Role),
	}, nil
}

// ====== Helpers ======

func (t *TokenServiceImpl) signAccess(user *domain.User, sess *domain.Session, now time.Time) (string, error) {
	claims := AccessClaims{
		SID:  sess.ID.String(),
		Role: string(user.Role),
		Typ:  "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings{t.cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(), // unique per access token
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.cfg.SigningKey)
}

func (t *TokenServiceImpl) signRefresh(userID uuid.UUID, sess *domain.Session, now time.Time) (string, error) {
	claims := RefreshClaims{
		SID: sess.ID.String(),
		Typ: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{t.cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        sess.RefreshID.String(), // binds the JWT to the session row
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.cfg.SigningKey)
}

func (t *TokenServiceImpl) parseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	tok, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.cfg.SigningKey, nil
	})
	if err != nil || !tok.Valid {
		return nil, domain.ErrInvalidToken
	}
	if claims.Typ != "refresh" {
		return nil, domain.ErrInvalidToken
	}
	if claims.Issuer != t.cfg.Issuer {
		return nil, domain.ErrInvalidToken
	}
	if !containsAudience(claims.Audience, t.cfg.Audience) {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

func containsAudience(aud jwt.ClaimStrings, expected string) bool {
	for _, a := range aud {
		if a == expected {
			return true
		}
	}
	return false
}

func normalizeIP(ip string) string {
	if normalized, ok := netutil.NormalizeIP(ip); ok {
		return normalized
	}
	return strings.TrimSpace(ip)
}
