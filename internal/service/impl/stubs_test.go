package impl

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"accounts/internal/domain"
	"accounts/internal/dto"
	"accounts/internal/observability/metrics"
	"accounts/internal/service"
	"accounts/internal/store"

	"github.com/google/uuid"
)

func TestMain(m *testing.M) {
	metrics.MustRegister("accounts-test")
	os.Exit(m.Run())
}

// ====== Service stubs ======

type stubPasswordService struct {
	hashFunc   func(password string) (hash, salt, paramsJSON []byte, algo string, ver int, err error)
	verifyFunc func(password string, cred interface {
		GetAlgo() string
		GetHash() []byte
		GetSalt() []byte
		GetParamsJSON() []byte
		GetPasswordVer() int
	}) (rehashNeeded bool, ok bool)

	mu          sync.Mutex
	hashCalls   []string
	verifyCalls []string
}

func (s *stubPasswordService) Hash(password string) (hash, salt, paramsJSON []byte, algo string, ver int, err error) {
	s.mu.Lock()
	s.hashCalls = append(s.hashCalls, password)
	s.mu.Unlock()
	if s.hashFunc != nil {
		return s.hashFunc(password)
	}
	return []byte("hash:" + password), []byte("salt"), []byte(`{"t":3}`), "argon2id", 1, nil
}

func (s *stubPasswordService) Verify(password string, cred interface {
	GetAlgo() string
	GetHash() []byte
	GetSalt() []byte
	GetParamsJSON() []byte
	GetPasswordVer() int
},
) (rehashNeeded bool, ok bool) {
	s.mu.Lock()
	s.verifyCalls = append(s.verifyCalls, password)
	s.mu.Unlock()
	if s.verifyFunc != nil {
		return s.verifyFunc(password, cred)
	}
	return false, string(cred.GetHash()) == "hash:"+password
}

func (s *stubPasswordService) hashCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hashCalls)
}

type stubTokenService struct {
	issueResponse *dto.TokenResponse
	issueErr      error

	mu         sync.Mutex
	issueCalls []uuid.UUID
	revoked    []string
}

func (s *stubTokenService) Issue(ctx context.Context, user *domain.User, ip, ua string) (*dto.TokenResponse, error) {
	s.mu.Lock()
	s.issueCalls = append(s.issueCalls, user.ID)
	s.mu.Unlock()
	if s.issueErr != nil {
		return nil, s.issueErr
	}
	if s.issueResponse != nil {
		return s.issueResponse, nil
	}
	return &dto.TokenResponse{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 3600}, nil
}

func (s *stubTokenService) Refresh(ctx context.Context, refreshToken, ip, ua string) (*dto.TokenResponse, error) {
	return nil, errors.New("not implemented")
}

func (s *stubTokenService) Revoke(ctx context.Context, refreshToken string) error {
	s.mu.Lock()
	s.revoked = append(s.revoked, refreshToken)
	s.mu.Unlock()
	return nil
}

func (s *stubTokenService) RevokeAll(ctx context.Context, userID domain.UserID) (int64, error) {
	return 0, nil
}

func (s *stubTokenService) VerifyAccess(tokenStr string) (*service.AccessIdentity, error) {
	return nil, errors.New("not implemented")
}

type stubActionTokenService struct {
	issueErr error

	mu         sync.Mutex
	issueCalls []domain.ActionTokenKind
}

func (s *stubActionTokenService) Issue(ctx context.Context, userID domain.UserID, kind domain.ActionTokenKind) (string, error) {
	s.mu.Lock()
	s.issueCalls = append(s.issueCalls, kind)
	s.mu.Unlock()
	if s.issueErr != nil {
		return "", s.issueErr
	}
	return "opaque-token", nil
}

func (s *stubActionTokenService) RedeemPasswordReset(ctx context.Context, token string, userID domain.UserID, newPassword string) error {
	return errors.New("not implemented")
}

func (s *stubActionTokenService) RedeemEmailVerification(ctx context.Context, token string, userID domain.UserID) error {
	return errors.New("not implemented")
}

func (s *stubActionTokenService) kinds() []domain.ActionTokenKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ActionTokenKind(nil), s.issueCalls...)
}

type stubEmailService struct {
	mu    sync.Mutex
	sends []string
}

func (s *stubEmailService) record(kind string) {
	s.mu.Lock()
	s.sends = append(s.sends, kind)
	s.mu.Unlock()
}

func (s *stubEmailService) SendWelcome(ctx context.Context, to string) error {
	s.record("welcome")
	return nil
}

func (s *stubEmailService) SendVerification(ctx context.Context, to, verifyURL string) error {
	s.record("verification")
	return nil
}

func (s *stubEmailService) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	s.record("reset")
	return nil
}

// ====== In-memory store ======

// memoryStore implements the narrow dataStore views over plain maps.
// WithTx holds the mutex for the whole callback and restores a snapshot
// on error, mirroring transaction rollback.
type memoryStore struct {
	mu          sync.Mutex
	users       map[uuid.UUID]*domain.User
	emailIndex  map[string]uuid.UUID
	usernameIdx map[string]uuid.UUID
	credentials map[uuid.UUID]*domain.PasswordCredential
	tokens      map[string]*domain.ActionToken
	sessions    map[uuid.UUID]*domain.Session
}

type storeSnapshot struct {
	users       map[uuid.UUID]*domain.User
	emailIndex  map[string]uuid.UUID
	usernameIdx map[string]uuid.UUID
	credentials map[uuid.UUID]*domain.PasswordCredential
	tokens      map[string]*domain.ActionToken
	sessions    map[uuid.UUID]*domain.Session
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:       make(map[uuid.UUID]*domain.User),
		emailIndex:  make(map[string]uuid.UUID),
		usernameIdx: make(map[string]uuid.UUID),
		credentials: make(map[uuid.UUID]*domain.PasswordCredential),
		tokens:      make(map[string]*domain.ActionToken),
		sessions:    make(map[uuid.UUID]*domain.Session),
	}
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(tx storeTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&memoryTx{store: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

func (m *memoryStore) snapshot() storeSnapshot {
	users := make(map[uuid.UUID]*domain.User, len(m.users))
	for id, u := range m.users {
		copy := *u
		users[id] = &copy
	}
	creds := make(map[uuid.UUID]*domain.PasswordCredential, len(m.credentials))
	for id, c := range m.credentials {
		copy := *c
		creds[id] = &copy
	}
	tokens := make(map[string]*domain.ActionToken, len(m.tokens))
	for k, t := range m.tokens {
		copy := *t
		tokens[k] = &copy
	}
	sessions := make(map[uuid.UUID]*domain.Session, len(m.sessions))
	for id, s := range m.sessions {
		copy := *s
		sessions[id] = &copy
	}
	emails := make(map[string]uuid.UUID, len(m.emailIndex))
	for k, v := range m.emailIndex {
		emails[k] = v
	}
	usernames := make(map[string]uuid.UUID, len(m.usernameIdx))
	for k, v := range m.usernameIdx {
		usernames[k] = v
	}
	return storeSnapshot{
		users:       users,
		emailIndex:  emails,
		usernameIdx: usernames,
		credentials: creds,
		tokens:      tokens,
		sessions:    sessions,
	}
}

func (m *memoryStore) restore(s storeSnapshot) {
	m.users = s.users
	m.emailIndex = s.emailIndex
	m.usernameIdx = s.usernameIdx
	m.credentials = s.credentials
	m.tokens = s.tokens
	m.sessions = s.sessions
}

func (m *memoryStore) userByEmail(email string) (*domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.emailIndex[email]
	if !ok {
		return nil, false
	}
	copy := *m.users[id]
	return &copy, true
}

func (m *memoryStore) userByID(id uuid.UUID) (*domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, false
	}
	copy := *u
	return &copy, true
}

func (m *memoryStore) userByUsername(username string) (*domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.usernameIdx[username]
	if !ok {
		return nil, false
	}
	copy := *m.users[id]
	return &copy, true
}

func (m *memoryStore) credentialByUserID(userID uuid.UUID) (*domain.PasswordCredential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.credentials[userID]
	if !ok {
		return nil, false
	}
	copy := *c
	return &copy, true
}

func (m *memoryStore) addSession(s *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *s
	m.sessions[s.ID] = &copy
}

func (m *memoryStore) liveSessionCount(userID uuid.UUID, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.UserID == userID && s.Live(now) {
			n++
		}
	}
	return n
}

func (m *memoryStore) tokenByValue(token string) (*domain.ActionToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, false
	}
	copy := *t
	return &copy, true
}

type memoryTx struct {
	store *memoryStore
}

func (m *memoryTx) Users() userStore { return &memoryUserStore{store: m.store} }

func (m *memoryTx) Credentials() credentialStore { return &memoryCredentialStore{store: m.store} }

func (m *memoryTx) ActionTokens() actionTokenStore { return &memoryActionTokenStore{store: m.store} }

func (m *memoryTx) Sessions() sessionRevoker { return &memorySessionRevoker{store: m.store} }

type memoryUserStore struct {
	store *memoryStore
}

func (u *memoryUserStore) Create(ctx context.Context, usr *domain.User) error {
	if _, exists := u.store.emailIndex[usr.Email]; exists {
		return domain.ErrDuplicateEmail
	}
	if _, exists := u.store.usernameIdx[usr.Username]; exists {
		return domain.ErrDuplicateUsername
	}
	copy := *usr
	u.store.users[usr.ID] = &copy
	u.store.emailIndex[usr.Email] = usr.ID
	u.store.usernameIdx[usr.Username] = usr.ID
	return nil
}

func (u *memoryUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	usr, ok := u.store.users[id]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	copy := *usr
	return &copy, nil
}

func (u *memoryUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	id, ok := u.store.emailIndex[email]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	copy := *u.store.users[id]
	return &copy, nil
}

func (u *memoryUserStore) List(ctx context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(u.store.users))
	for _, usr := range u.store.users {
		out = append(out, *usr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (u *memoryUserStore) Update(ctx context.Context, usr *domain.User) error {
	old, ok := u.store.users[usr.ID]
	if !ok {
		return store.ErrRecordNotFound
	}
	if usr.Username != old.Username {
		if _, exists := u.store.usernameIdx[usr.Username]; exists {
			return domain.ErrDuplicateUsername
		}
		delete(u.store.usernameIdx, old.Username)
		u.store.usernameIdx[usr.Username] = usr.ID
	}
	copy := *usr
	u.store.users[usr.ID] = &copy
	return nil
}

func (u *memoryUserStore) SetEmailVerified(ctx context.Context, userID uuid.UUID) error {
	usr, ok := u.store.users[userID]
	if !ok {
		return store.ErrRecordNotFound
	}
	usr.EmailVerified = true
	return nil
}

func (u *memoryUserStore) SetLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	usr, ok := u.store.users[userID]
	if !ok {
		return store.ErrRecordNotFound
	}
	usr.LastLogin = &at
	return nil
}

func (u *memoryUserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	usr, ok := u.store.users[userID]
	if !ok {
		return store.ErrRecordNotFound
	}
	delete(u.store.emailIndex, usr.Email)
	delete(u.store.usernameIdx, usr.Username)
	delete(u.store.users, userID)
	return nil
}

type memoryCredentialStore struct {
	store *memoryStore
}

func (c *memoryCredentialStore) UpsertPassword(ctx context.Context, cred *domain.PasswordCredential) error {
	copy := *cred
	c.store.credentials[cred.UserID] = &copy
	return nil
}

func (c *memoryCredentialStore) GetPasswordByUserID(ctx context.Context, userID uuid.UUID) (*domain.PasswordCredential, error) {
	cred, ok := c.store.credentials[userID]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	copy := *cred
	return &copy, nil
}

type memoryActionTokenStore struct {
	store *memoryStore
}

func (a *memoryActionTokenStore) Create(ctx context.Context, t *domain.ActionToken) error {
	copy := *t
	a.store.tokens[t.Token] = &copy
	return nil
}

func (a *memoryActionTokenStore) Consume(ctx context.Context, token string, kind domain.ActionTokenKind, now time.Time) (*domain.ActionToken, error) {
	t, ok := a.store.tokens[token]
	if !ok || t.Kind != kind || t.Consumed || !now.Before(t.ExpiresAt) {
		return nil, store.ErrRecordNotFound
	}
	t.Consumed = true
	copy := *t
	return &copy, nil
}

type memorySessionRevoker struct {
	store *memoryStore
}

func (r *memorySessionRevoker) RevokeAllForUser(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	var n int64
	for _, s := range r.store.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			revoked := at
			s.RevokedAt = &revoked
			n++
		}
	}
	return n, nil
}
