package impl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"accounts/internal/domain"

	"github.com/google/uuid"
)

func newTestActionTokenService(store *memoryStore) *ActionTokenServiceImpl {
	return &ActionTokenServiceImpl{
		Store:           store,
		PasswordService: &stubPasswordService{},
		TTL:             time.Hour,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func TestActionTokenIssueAndRedeemEmailVerification(t *testing.T) {
	store := newMemoryStore()
	svc := newTestActionTokenService(store)
	ctx := context.Background()
	user := seedUser(t, store, "eve@example.com", "eve", "super-secret")

	token, err := svc.Issue(ctx, user.ID, domain.TokenEmailVerification)
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}
	if token == "" {
		t.Fatalf("empty token")
	}

	if err := svc.RedeemEmailVerification(ctx, token, user.ID); err != nil {
		t.Fatalf("redeem returned error: %v", err)
	}
	stored, _ := store.userByID(user.ID)
	if !stored.EmailVerified {
		t.Fatalf("user not marked verified")
	}

	// Single use: a second redemption fails.
	if err := svc.RedeemEmailVerification(ctx, token, user.ID); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token on reuse, got %v", err)
	}
}

func TestActionTokenRedeemWrongUserLeavesTokenUsable(t *testing.T) {
	store := newMemoryStore()
	svc := newTestActionTokenService(store)
	ctx := context.Background()
	user := seedUser(t, store, "eve@example.com", "eve", "super-secret")

	token, err := svc.Issue(ctx, user.ID, domain.TokenEmailVerification)
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}

	if err := svc.RedeemEmailVerification(ctx, token, uuid.New()); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token for wrong user, got %v", err)
	}
	// The failed attempt rolled back; the rightful owner still wins.
	if err := svc.RedeemEmailVerification(ctx, token, user.ID); err != nil {
		t.Fatalf("owner redemption after failed attempt: %v", err)
	}
}

func TestActionTokenRedeemWrongKind(t *testing.T) {
	store := newMemoryStore()
	svc := newTestActionTokenService(store)
	ctx := context.Background()
	user := seedUser(t, store, "eve@example.com", "eve", "super-secret")

	token, err := svc.Issue(ctx, user.ID, domain.TokenEmailVerification)
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}
	if err := svc.RedeemPasswordReset(ctx, token, user.ID, "new-secret!"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("verification token must not reset a password, got %v", err)
	}
}

func TestActionTokenExpired(t *testing.T) {
	store := newMemoryStore()
	svc := newTestActionTokenService(store)
	ctx := context.Background()
	user := seedUser(t, store, "eve@example.com", "eve", "super-secret")

	token, err := svc.Issue(ctx, user.ID, domain.TokenEmailVerification)
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}

	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }

	if err := svc.RedeemEmailVerification(ctx, token, user.ID); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token after expiry, got %v", err)
	}
}

func TestActionTokenPasswordResetReplacesCredentialAndRevokesSessions(t *testing.T) {
	store := newMemoryStore()
	svc := newTestActionTokenService(store)
	ctx := context.Background()
	user := seedUser(t, store, "eve@example.com", "eve", "old-secret!")

	now := time.Now().UTC()
	store.addSession(&domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		RefreshID: uuid.New(),
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	})

	token, err := svc.Issue(ctx, user.ID, domain.TokenPasswordReset)
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}
	if err := svc.RedeemPasswordReset(ctx, token, user.ID, "new-secret!"); err != nil {
		t.Fatalf("redeem returned error: %v", err)
	}

	cred, _ := store.credentialByUserID(user.ID)
	if string(cred.Hash) != "hash:new-secret!" {
		t.Fatalf("credential not replaced: %q", cred.Hash)
	}
	if n := store.liveSessionCount(user.ID, now); n != 0 {
		t.Fatalf("expected all sessions revoked, %d still live", n)
	}
}

func TestActionTokenConcurrentRedemptionHasOneWinner(t *testing.T) {
	store := newMemoryStore()
	svc := newTestActionTokenService(store)
	ctx := context.Background()
	user := seedUser(t, store, "eve@example.com", "eve", "old-secret!")

	token, err := svc.Issue(ctx, user.ID, domain.TokenPasswordReset)
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.RedeemPasswordReset(ctx, token, user.ID, "new-secret!")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestActionTokensAreUnique(t *testing.T) {
	store := newMemoryStore()
	svc := newTestActionTokenService(store)
	ctx := context.Background()
	user := seedUser(t, store, "eve@example.com", "eve", "super-secret")

	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		token, err := svc.Issue(ctx, user.ID, domain.TokenPasswordReset)
		if err != nil {
			t.Fatalf("issue %d returned error: %v", i, err)
		}
		if seen[token] {
			t.Fatalf("duplicate token issued")
		}
		seen[token] = true
	}
}
