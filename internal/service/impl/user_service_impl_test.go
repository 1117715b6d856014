package impl

import (
	"context"
	"errors"
	"testing"
	"time"

	"accounts/internal/domain"
	"accounts/internal/dto"

	"github.com/google/uuid"
)

func newTestUserService(store *memoryStore) *UserServiceImpl {
	return &UserServiceImpl{
		Store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func strptr(s string) *string { return &s }

func boolptr(b bool) *bool { return &b }

func TestUserServiceGetNotFound(t *testing.T) {
	svc := newTestUserService(newMemoryStore())
	ctx := context.Background()

	if _, err := svc.Get(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for bad id, got %v", err)
	}
	if _, err := svc.Get(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}

func TestUserServiceUpdateProfilePartial(t *testing.T) {
	store := newMemoryStore()
	svc := newTestUserService(store)
	ctx := context.Background()
	user := seedUser(t, store, "frank@example.com", "frank", "super-secret")

	resp, err := svc.UpdateProfile(ctx, user.ID.String(), dto.ProfileUpdateRequest{
		Bio:     strptr("hello"),
		Country: strptr("FR"),
	})
	if err != nil {
		t.Fatalf("update returned error: %v", err)
	}
	if resp.Bio == nil || *resp.Bio != "hello" {
		t.Fatalf("bio not applied: %+v", resp.Bio)
	}
	if resp.Country == nil || *resp.Country != "FR" {
		t.Fatalf("country not applied: %+v", resp.Country)
	}
	if resp.Username != "frank" {
		t.Fatalf("untouched field changed: %q", resp.Username)
	}

	// Clearing the username is rejected, other fields may be blanked.
	if _, err := svc.UpdateProfile(ctx, user.ID.String(), dto.ProfileUpdateRequest{Username: strptr("")}); !errors.Is(err, ErrEmptyUsername) {
		t.Fatalf("expected empty username error, got %v", err)
	}
}

func TestUserServiceUpdateProfileDuplicateUsername(t *testing.T) {
	store := newMemoryStore()
	svc := newTestUserService(store)
	ctx := context.Background()
	seedUser(t, store, "a@example.com", "taken", "super-secret")
	user := seedUser(t, store, "b@example.com", "free", "super-secret")

	_, err := svc.UpdateProfile(ctx, user.ID.String(), dto.ProfileUpdateRequest{Username: strptr("taken")})
	if !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected duplicate username, got %v", err)
	}
	stored, _ := store.userByID(user.ID)
	if stored.Username != "free" {
		t.Fatalf("username changed despite the conflict: %q", stored.Username)
	}
}

func TestUserServiceListNewestFirst(t *testing.T) {
	store := newMemoryStore()
	svc := newTestUserService(store)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		u := seedUser(t, store, string(rune('a'+i))+"@example.com", "user"+string(rune('a'+i)), "super-secret")
		if err := store.WithTx(ctx, func(tx storeTx) error {
			usr, err := tx.Users().GetByID(ctx, u.ID)
			if err != nil {
				return err
			}
			usr.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			return tx.Users().Update(ctx, usr)
		}); err != nil {
			t.Fatalf("failed to stamp creation time: %v", err)
		}
	}

	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 users, got %d", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].CreatedAt.After(items[i-1].CreatedAt) {
			t.Fatalf("list not ordered newest first")
		}
	}
}

func TestUserServiceAdminUpdateRoleAndFlags(t *testing.T) {
	store := newMemoryStore()
	svc := newTestUserService(store)
	ctx := context.Background()
	admin := seedUser(t, store, "root@example.com", "root", "super-secret")
	target := seedUser(t, store, "t@example.com", "t", "super-secret")

	resp, err := svc.AdminUpdate(ctx, admin.ID.String(), target.ID.String(), dto.AdminUserUpdateRequest{
		Role: strptr("moderator"),
	})
	if err != nil {
		t.Fatalf("admin update returned error: %v", err)
	}
	if resp.Role != "moderator" {
		t.Fatalf("role not applied: %q", resp.Role)
	}

	if _, err := svc.AdminUpdate(ctx, admin.ID.String(), target.ID.String(), dto.AdminUserUpdateRequest{
		Role: strptr("superuser"),
	}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}

	if _, err := svc.AdminUpdate(ctx, admin.ID.String(), uuid.NewString(), dto.AdminUserUpdateRequest{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown target, got %v", err)
	}
}

func TestUserServiceAdminUpdateBlockRevokesSessions(t *testing.T) {
	store := newMemoryStore()
	svc := newTestUserService(store)
	ctx := context.Background()
	admin := seedUser(t, store, "root@example.com", "root", "super-secret")
	target := seedUser(t, store, "t@example.com", "t", "super-secret")

	now := time.Now().UTC()
	store.addSession(&domain.Session{
		ID:        uuid.New(),
		UserID:    target.ID,
		RefreshID: uuid.New(),
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	})

	resp, err := svc.AdminUpdate(ctx, admin.ID.String(), target.ID.String(), dto.AdminUserUpdateRequest{
		IsBlocked: boolptr(true),
	})
	if err != nil {
		t.Fatalf("admin update returned error: %v", err)
	}
	if !resp.IsBlocked {
		t.Fatalf("block flag not applied")
	}
	if n := store.liveSessionCount(target.ID, now); n != 0 {
		t.Fatalf("blocking must revoke sessions, %d still live", n)
	}
}

func TestUserServiceAdminSelfLockoutDenied(t *testing.T) {
	store := newMemoryStore()
	svc := newTestUserService(store)
	ctx := context.Background()
	admin := seedUser(t, store, "root@example.com", "root", "super-secret")
	if err := store.WithTx(ctx, func(tx storeTx) error {
		u, err := tx.Users().GetByID(ctx, admin.ID)
		if err != nil {
			return err
		}
		u.Role = domain.RoleAdmin
		return tx.Users().Update(ctx, u)
	}); err != nil {
		t.Fatalf("failed to promote admin: %v", err)
	}

	cases := []struct {
		name string
		req  dto.AdminUserUpdateRequest
	}{
		{name: "self block", req: dto.AdminUserUpdateRequest{IsBlocked: boolptr(true)}},
		{name: "self deactivate", req: dto.AdminUserUpdateRequest{IsActive: boolptr(false)}},
		{name: "self demote", req: dto.AdminUserUpdateRequest{Role: strptr("user")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.AdminUpdate(ctx, admin.ID.String(), admin.ID.String(), tc.req); !errors.Is(err, ErrSelfUpdate) {
				t.Fatalf("expected self update denial, got %v", err)
			}
		})
	}

	// Benign self updates pass through.
	if _, err := svc.AdminUpdate(ctx, admin.ID.String(), admin.ID.String(), dto.AdminUserUpdateRequest{
		IsActive: boolptr(true),
	}); err != nil {
		t.Fatalf("harmless self update rejected: %v", err)
	}
}

func TestUserServiceAdminDelete(t *testing.T) {
	store := newMemoryStore()
	svc := newTestUserService(store)
	ctx := context.Background()
	admin := seedUser(t, store, "root@example.com", "root", "super-secret")
	target := seedUser(t, store, "t@example.com", "t", "super-secret")

	now := time.Now().UTC()
	store.addSession(&domain.Session{
		ID:        uuid.New(),
		UserID:    target.ID,
		RefreshID: uuid.New(),
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	})

	if err := svc.AdminDelete(ctx, admin.ID.String(), admin.ID.String()); !errors.Is(err, ErrSelfDelete) {
		t.Fatalf("expected self delete denial, got %v", err)
	}

	if err := svc.AdminDelete(ctx, admin.ID.String(), target.ID.String()); err != nil {
		t.Fatalf("delete returned error: %v", err)
	}
	if _, ok := store.userByID(target.ID); ok {
		t.Fatalf("user still present after delete")
	}
	if n := store.liveSessionCount(target.ID, now); n != 0 {
		t.Fatalf("deleting must revoke sessions, %d still live", n)
	}

	if err := svc.AdminDelete(ctx, admin.ID.String(), target.ID.String()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
