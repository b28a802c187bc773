package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/CircleVault-Network/vault_engine/internal/app/domain/vault"
	"github.com/CircleVault-Network/vault_engine/internal/app/storage/memory"
)

func newService() *Service {
	return New(memory.New(), nil)
}

func TestRegisterAndDuplicate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "Alice", false)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Verified {
		t.Fatal("plain registration must start unverified")
	}
	if u.RegisteredAt.IsZero() {
		t.Fatal("registration timestamp not set")
	}

	if _, err := svc.Register(ctx, "alice", "Alice again", false); !errors.Is(err, vault.ErrDuplicateRegistration) {
		t.Fatalf("expected duplicate registration, got %v", err)
	}
	// identity matching is case-insensitive
	if _, err := svc.Register(ctx, "ALICE", "Alice", false); !errors.Is(err, vault.ErrDuplicateRegistration) {
		t.Fatalf("expected duplicate for case variant, got %v", err)
	}
	if _, err := svc.Register(ctx, "  ", "blank", false); !errors.Is(err, vault.ErrInvalidParameters) {
		t.Fatalf("expected invalid parameters for blank identity, got %v", err)
	}
	if _, err := svc.Register(ctx, "dana", "   ", false); !errors.Is(err, vault.ErrInvalidParameters) {
		t.Fatalf("expected invalid parameters for blank display name, got %v", err)
	}
}

func TestVerifyRequiresAdmin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "root", "Root", true); err != nil {
		t.Fatalf("register admin: %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "Alice", false); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "bob", "Bob", false); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Verify(ctx, "bob", "alice", true); !errors.Is(err, vault.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for non-admin verifier, got %v", err)
	}
	// an unregistered caller fails closed, same as RequireVerified
	if _, err := svc.Verify(ctx, "ghost", "alice", true); !errors.Is(err, vault.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown verifier, got %v", err)
	}

	verified, err := svc.Verify(ctx, "root", "alice", true)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.Verified {
		t.Fatal("verification flag not set")
	}

	if _, err := svc.RequireVerified(ctx, "alice"); err != nil {
		t.Fatalf("require verified: %v", err)
	}
	if _, err := svc.RequireVerified(ctx, "bob"); !errors.Is(err, vault.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unverified identity, got %v", err)
	}
	// unknown identities fail closed
	if _, err := svc.RequireVerified(ctx, "ghost"); !errors.Is(err, vault.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown identity, got %v", err)
	}

	// verification can be revoked
	if _, err := svc.Verify(ctx, "root", "alice", false); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.RequireVerified(ctx, "alice"); !errors.Is(err, vault.ErrUnauthorized) {
		t.Fatalf("expected unauthorized after revocation, got %v", err)
	}
}

func TestEnsureAdminIdempotent(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, ""); err != nil {
		t.Fatalf("blank admin must be a no-op: %v", err)
	}
	if err := svc.EnsureAdmin(ctx, "root"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if err := svc.EnsureAdmin(ctx, "root"); err != nil {
		t.Fatalf("repeat ensure admin: %v", err)
	}

	u, err := svc.Get(ctx, "root")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !u.Admin || !u.Verified {
		t.Fatalf("bootstrap admin flags = admin:%v verified:%v", u.Admin, u.Verified)
	}

	users, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected a single identity, got %d", len(users))
	}
}
