package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/CircleVault-Network/vault_engine/internal/app/domain/user"
	"github.com/CircleVault-Network/vault_engine/internal/app/domain/vault"
)

func TestUserRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateUser(ctx, user.User{Identity: "Alice", DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.RegisteredAt.IsZero() {
		t.Fatal("registration timestamp not assigned")
	}

	if _, err := s.CreateUser(ctx, user.User{Identity: "alice"}); !errors.Is(err, vault.ErrDuplicateRegistration) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	// lookups normalise identity casing
	got, err := s.GetUser(ctx, " ALICE ")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DisplayName != "Alice" {
		t.Fatalf("display name = %q", got.DisplayName)
	}

	got.Verified = true
	if _, err := s.UpdateUser(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, _ := s.GetUser(ctx, "alice")
	if !updated.Verified {
		t.Fatal("update not persisted")
	}
	if !updated.RegisteredAt.Equal(created.RegisteredAt) {
		t.Fatal("update must preserve the registration timestamp")
	}

	if _, err := s.UpdateUser(ctx, user.User{Identity: "ghost"}); !errors.Is(err, vault.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestNextGoalIDPerOwner(t *testing.T) {
	s := New()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.NextGoalID(ctx, "alice")
		if err != nil {
			t.Fatalf("next goal id: %v", err)
		}
		if got != want {
			t.Fatalf("alice sequence = %d, want %d", got, want)
		}
	}

	got, err := s.NextGoalID(ctx, "bob")
	if err != nil {
		t.Fatalf("next goal id: %v", err)
	}
	if got != 1 {
		t.Fatalf("bob sequence = %d, want 1 (sequences are per owner)", got)
	}
}

func TestVaultCloneIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateVault(ctx, vault.Vault{
		Key:        "alice:1",
		Kind:       vault.KindGroup,
		Status:     vault.StatusForming,
		Membership: map[string]vault.MembershipStatus{"alice": vault.MembershipAccepted},
		Goal:       vault.Goal{Creator: "alice", GoalID: 1},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// mutating the returned copy must not leak into the store
	created.Membership["mallory"] = vault.MembershipAccepted

	stored, _ := s.GetVault(ctx, "alice:1")
	if _, ok := stored.Membership["mallory"]; ok {
		t.Fatal("stored vault shares state with the returned copy")
	}

	if _, err := s.CreateVault(ctx, vault.Vault{Key: "alice:1"}); !errors.Is(err, vault.ErrDuplicateRegistration) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
	if _, err := s.GetVault(ctx, "alice:99"); !errors.Is(err, vault.ErrVaultNotFound) {
		t.Fatalf("expected vault not found, got %v", err)
	}
	if _, err := s.UpdateVault(ctx, vault.Vault{Key: "alice:99"}); !errors.Is(err, vault.ErrVaultNotFound) {
		t.Fatalf("expected vault not found on update, got %v", err)
	}
}

func TestListOpenVaultsFiltersTerminalStates(t *testing.T) {
	s := New()
	ctx := context.Background()

	states := map[string]vault.Status{
		"alice:1": vault.StatusCreated,
		"alice:2": vault.StatusActive,
		"alice:3": vault.StatusCompleted,
		"bob:1":   vault.StatusExpired,
		"bob:2":   vault.StatusClosed,
	}
	for key, status := range states {
		if _, err := s.CreateVault(ctx, vault.Vault{Key: key, Status: status}); err != nil {
			t.Fatalf("create %s: %v", key, err)
		}
	}

	open, err := s.ListOpenVaults(ctx)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 3 {
		t.Fatalf("open vaults = %d, want 3", len(open))
	}
	for _, v := range open {
		if v.Status == vault.StatusExpired || v.Status == vault.StatusClosed {
			t.Fatalf("terminal vault %s listed as open", v.Key)
		}
	}
}

func TestListVaultsByOwner(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i, key := range []string{"alice:2", "alice:1", "bob:1"} {
		owner := strings.SplitN(key, ":", 2)[0]
		if _, err := s.CreateVault(ctx, vault.Vault{Key: key, Goal: vault.Goal{Creator: owner, GoalID: int64(2 - i)}}); err != nil {
			t.Fatalf("create %s: %v", key, err)
		}
	}

	mine, err := s.ListVaultsByOwner(ctx, "ALICE")
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("owner vaults = %d, want 2", len(mine))
	}
	if mine[0].Goal.GoalID > mine[1].Goal.GoalID {
		t.Fatal("vaults not ordered by goal id")
	}
}

func TestContributionLog(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.AppendContribution(ctx, vault.Contribution{ID: "c1", VaultKey: "alice:1", Participant: "alice", Amount: 250})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if first.SavedAt.IsZero() {
		t.Fatal("contribution timestamp not assigned")
	}

	at := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	if _, err := s.AppendContribution(ctx, vault.Contribution{ID: "c2", VaultKey: "alice:1", Participant: "alice", Amount: 250, SavedAt: at}); err != nil {
		t.Fatalf("append: %v", err)
	}

	records, err := s.ListContributions(ctx, "alice:1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if !records[1].SavedAt.Equal(at) {
		t.Fatalf("explicit timestamp lost: %v", records[1].SavedAt)
	}

	other, _ := s.ListContributions(ctx, "bob:1")
	if len(other) != 0 {
		t.Fatalf("unrelated vault has %d records", len(other))
	}
}
