package vaults

import (
	"context"
	"testing"
	"time"

	"github.com/CircleVault-Network/vault_engine/internal/app/domain/vault"
)

func TestSweepExpiresLapsedVaults(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "alice")
	env.ledger.Mint("alice", "tok", 1000)

	lapsed := env.createSoloVault(t, "alice", 1000, 4)
	if _, err := env.engines.Solo.Deposit(context.Background(), lapsed.Key, "alice", 250); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	sweeper := env.engines.NewExpirySweeper("", nil)

	// window still open: nothing to do
	sweeper.Sweep(context.Background())
	open, _ := env.store.GetVault(context.Background(), lapsed.Key)
	if open.Status != vault.StatusActive {
		t.Fatalf("premature sweep changed status to %s", open.Status)
	}

	env.clock.Advance(60 * 24 * time.Hour)
	sweeper.Sweep(context.Background())

	expired, _ := env.store.GetVault(context.Background(), lapsed.Key)
	if expired.Status != vault.StatusExpired {
		t.Fatalf("expected expired, got %s", expired.Status)
	}

	// the saved balance is still withdrawable after expiry
	amount, err := env.engines.Solo.Withdraw(context.Background(), lapsed.Key, "alice")
	if err != nil {
		t.Fatalf("withdraw after expiry: %v", err)
	}
	if amount != 250 {
		t.Fatalf("withdrew %d, want 250", amount)
	}
}

func TestSweepSkipsAchievedVaults(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "alice")
	env.ledger.Mint("alice", "tok", 1000)

	v := env.createSoloVault(t, "alice", 1000, 1)
	if _, err := env.engines.Solo.Deposit(context.Background(), v.Key, "alice", 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	env.clock.Advance(60 * 24 * time.Hour)
	env.engines.NewExpirySweeper("", nil).Sweep(context.Background())

	after, _ := env.store.GetVault(context.Background(), v.Key)
	if after.Status != vault.StatusCompleted {
		t.Fatalf("achieved vault swept to %s", after.Status)
	}
}

func TestSweeperStartStop(t *testing.T) {
	env := newTestEnv(t)
	sweeper := env.engines.NewExpirySweeper(DefaultSweepSchedule, nil)

	if err := sweeper.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sweeper.Start(context.Background()); err != nil {
		t.Fatalf("repeat start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sweeper.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := sweeper.Stop(ctx); err != nil {
		t.Fatalf("repeat stop: %v", err)
	}
}
