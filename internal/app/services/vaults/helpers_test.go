package vaults

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/CircleVault-Network/vault_engine/internal/app/domain/vault"
	"github.com/CircleVault-Network/vault_engine/internal/app/services/directory"
	"github.com/CircleVault-Network/vault_engine/internal/app/storage/memory"
	"github.com/CircleVault-Network/vault_engine/internal/app/token"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testStart = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	store     *memory.Store
	ledger    *token.MemoryLedger
	clock     *fakeClock
	directory *directory.Service
	engines   *Engines
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.New()
	ledger := token.NewMemoryLedger()
	clock := newFakeClock(testStart)
	dir := directory.New(store, nil)
	engines := NewEngines(store, ledger, dir, clock, nil)

	return &testEnv{
		store:     store,
		ledger:    ledger,
		clock:     clock,
		directory: dir,
		engines:   engines,
	}
}

func (env *testEnv) registerVerified(t *testing.T, identity string) {
	t.Helper()
	if _, err := env.directory.Register(context.Background(), identity, identity, true); err != nil {
		t.Fatalf("register %s: %v", identity, err)
	}
}

func (env *testEnv) createSoloVault(t *testing.T, owner string, goalAmount int64, periods int) vault.Vault {
	t.Helper()

	end := testStart.Add(time.Duration(periods) * 7 * 24 * time.Hour)
	v := vault.Vault{
		Key:               owner + ":1",
		Kind:              vault.KindSolo,
		Status:            vault.StatusCreated,
		TotalParticipants: 1,
		Participants:      []string{owner},
		Membership:        map[string]vault.MembershipStatus{owner: vault.MembershipAccepted},
		Goal: vault.Goal{
			Creator:         owner,
			Currency:        "tok",
			GoalID:          1,
			Name:            "solo goal",
			GoalAmount:      goalAmount,
			AmountPerPeriod: vault.SplitPerPeriod(goalAmount, int64(periods)),
			StartTime:       testStart,
			EndTime:         end,
			TotalPeriods:    int64(periods),
			Frequency:       vault.FrequencyWeekly,
		},
	}

	created, err := env.store.CreateVault(context.Background(), v)
	if err != nil {
		t.Fatalf("create solo vault: %v", err)
	}
	return created
}

func (env *testEnv) createGroupVault(t *testing.T, owner string, goalAmount int64, participants int) vault.Vault {
	t.Helper()

	end := testStart.Add(30 * 24 * time.Hour)
	v := vault.Vault{
		Key:               owner + ":1",
		Kind:              vault.KindGroup,
		Status:            vault.StatusForming,
		TotalParticipants: participants,
		Participants:      []string{owner},
		Membership:        map[string]vault.MembershipStatus{owner: vault.MembershipAccepted},
		Goal: vault.Goal{
			Creator:         owner,
			Currency:        "tok",
			GoalID:          1,
			Name:            "group goal",
			GoalAmount:      goalAmount,
			AmountPerPeriod: vault.SplitPerParticipant(goalAmount, participants),
			StartTime:       testStart,
			EndTime:         end,
			TotalPeriods:    1,
			Frequency:       vault.FrequencyMonthly,
		},
	}

	created, err := env.store.CreateVault(context.Background(), v)
	if err != nil {
		t.Fatalf("create group vault: %v", err)
	}
	return created
}
