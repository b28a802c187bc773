// Package vaults implements the solo and group savings state machines. Both
// engines share one rule: a mutating operation runs inside the vault key's
// exclusive critical section and either fully commits or leaves the registry
// untouched.
package vaults

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/CircleVault-Network/vault_engine/internal/app/domain/vault"
	"github.com/CircleVault-Network/vault_engine/internal/app/storage"
	"github.com/CircleVault-Network/vault_engine/internal/app/token"
	"github.com/CircleVault-Network/vault_engine/pkg/logger"
)

// core carries the collaborators shared by the solo and group engines.
type core struct {
	registry storage.VaultStore
	ledger   token.Ledger
	locks    *keyedMutex
	clock    Clock
	log      *logger.Logger
}

func newCore(registry storage.VaultStore, ledger token.Ledger, clock Clock, log *logger.Logger) *core {
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = logger.NewDefault("vaults")
	}
	return &core{
		registry: registry,
		ledger:   ledger,
		locks:    newKeyedMutex(),
		clock:    clock,
		log:      log,
	}
}

// EscrowAccount is the ledger account holding a vault's saved funds.
func EscrowAccount(key string) string {
	return "vault:" + key
}

// deposit runs the shared deposit state machine. authorize is the engine's
// caller check and runs against the freshly loaded vault before any temporal
// policy is evaluated.
func (c *core) deposit(ctx context.Context, key, caller string, amount int64, authorize func(vault.Vault) error) (vault.Vault, error) {
	if amount <= 0 {
		return vault.Vault{}, fmt.Errorf("%w: deposit amount must be positive", vault.ErrInvalidParameters)
	}

	unlock := c.locks.Lock(key)
	defer unlock()

	v, err := c.registry.GetVault(ctx, key)
	if err != nil {
		return vault.Vault{}, err
	}
	if err := authorize(v); err != nil {
		return vault.Vault{}, err
	}

	now := c.clock.Now()
	switch v.Status {
	case vault.StatusClosed:
		return vault.Vault{}, vault.ErrVaultClosed
	case vault.StatusExpired:
		return vault.Vault{}, vault.ErrOutOfWindow
	}
	if v.Goal.Achieved {
		return vault.Vault{}, vault.ErrGoalAchieved
	}
	if now.Before(v.Goal.StartTime) || now.After(v.Goal.EndTime) {
		return vault.Vault{}, vault.ErrOutOfWindow
	}
	if last, ok := v.LastSavedBy[caller]; ok {
		if now.Before(last.Add(v.Goal.Frequency.PeriodLength())) {
			return vault.Vault{}, vault.ErrTooEarly
		}
	}
	if v.Goal.AmountSaved+amount > v.Goal.GoalAmount {
		return vault.Vault{}, vault.ErrExceedsGoal
	}

	// Move funds before touching the registry; a failed transfer leaves the
	// vault exactly as loaded.
	if err := c.ledger.Transfer(ctx, caller, EscrowAccount(key), v.Goal.Currency, amount); err != nil {
		return vault.Vault{}, fmt.Errorf("%w: %v", vault.ErrTransferFailed, err)
	}

	v.Goal.AmountSaved += amount
	v.Goal.LastSavedAt = now
	if v.LastSavedBy == nil {
		v.LastSavedBy = make(map[string]time.Time)
	}
	v.LastSavedBy[caller] = now
	if v.Contributed == nil {
		v.Contributed = make(map[string]int64)
	}
	v.Contributed[caller] += amount

	period := v.PeriodIndex(now)
	if period > v.CurrentPeriod {
		v.CurrentPeriod = period
		v.PeriodContributed = nil
	}
	if v.PeriodContributed == nil {
		v.PeriodContributed = make(map[string]int64)
	}
	v.PeriodContributed[caller] += amount

	if v.Status == vault.StatusCreated {
		v.Status = vault.StatusActive
	}
	if v.Goal.AmountSaved == v.Goal.GoalAmount {
		v.Goal.Achieved = true
		v.Status = vault.StatusCompleted
	}

	updated, err := c.registry.UpdateVault(ctx, v)
	if err != nil {
		// Persist failed: return the funds so the ledger matches the
		// unchanged registry state.
		if refundErr := c.ledger.Transfer(ctx, EscrowAccount(key), caller, v.Goal.Currency, amount); refundErr != nil {
			c.log.WithError(refundErr).WithField("vault", key).Error("deposit refund failed after persist error")
		}
		return vault.Vault{}, fmt.Errorf("persist deposit: %w", err)
	}

	c.recordContribution(ctx, updated.Key, caller, amount, period, now)

	c.log.WithField("vault", key).
		WithField("caller", caller).
		WithField("amount", amount).
		Info("deposit committed")
	return updated, nil
}

// payout moves amount from the vault escrow to the recipient and persists
// the already-mutated vault. On persist failure the payout is clawed back.
func (c *core) payout(ctx context.Context, v vault.Vault, recipient string, amount int64) (vault.Vault, error) {
	if err := c.ledger.Transfer(ctx, EscrowAccount(v.Key), recipient, v.Goal.Currency, amount); err != nil {
		return vault.Vault{}, fmt.Errorf("%w: %v", vault.ErrTransferFailed, err)
	}

	updated, err := c.registry.UpdateVault(ctx, v)
	if err != nil {
		if refundErr := c.ledger.Transfer(ctx, recipient, EscrowAccount(v.Key), v.Goal.Currency, amount); refundErr != nil {
			c.log.WithError(refundErr).WithField("vault", v.Key).Error("withdrawal clawback failed after persist error")
		}
		return vault.Vault{}, fmt.Errorf("persist withdrawal: %w", err)
	}
	return updated, nil
}

func (c *core) recordContribution(ctx context.Context, key, caller string, amount, period int64, now time.Time) {
	_, err := c.registry.AppendContribution(ctx, vault.Contribution{
		ID:          uuid.NewString(),
		VaultKey:    key,
		Participant: caller,
		Amount:      amount,
		Period:      period,
		SavedAt:     now,
	})
	if err != nil {
		// Audit trail only; the vault state is already committed.
		c.log.WithError(err).WithField("vault", key).Warn("record contribution failed")
	}
}

// withdrawable reports whether the goal's funds are released: either the
// goal was achieved or the savings window has closed.
func withdrawable(v vault.Vault, now time.Time) bool {
	return v.Goal.Achieved || now.After(v.Goal.EndTime)
}

// participantProgress projects each member's standing against the period now
// falls in. The stored period tracker only advances on deposits, so once the
// clock has crossed into a later period the recorded per-period amounts no
// longer count toward the current one.
func participantProgress(v vault.Vault, now time.Time) []vault.ParticipantProgress {
	rolled := v.PeriodIndex(now) > v.CurrentPeriod
	result := make([]vault.ParticipantProgress, 0, len(v.Participants))
	for _, member := range v.Participants {
		var periodSaved int64
		if !rolled {
			periodSaved = v.PeriodContributed[member]
		}
		result = append(result, vault.ParticipantProgress{
			Identity:    member,
			PeriodSaved: periodSaved,
			PeriodGoal:  v.Goal.AmountPerPeriod,
			TotalSaved:  v.Contributed[member],
		})
	}
	return result
}
