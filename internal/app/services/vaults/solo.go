package vaults

import (
	"context"
	"fmt"

	"github.com/CircleVault-Network/vault_engine/internal/app/domain/vault"
	"github.com/CircleVault-Network/vault_engine/internal/app/metrics"
	"github.com/CircleVault-Network/vault_engine/internal/app/storage"
	"github.com/CircleVault-Network/vault_engine/internal/app/token"
	"github.com/CircleVault-Network/vault_engine/pkg/logger"
)

// SoloEngine drives single-owner vaults: only the creator deposits, and the
// full saved amount is paid back to them once the goal is achieved or the
// window has closed.
type SoloEngine struct {
	*core
}

// NewSolo constructs the solo engine.
func NewSolo(registry storage.VaultStore, ledger token.Ledger, clock Clock, log *logger.Logger) *SoloEngine {
	if log == nil {
		log = logger.NewDefault("vaults-solo")
	}
	return &SoloEngine{core: newCore(registry, ledger, clock, log)}
}

// newSoloWithCore shares a core (and its keyed locks) with a sibling engine.
func newSoloWithCore(c *core) *SoloEngine { return &SoloEngine{core: c} }

// Deposit records one scheduled contribution by the vault's owner.
func (e *SoloEngine) Deposit(ctx context.Context, key, caller string, amount int64) (vault.Vault, error) {
	v, err := e.deposit(ctx, key, caller, amount, func(v vault.Vault) error {
		if v.Kind != vault.KindSolo {
			return fmt.Errorf("%w: %s is not a solo vault", vault.ErrInvalidParameters, key)
		}
		if v.Goal.Creator != caller {
			return fmt.Errorf("%w: %s does not own %s", vault.ErrUnauthorized, caller, key)
		}
		return nil
	})
	metrics.RecordDeposit(string(vault.KindSolo), amount, err)
	return v, err
}

// Withdraw pays the owner the full saved amount and closes the vault. The
// closure is recorded exactly once; a repeat call fails with ErrVaultClosed.
func (e *SoloEngine) Withdraw(ctx context.Context, key, caller string) (int64, error) {
	amount, err := e.withdraw(ctx, key, caller)
	metrics.RecordWithdrawal(string(vault.KindSolo), err)
	return amount, err
}

// Progress reports the owner's standing against the period the clock
// currently falls in, plus their lifetime total.
func (e *SoloEngine) Progress(ctx context.Context, key string) ([]vault.ParticipantProgress, error) {
	v, err := e.registry.GetVault(ctx, key)
	if err != nil {
		return nil, err
	}
	if v.Kind != vault.KindSolo {
		return nil, fmt.Errorf("%w: %s is not a solo vault", vault.ErrInvalidParameters, key)
	}
	return participantProgress(v, e.clock.Now()), nil
}

func (e *SoloEngine) withdraw(ctx context.Context, key, caller string) (int64, error) {
	unlock := e.locks.Lock(key)
	defer unlock()

	v, err := e.registry.GetVault(ctx, key)
	if err != nil {
		return 0, err
	}
	if v.Kind != vault.KindSolo {
		return 0, fmt.Errorf("%w: %s is not a solo vault", vault.ErrInvalidParameters, key)
	}
	if v.Goal.Creator != caller {
		return 0, fmt.Errorf("%w: %s does not own %s", vault.ErrUnauthorized, caller, key)
	}
	if v.Status == vault.StatusClosed {
		return 0, vault.ErrVaultClosed
	}

	now := e.clock.Now()
	if !withdrawable(v, now) {
		return 0, vault.ErrWithdrawalLocked
	}

	amount := v.Goal.AmountSaved
	v.Status = vault.StatusClosed

	if amount == 0 {
		if _, err := e.registry.UpdateVault(ctx, v); err != nil {
			return 0, fmt.Errorf("persist withdrawal: %w", err)
		}
		return 0, nil
	}

	if _, err := e.payout(ctx, v, caller, amount); err != nil {
		return 0, err
	}

	e.log.WithField("vault", key).WithField("amount", amount).Info("solo vault withdrawn and closed")
	return amount, nil
}
