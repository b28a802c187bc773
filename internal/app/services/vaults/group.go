package vaults

import (
	"context"
	"fmt"

	"github.com/CircleVault-Network/vault_engine/internal/app/domain/user"
	"github.com/CircleVault-Network/vault_engine/internal/app/domain/vault"
	"github.com/CircleVault-Network/vault_engine/internal/app/metrics"
	"github.com/CircleVault-Network/vault_engine/internal/app/storage"
	"github.com/CircleVault-Network/vault_engine/internal/app/token"
	"github.com/CircleVault-Network/vault_engine/pkg/logger"
)

// Verifier authorises identities against the directory. Implemented by
// directory.Service.
type Verifier interface {
	RequireVerified(ctx context.Context, identity string) (user.User, error)
}

// GroupEngine drives multi-participant vaults: membership moves through an
// invitation lifecycle, every accepted member contributes on the shared
// schedule, and after release each member withdraws exactly their own
// recorded contribution.
type GroupEngine struct {
	*core
	verifier Verifier
}

// NewGroup constructs the group engine.
func NewGroup(registry storage.VaultStore, ledger token.Ledger, verifier Verifier, clock Clock, log *logger.Logger) *GroupEngine {
	if log == nil {
		log = logger.NewDefault("vaults-group")
	}
	return &GroupEngine{core: newCore(registry, ledger, clock, log), verifier: verifier}
}

// newGroupWithCore shares a core (and its keyed locks) with a sibling engine.
func newGroupWithCore(c *core, verifier Verifier) *GroupEngine {
	return &GroupEngine{core: c, verifier: verifier}
}

// Invite records a pending invitation for a verified candidate. The sum of
// accepted members and pending invites never exceeds the target count, so
// accept can never overshoot capacity.
func (e *GroupEngine) Invite(ctx context.Context, key, inviter, candidate string) error {
	unlock := e.locks.Lock(key)
	defer unlock()

	v, err := e.loadGroup(ctx, key)
	if err != nil {
		return err
	}
	if err := e.requireJoinable(v); err != nil {
		return err
	}
	if !v.IsAccepted(inviter) {
		return fmt.Errorf("%w: %s", vault.ErrNotAMember, inviter)
	}
	if _, err := e.verifier.RequireVerified(ctx, candidate); err != nil {
		return err
	}
	if _, exists := v.Membership[candidate]; exists {
		return fmt.Errorf("%w: %s", vault.ErrMembershipExists, candidate)
	}
	if len(v.Participants)+v.PendingInvites() >= v.TotalParticipants {
		return vault.ErrCapacityReached
	}

	if v.Membership == nil {
		v.Membership = make(map[string]vault.MembershipStatus)
	}
	v.Membership[candidate] = vault.MembershipInvited

	if _, err := e.registry.UpdateVault(ctx, v); err != nil {
		return fmt.Errorf("persist invite: %w", err)
	}

	e.log.WithField("vault", key).WithField("candidate", candidate).Info("candidate invited")
	return nil
}

// Accept confirms a pending invite, appending the candidate to the accepted
// participants. The transition out of Invited is terminal.
func (e *GroupEngine) Accept(ctx context.Context, key, inviter, candidate string) error {
	return e.decide(ctx, key, inviter, candidate, vault.MembershipAccepted)
}

// Reject declines a pending invite. The candidate can never be re-invited.
func (e *GroupEngine) Reject(ctx context.Context, key, inviter, candidate string) error {
	return e.decide(ctx, key, inviter, candidate, vault.MembershipRejected)
}

func (e *GroupEngine) decide(ctx context.Context, key, inviter, candidate string, decision vault.MembershipStatus) error {
	unlock := e.locks.Lock(key)
	defer unlock()

	v, err := e.loadGroup(ctx, key)
	if err != nil {
		return err
	}
	if err := e.requireJoinable(v); err != nil {
		return err
	}
	if !v.IsAccepted(inviter) {
		return fmt.Errorf("%w: %s", vault.ErrNotAMember, inviter)
	}

	switch v.Membership[candidate] {
	case vault.MembershipInvited:
	case "":
		return fmt.Errorf("%w: %s", vault.ErrNoPendingInvite, candidate)
	default:
		return fmt.Errorf("%w: %s", vault.ErrMembershipDecided, candidate)
	}

	if decision == vault.MembershipAccepted {
		if len(v.Participants) >= v.TotalParticipants {
			return vault.ErrCapacityReached
		}
		v.Participants = append(v.Participants, candidate)
	}
	v.Membership[candidate] = decision

	if len(v.Participants) == v.TotalParticipants && v.Status == vault.StatusForming {
		v.Status = vault.StatusActive
	}

	if _, err := e.registry.UpdateVault(ctx, v); err != nil {
		return fmt.Errorf("persist membership decision: %w", err)
	}

	e.log.WithField("vault", key).
		WithField("candidate", candidate).
		WithField("decision", string(decision)).
		Info("membership decided")
	return nil
}

// Deposit records one scheduled contribution by an accepted member. The
// period gate is tracked per member: each participant owes the per-period
// share on their own schedule.
func (e *GroupEngine) Deposit(ctx context.Context, key, caller string, amount int64) (vault.Vault, error) {
	v, err := e.deposit(ctx, key, caller, amount, func(v vault.Vault) error {
		if v.Kind != vault.KindGroup {
			return fmt.Errorf("%w: %s is not a group vault", vault.ErrInvalidParameters, key)
		}
		if !v.IsAccepted(caller) {
			return fmt.Errorf("%w: %s", vault.ErrNotAMember, caller)
		}
		return nil
	})
	metrics.RecordDeposit(string(vault.KindGroup), amount, err)
	return v, err
}

// Withdraw pays the caller their own recorded contribution, exactly once.
// The vault closes when the last accepted member has withdrawn.
func (e *GroupEngine) Withdraw(ctx context.Context, key, caller string) (int64, error) {
	share, err := e.withdraw(ctx, key, caller)
	metrics.RecordWithdrawal(string(vault.KindGroup), err)
	return share, err
}

func (e *GroupEngine) withdraw(ctx context.Context, key, caller string) (int64, error) {
	unlock := e.locks.Lock(key)
	defer unlock()

	v, err := e.loadGroup(ctx, key)
	if err != nil {
		return 0, err
	}
	if v.Status == vault.StatusClosed {
		return 0, vault.ErrVaultClosed
	}
	if !v.IsAccepted(caller) {
		return 0, fmt.Errorf("%w: %s", vault.ErrNotAMember, caller)
	}
	if !withdrawable(v, e.clock.Now()) {
		return 0, vault.ErrWithdrawalLocked
	}
	if v.Withdrawn[caller] {
		return 0, vault.ErrAlreadyWithdrawn
	}

	if v.Withdrawn == nil {
		v.Withdrawn = make(map[string]bool)
	}
	v.Withdrawn[caller] = true

	allOut := true
	for _, member := range v.Participants {
		if !v.Withdrawn[member] {
			allOut = false
			break
		}
	}
	if allOut {
		v.Status = vault.StatusClosed
	}

	share := v.Contributed[caller]
	if share == 0 {
		if _, err := e.registry.UpdateVault(ctx, v); err != nil {
			return 0, fmt.Errorf("persist withdrawal: %w", err)
		}
		return 0, nil
	}

	if _, err := e.payout(ctx, v, caller, share); err != nil {
		return 0, err
	}

	e.log.WithField("vault", key).
		WithField("caller", caller).
		WithField("amount", share).
		Info("group share withdrawn")
	return share, nil
}

// GetGroupGoal returns the current snapshot of a group vault.
func (e *GroupEngine) GetGroupGoal(ctx context.Context, key string) (vault.Vault, error) {
	return e.loadGroup(ctx, key)
}

// Progress reports each accepted member's standing against the period the
// clock currently falls in, plus their lifetime total. Periods that passed
// without a deposit count as zero saved.
func (e *GroupEngine) Progress(ctx context.Context, key string) ([]vault.ParticipantProgress, error) {
	v, err := e.loadGroup(ctx, key)
	if err != nil {
		return nil, err
	}
	return participantProgress(v, e.clock.Now()), nil
}

func (e *GroupEngine) loadGroup(ctx context.Context, key string) (vault.Vault, error) {
	v, err := e.registry.GetVault(ctx, key)
	if err != nil {
		return vault.Vault{}, err
	}
	if v.Kind != vault.KindGroup {
		return vault.Vault{}, fmt.Errorf("%w: %s is not a group vault", vault.ErrInvalidParameters, key)
	}
	return v, nil
}

// requireJoinable gates membership mutations on the vault lifecycle.
func (e *GroupEngine) requireJoinable(v vault.Vault) error {
	switch v.Status {
	case vault.StatusForming, vault.StatusActive:
		return nil
	case vault.StatusClosed:
		return vault.ErrVaultClosed
	case vault.StatusExpired:
		return vault.ErrOutOfWindow
	default:
		return fmt.Errorf("%w: vault is %s", vault.ErrInvalidParameters, v.Status)
	}
}
