// Package factory instantiates savings vaults. It owns parameter validation
// and vault key allocation; once a vault exists, the solo and group engines
// take over.
package factory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/CircleVault-Network/vault_engine/internal/app/domain/user"
	"github.com/CircleVault-Network/vault_engine/internal/app/domain/vault"
	"github.com/CircleVault-Network/vault_engine/internal/app/metrics"
	"github.com/CircleVault-Network/vault_engine/internal/app/services/vaults"
	"github.com/CircleVault-Network/vault_engine/internal/app/storage"
	"github.com/CircleVault-Network/vault_engine/pkg/logger"
)

// Verifier authorises creators against the directory. Implemented by
// directory.Service.
type Verifier interface {
	RequireVerified(ctx context.Context, identity string) (user.User, error)
}

// Service creates vaults.
type Service struct {
	registry storage.VaultStore
	verifier Verifier
	clock    vaults.Clock
	log      *logger.Logger
}

// New constructs a factory.
func New(registry storage.VaultStore, verifier Verifier, clock vaults.Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = vaults.SystemClock{}
	}
	if log == nil {
		log = logger.NewDefault("factory")
	}
	return &Service{registry: registry, verifier: verifier, clock: clock, log: log}
}

// CreateParams are the goal parameters supplied by the creator.
type CreateParams struct {
	Creator      string
	Name         string
	GoalAmount   int64
	Frequency    string
	Currency     string
	Start        time.Time
	End          time.Time
	Participants int
}

// CreateVault validates the parameters, allocates a structurally unique
// vault key and records the new vault. Zero or one participants yields a
// solo vault; two or more a group vault with the creator as its first
// accepted member.
func (s *Service) CreateVault(ctx context.Context, p CreateParams) (vault.Vault, error) {
	if _, err := s.verifier.RequireVerified(ctx, p.Creator); err != nil {
		return vault.Vault{}, err
	}

	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return vault.Vault{}, fmt.Errorf("%w: name required", vault.ErrInvalidParameters)
	}
	if p.GoalAmount <= 0 {
		return vault.Vault{}, fmt.Errorf("%w: goal amount must be positive", vault.ErrInvalidParameters)
	}
	if strings.TrimSpace(p.Currency) == "" {
		return vault.Vault{}, fmt.Errorf("%w: currency required", vault.ErrInvalidParameters)
	}
	if !p.End.After(p.Start) {
		return vault.Vault{}, fmt.Errorf("%w: end must be after start", vault.ErrInvalidParameters)
	}
	if p.Participants < 0 {
		return vault.Vault{}, fmt.Errorf("%w: participant count must not be negative", vault.ErrInvalidParameters)
	}

	freq, err := vault.ParseFrequency(p.Frequency)
	if err != nil {
		return vault.Vault{}, err
	}

	goalID, err := s.registry.NextGoalID(ctx, p.Creator)
	if err != nil {
		return vault.Vault{}, fmt.Errorf("allocate goal id: %w", err)
	}
	key := fmt.Sprintf("%s:%d", p.Creator, goalID)

	totalPeriods := vault.TotalPeriods(p.Start, p.End, freq)
	now := s.clock.Now()

	v := vault.Vault{
		Key: key,
		Goal: vault.Goal{
			Creator:      p.Creator,
			Currency:     strings.TrimSpace(p.Currency),
			GoalID:       goalID,
			Name:         p.Name,
			GoalAmount:   p.GoalAmount,
			StartTime:    p.Start.UTC(),
			EndTime:      p.End.UTC(),
			TotalPeriods: totalPeriods,
			Frequency:    freq,
		},
		Participants: []string{p.Creator},
		Membership:   map[string]vault.MembershipStatus{p.Creator: vault.MembershipAccepted},
		CreatedAt:    now,
	}

	if p.Participants <= 1 {
		v.Kind = vault.KindSolo
		v.Status = vault.StatusCreated
		v.TotalParticipants = 1
		v.Goal.AmountPerPeriod = vault.SplitPerPeriod(p.GoalAmount, totalPeriods)
	} else {
		v.Kind = vault.KindGroup
		v.Status = vault.StatusForming
		v.TotalParticipants = p.Participants
		v.Goal.AmountPerPeriod = vault.SplitPerParticipant(p.GoalAmount, p.Participants)
	}

	created, err := s.registry.CreateVault(ctx, v)
	if err != nil {
		return vault.Vault{}, fmt.Errorf("record vault %s: %w", key, err)
	}

	metrics.RecordVaultCreated(string(created.Kind))
	s.log.WithField("vault", created.Key).
		WithField("kind", string(created.Kind)).
		WithField("goal_amount", created.Goal.GoalAmount).
		Info("vault created")
	return created, nil
}
