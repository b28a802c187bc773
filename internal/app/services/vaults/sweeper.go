package vaults

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/CircleVault-Network/vault_engine/internal/app/domain/vault"
	"github.com/CircleVault-Network/vault_engine/internal/app/metrics"
	"github.com/CircleVault-Network/vault_engine/pkg/logger"
)

// DefaultSweepSchedule runs the expiry scan once a minute.
const DefaultSweepSchedule = "* * * * *"

// ExpirySweeper marks vaults whose window closed without the goal being
// achieved as Expired. Deposits against such vaults already fail OutOfWindow
// on the clock; the sweeper keeps the stored status in step for readers.
type ExpirySweeper struct {
	core     *core
	schedule string
	log      *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewExpirySweeper builds a sweeper over the engines' shared core. schedule
// is a standard five-field cron expression.
func (e *Engines) NewExpirySweeper(schedule string, log *logger.Logger) *ExpirySweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if log == nil {
		log = logger.NewDefault("vault-sweeper")
	}
	return &ExpirySweeper{core: e.core, schedule: schedule, log: log}
}

func (s *ExpirySweeper) Name() string { return "vault-sweeper" }

// Start schedules the sweep. Safe to call once; repeat calls are no-ops.
func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.Sweep(context.Background()) }); err != nil {
		return err
	}
	c.Start()

	s.cron = c
	s.running = true
	s.log.WithField("schedule", s.schedule).Info("expiry sweeper started")
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *ExpirySweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.running = false
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep performs one scan. Exported so the schedule can be bypassed in tests
// and on startup.
func (s *ExpirySweeper) Sweep(ctx context.Context) {
	open, err := s.core.registry.ListOpenVaults(ctx)
	if err != nil {
		s.log.WithError(err).Warn("list open vaults failed")
		return
	}

	now := s.core.clock.Now()
	for _, candidate := range open {
		if !now.After(candidate.Goal.EndTime) || candidate.Goal.Achieved {
			continue
		}
		s.expire(ctx, candidate.Key)
	}
}

func (s *ExpirySweeper) expire(ctx context.Context, key string) {
	unlock := s.core.locks.Lock(key)
	defer unlock()

	// Reload under the lock; a concurrent deposit may have achieved the goal
	// or a withdrawal closed the vault since the scan.
	v, err := s.core.registry.GetVault(ctx, key)
	if err != nil {
		s.log.WithError(err).WithField("vault", key).Warn("reload vault failed")
		return
	}
	if v.Goal.Achieved || v.Status == vault.StatusExpired || v.Status == vault.StatusClosed {
		return
	}
	if !s.core.clock.Now().After(v.Goal.EndTime) {
		return
	}

	v.Status = vault.StatusExpired
	if _, err := s.core.registry.UpdateVault(ctx, v); err != nil {
		s.log.WithError(err).WithField("vault", key).Warn("mark expired failed")
		return
	}
	metrics.RecordVaultExpired()
	s.log.WithField("vault", key).Info("vault expired")
}
