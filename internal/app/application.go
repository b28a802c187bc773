// Package app wires the vault engine's services together and manages their
// lifecycle.
package app

import (
	"context"
	"fmt"

	"github.com/CircleVault-Network/vault_engine/internal/app/services/directory"
	"github.com/CircleVault-Network/vault_engine/internal/app/services/factory"
	"github.com/CircleVault-Network/vault_engine/internal/app/services/vaults"
	"github.com/CircleVault-Network/vault_engine/internal/app/storage"
	"github.com/CircleVault-Network/vault_engine/internal/app/storage/memory"
	"github.com/CircleVault-Network/vault_engine/internal/app/system"
	"github.com/CircleVault-Network/vault_engine/internal/app/token"
	"github.com/CircleVault-Network/vault_engine/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Directory storage.DirectoryStore
	Vaults    storage.VaultStore
}

// Option customises application construction.
type Option func(*settings)

type settings struct {
	ledger        token.Ledger
	clock         vaults.Clock
	sweepSchedule string
}

// WithLedger attaches the external token ledger. Defaults to an in-process
// memory ledger for local development.
func WithLedger(l token.Ledger) Option {
	return func(s *settings) { s.ledger = l }
}

// WithClock pins the engine clock. Tests use this to drive temporal policy.
func WithClock(c vaults.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithSweepSchedule overrides the expiry sweeper's cron schedule.
func WithSweepSchedule(schedule string) Option {
	return func(s *settings) { s.sweepSchedule = schedule }
}

// Application ties the engine services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Directory *directory.Service
	Factory   *factory.Service
	Solo      *vaults.SoloEngine
	Group     *vaults.GroupEngine
	Registry  *vaults.Registry
	Ledger    token.Ledger
	Sweeper   *vaults.ExpirySweeper
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, log *logger.Logger, opts ...Option) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Directory == nil {
		stores.Directory = mem
	}
	if stores.Vaults == nil {
		stores.Vaults = mem
	}

	cfg := settings{sweepSchedule: vaults.DefaultSweepSchedule}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ledger == nil {
		log.Warn("no token ledger configured; using in-process memory ledger")
		cfg.ledger = token.NewMemoryLedger()
	}
	if cfg.clock == nil {
		cfg.clock = vaults.SystemClock{}
	}

	manager := system.NewManager()

	dirService := directory.New(stores.Directory, log)
	factoryService := factory.New(stores.Vaults, dirService, cfg.clock, log)
	engines := vaults.NewEngines(stores.Vaults, cfg.ledger, dirService, cfg.clock, log)
	registry := vaults.NewRegistry(stores.Vaults)
	sweeper := engines.NewExpirySweeper(cfg.sweepSchedule, log)

	for _, name := range []string{"directory", "factory"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}
	if err := manager.Register(sweeper); err != nil {
		return nil, fmt.Errorf("register %s: %w", sweeper.Name(), err)
	}

	return &Application{
		manager:   manager,
		log:       log,
		Directory: dirService,
		Factory:   factoryService,
		Solo:      engines.Solo,
		Group:     engines.Group,
		Registry:  registry,
		Ledger:    cfg.ledger,
		Sweeper:   sweeper,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
