package vaults

import (
	"github.com/CircleVault-Network/vault_engine/internal/app/storage"
	"github.com/CircleVault-Network/vault_engine/internal/app/token"
	"github.com/CircleVault-Network/vault_engine/pkg/logger"
)

// Engines bundles the solo and group state machines over one shared core so
// every mutation of a vault key serialises on the same lock, whichever
// engine issued it.
type Engines struct {
	Solo  *SoloEngine
	Group *GroupEngine

	core *core
}

// NewEngines wires both engines to the registry and token ledger.
func NewEngines(registry storage.VaultStore, ledger token.Ledger, verifier Verifier, clock Clock, log *logger.Logger) *Engines {
	c := newCore(registry, ledger, clock, log)
	return &Engines{
		Solo:  newSoloWithCore(c),
		Group: newGroupWithCore(c, verifier),
		core:  c,
	}
}
