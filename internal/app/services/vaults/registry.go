package vaults

import (
	"context"

	"github.com/CircleVault-Network/vault_engine/internal/app/domain/vault"
	"github.com/CircleVault-Network/vault_engine/internal/app/storage"
)

// Registry is the read side of the vault index. Lookups go straight to the
// store: every mutation commits its whole vault row, so a read observes the
// latest committed state for that key.
type Registry struct {
	store storage.VaultStore
}

// NewRegistry constructs the read-side registry.
func NewRegistry(store storage.VaultStore) *Registry {
	return &Registry{store: store}
}

// Get returns the vault addressed by key.
func (r *Registry) Get(ctx context.Context, key string) (vault.Vault, error) {
	return r.store.GetVault(ctx, key)
}

// ListByOwner returns all vaults created by the owner, oldest goal first.
func (r *Registry) ListByOwner(ctx context.Context, owner string) ([]vault.Vault, error) {
	return r.store.ListVaultsByOwner(ctx, owner)
}

// Contributions returns the deposit audit trail for a vault.
func (r *Registry) Contributions(ctx context.Context, key string) ([]vault.Contribution, error) {
	if _, err := r.store.GetVault(ctx, key); err != nil {
		return nil, err
	}
	return r.store.ListContributions(ctx, key)
}
