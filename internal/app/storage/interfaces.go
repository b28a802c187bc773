// Package storage declares the persistence interfaces the engine depends
// on. Stores hold no business rules; they guarantee that a read observes
// the most recently committed write for a key.
package storage

import (
	"context"

	"github.com/CircleVault-Network/vault_engine/internal/app/domain/user"
	"github.com/CircleVault-Network/vault_engine/internal/app/domain/vault"
)

// DirectoryStore persists registered users, keyed by identity.
type DirectoryStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, identity string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
}

// VaultStore is the registry: the durable index from vault key to vault
// state and from owner to owned vaults.
type VaultStore interface {
	// NextGoalID issues the per-owner monotonic sequence vault keys are
	// derived from. Two calls never return the same value for one owner.
	NextGoalID(ctx context.Context, owner string) (int64, error)

	CreateVault(ctx context.Context, v vault.Vault) (vault.Vault, error)
	UpdateVault(ctx context.Context, v vault.Vault) (vault.Vault, error)
	GetVault(ctx context.Context, key string) (vault.Vault, error)
	ListVaultsByOwner(ctx context.Context, owner string) ([]vault.Vault, error)
	// ListOpenVaults returns vaults not yet expired or closed, for the sweeper.
	ListOpenVaults(ctx context.Context) ([]vault.Vault, error)

	AppendContribution(ctx context.Context, c vault.Contribution) (vault.Contribution, error)
	ListContributions(ctx context.Context, vaultKey string) ([]vault.Contribution, error)
}
