package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/CircleVault-Network/vault_engine/internal/app/domain/user"
	"github.com/CircleVault-Network/vault_engine/internal/app/domain/vault"
	"github.com/CircleVault-Network/vault_engine/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu            sync.RWMutex
	users         map[string]user.User
	vaults        map[string]vault.Vault
	goalSequences map[string]int64
	contributions map[string][]vault.Contribution
}

var _ storage.DirectoryStore = (*Store)(nil)
var _ storage.VaultStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:         make(map[string]user.User),
		vaults:        make(map[string]vault.Vault),
		goalSequences: make(map[string]int64),
		contributions: make(map[string][]vault.Contribution),
	}
}

// DirectoryStore implementation -----------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identityKey(u.Identity)
	if _, exists := s.users[key]; exists {
		return user.User{}, vault.ErrDuplicateRegistration
	}

	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = time.Now().UTC()
	}

	s.users[key] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identityKey(u.Identity)
	original, ok := s.users[key]
	if !ok {
		return user.User{}, vault.ErrUserNotFound
	}

	u.RegisteredAt = original.RegisteredAt
	s.users[key] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, identity string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[identityKey(identity)]
	if !ok {
		return user.User{}, vault.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Identity < result[j].Identity })
	return result, nil
}

// VaultStore implementation ---------------------------------------------------

func (s *Store) NextGoalID(_ context.Context, owner string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identityKey(owner)
	s.goalSequences[key]++
	return s.goalSequences[key], nil
}

func (s *Store) CreateVault(_ context.Context, v vault.Vault) (vault.Vault, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vaults[v.Key]; exists {
		return vault.Vault{}, vault.ErrDuplicateRegistration
	}

	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = v.CreatedAt

	s.vaults[v.Key] = v.Clone()
	return v.Clone(), nil
}

func (s *Store) UpdateVault(_ context.Context, v vault.Vault) (vault.Vault, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.vaults[v.Key]
	if !ok {
		return vault.Vault{}, vault.ErrVaultNotFound
	}

	v.CreatedAt = original.CreatedAt
	v.UpdatedAt = time.Now().UTC()

	s.vaults[v.Key] = v.Clone()
	return v.Clone(), nil
}

func (s *Store) GetVault(_ context.Context, key string) (vault.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vaults[key]
	if !ok {
		return vault.Vault{}, vault.ErrVaultNotFound
	}
	return v.Clone(), nil
}

func (s *Store) ListVaultsByOwner(_ context.Context, owner string) ([]vault.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]vault.Vault, 0)
	for _, v := range s.vaults {
		if identityKey(v.Goal.Creator) == identityKey(owner) {
			result = append(result, v.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Goal.GoalID < result[j].Goal.GoalID })
	return result, nil
}

func (s *Store) ListOpenVaults(_ context.Context) ([]vault.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]vault.Vault, 0)
	for _, v := range s.vaults {
		if v.Status == vault.StatusExpired || v.Status == vault.StatusClosed {
			continue
		}
		result = append(result, v.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (s *Store) AppendContribution(_ context.Context, c vault.Contribution) (vault.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.SavedAt.IsZero() {
		c.SavedAt = time.Now().UTC()
	}
	s.contributions[c.VaultKey] = append(s.contributions[c.VaultKey], c)
	return c, nil
}

func (s *Store) ListContributions(_ context.Context, vaultKey string) ([]vault.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]vault.Contribution(nil), s.contributions[vaultKey]...), nil
}

func identityKey(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
