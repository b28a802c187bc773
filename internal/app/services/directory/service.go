// Package directory manages identity registration and admin verification.
// Every vault operation authorises through it: only verified identities may
// create vaults or join groups.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CircleVault-Network/vault_engine/internal/app/domain/user"
	"github.com/CircleVault-Network/vault_engine/internal/app/domain/vault"
	"github.com/CircleVault-Network/vault_engine/internal/app/storage"
	"github.com/CircleVault-Network/vault_engine/pkg/logger"
)

// Service implements the user directory.
type Service struct {
	store storage.DirectoryStore
	log   *logger.Logger
}

// New constructs a directory service.
func New(store storage.DirectoryStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("directory")
	}
	return &Service{store: store, log: log}
}

// Register records a new identity. Admin registrations are verified
// immediately; everyone else waits for an admin to verify them.
func (s *Service) Register(ctx context.Context, identity, displayName string, admin bool) (user.User, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return user.User{}, fmt.Errorf("%w: identity required", vault.ErrInvalidParameters)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return user.User{}, fmt.Errorf("%w: display name required", vault.ErrInvalidParameters)
	}

	u := user.User{
		Identity:     identity,
		DisplayName:  displayName,
		Admin:        admin,
		Verified:     admin,
		RegisteredAt: time.Now().UTC(),
	}

	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return user.User{}, fmt.Errorf("register %s: %w", identity, err)
	}

	s.log.WithField("identity", created.Identity).WithField("admin", created.Admin).Info("identity registered")
	return created, nil
}

// Verify sets the verification flag on an identity. Only admins may call it.
func (s *Service) Verify(ctx context.Context, caller, identity string, approved bool) (user.User, error) {
	admin, err := s.store.GetUser(ctx, caller)
	if err != nil {
		// an unknown caller reads as unauthorized, same as RequireVerified
		if errors.Is(err, vault.ErrUserNotFound) {
			return user.User{}, fmt.Errorf("%w: caller %s is not registered", vault.ErrUnauthorized, caller)
		}
		return user.User{}, fmt.Errorf("lookup caller %s: %w", caller, err)
	}
	if !admin.Admin {
		return user.User{}, fmt.Errorf("%w: %s is not an admin", vault.ErrUnauthorized, caller)
	}

	u, err := s.store.GetUser(ctx, identity)
	if err != nil {
		return user.User{}, fmt.Errorf("lookup %s: %w", identity, err)
	}

	u.Verified = approved
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, fmt.Errorf("verify %s: %w", identity, err)
	}

	s.log.WithField("identity", identity).WithField("approved", approved).Info("identity verification updated")
	return updated, nil
}

// Get returns the directory record for an identity.
func (s *Service) Get(ctx context.Context, identity string) (user.User, error) {
	return s.store.GetUser(ctx, identity)
}

// List returns all registered identities.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// RequireVerified returns the identity's record if it is registered and
// verified, and ErrUnauthorized otherwise. Unknown identities fail closed.
func (s *Service) RequireVerified(ctx context.Context, identity string) (user.User, error) {
	u, err := s.store.GetUser(ctx, identity)
	if err != nil {
		if errors.Is(err, vault.ErrUserNotFound) {
			return user.User{}, fmt.Errorf("%w: %s is not registered", vault.ErrUnauthorized, identity)
		}
		return user.User{}, err
	}
	if !u.Verified {
		return user.User{}, fmt.Errorf("%w: %s is not verified", vault.ErrUnauthorized, identity)
	}
	return u, nil
}

// EnsureAdmin registers a verified admin identity if it does not already
// exist. Used to bootstrap the first admin from configuration.
func (s *Service) EnsureAdmin(ctx context.Context, identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil
	}

	if _, err := s.store.GetUser(ctx, identity); err == nil {
		return nil
	}

	if _, err := s.Register(ctx, identity, "bootstrap admin", true); err != nil {
		return fmt.Errorf("bootstrap admin %s: %w", identity, err)
	}
	return nil
}
