// Package token abstracts the funds-transfer collaborator the vault engines
// move balances through. The engine never holds balances itself; every
// deposit and withdrawal is a transfer between an identity account and the
// vault's escrow account on this ledger.
package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInsufficientFunds is returned when the source account cannot cover the
// requested transfer.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger is the external token system. A nil error means the transfer fully
// settled; any error means no funds moved.
type Ledger interface {
	Transfer(ctx context.Context, from, to, currency string, amount int64) error
}

// MemoryLedger is an in-process Ledger for tests and local development.
// Balances are tracked per account and currency in the token's smallest unit.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]map[string]int64
}

var _ Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]map[string]int64)}
}

// Mint credits an account out of thin air. Test setup only.
func (l *MemoryLedger) Mint(account, currency string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.creditLocked(account, currency, amount)
}

// Balance returns the current balance of an account in the given currency.
func (l *MemoryLedger) Balance(account, currency string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account][currency]
}

// Transfer moves amount from one account to another atomically.
func (l *MemoryLedger) Transfer(_ context.Context, from, to, currency string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from][currency] < amount {
		return fmt.Errorf("%w: account %s", ErrInsufficientFunds, from)
	}
	l.balances[from][currency] -= amount
	l.creditLocked(to, currency, amount)
	return nil
}

func (l *MemoryLedger) creditLocked(account, currency string, amount int64) {
	if l.balances[account] == nil {
		l.balances[account] = make(map[string]int64)
	}
	l.balances[account][currency] += amount
}
