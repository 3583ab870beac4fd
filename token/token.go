/*
Package token provides an in-memory fungible token used as the payroll
ledger's value-transfer collaborator.

PURPOSE:
  Standard fungible-token semantics: per-account balances, per-spender
  allowances, mint. Guards mirror the usual ERC-20 rules:

    transfer:     balances[from] >= amount && to != zero address
    transferFrom: balances[from] >= amount && allowances[from][spender] >= amount
    mint:         to != zero address

  Conservation holds by construction: the sum of balances always equals the
  total supply.

BINDING:
  The payroll ledger speaks payroll.Transferor, which is account-implicit
  (Transfer pays out of "the pool"). Bind wraps the token with a holder
  account to provide that view.

FAILURE = ABORT:
  Any guard violation returns an error; the payroll ledger treats it as a
  full-operation abort and rolls back its bookkeeping.
*/
package token

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/warp/payroll-ledger/payroll"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInsufficientBalance is returned when a movement exceeds the
	// source account's balance.
	ErrInsufficientBalance = errors.New("insufficient token balance")

	// ErrInsufficientAllowance is returned when a delegated movement
	// exceeds what the owner approved for the spender.
	ErrInsufficientAllowance = errors.New("insufficient token allowance")

	// ErrZeroAddress is returned for movements to or mints at the zero
	// address.
	ErrZeroAddress = errors.New("zero address")
)

// =============================================================================
// MEMORY TOKEN
// =============================================================================

// Memory is an in-memory fungible token.
type Memory struct {
	mu          sync.RWMutex
	balances    map[payroll.Address]payroll.Amount
	allowances  map[payroll.Address]map[payroll.Address]payroll.Amount
	totalSupply payroll.Amount
}

func NewMemory() *Memory {
	return &Memory{
		balances:   make(map[payroll.Address]payroll.Amount),
		allowances: make(map[payroll.Address]map[payroll.Address]payroll.Amount),
	}
}

// Mint creates new tokens at the given account.
func (m *Memory) Mint(to payroll.Address, amount payroll.Amount) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[to] = m.balances[to].Add(amount)
	m.totalSupply = m.totalSupply.Add(amount)
	return nil
}

// Approve sets the spender's allowance over the owner's balance.
func (m *Memory) Approve(owner, spender payroll.Address, amount payroll.Amount) error {
	if owner.IsZero() || spender.IsZero() {
		return ErrZeroAddress
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allowances[owner] == nil {
		m.allowances[owner] = make(map[payroll.Address]payroll.Amount)
	}
	m.allowances[owner][spender] = amount
	return nil
}

// Transfer moves tokens between accounts.
func (m *Memory) Transfer(from, to payroll.Address, amount payroll.Amount) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.moveLocked(from, to, amount)
}

// TransferFrom moves tokens out of the owner's account on the spender's
// authority, consuming allowance.
func (m *Memory) TransferFrom(spender, from, to payroll.Address, amount payroll.Amount) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := m.allowances[from][spender]
	if allowed.LessThan(amount) {
		return fmt.Errorf("%w: %s approved %s for %s, need %s",
			ErrInsufficientAllowance, from, allowed, spender, amount)
	}
	if err := m.moveLocked(from, to, amount); err != nil {
		return err
	}
	m.allowances[from][spender] = allowed.Sub(amount)
	return nil
}

func (m *Memory) moveLocked(from, to payroll.Address, amount payroll.Amount) error {
	balance := m.balances[from]
	if balance.LessThan(amount) {
		return fmt.Errorf("%w: %s holds %s, need %s", ErrInsufficientBalance, from, balance, amount)
	}
	m.balances[from] = balance.Sub(amount)
	m.balances[to] = m.balances[to].Add(amount)
	return nil
}

// BalanceOf returns the account's balance.
func (m *Memory) BalanceOf(addr payroll.Address) payroll.Amount {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[addr]
}

// Allowance returns what the owner has approved for the spender.
func (m *Memory) Allowance(owner, spender payroll.Address) payroll.Amount {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allowances[owner][spender]
}

// TotalSupply returns the aggregate minted supply.
func (m *Memory) TotalSupply() payroll.Amount {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalSupply
}

// =============================================================================
// HOLDING - Account-bound view implementing payroll.Transferor
// =============================================================================

// Holding is the token as seen by one holder account. Transfer pays out of
// that account; TransferFrom spends on the holder's authority.
type Holding struct {
	token *Memory
	owner payroll.Address
}

// Bind creates the account-bound view the payroll ledger consumes.
func Bind(token *Memory, owner payroll.Address) *Holding {
	return &Holding{token: token, owner: owner}
}

func (h *Holding) Owner() payroll.Address { return h.owner }

func (h *Holding) Transfer(_ context.Context, to payroll.Address, amount payroll.Amount) error {
	return h.token.Transfer(h.owner, to, amount)
}

func (h *Holding) TransferFrom(_ context.Context, from, to payroll.Address, amount payroll.Amount) error {
	return h.token.TransferFrom(h.owner, from, to, amount)
}

var _ payroll.Transferor = (*Holding)(nil)
