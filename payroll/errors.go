/*
errors.go - Failure taxonomy for the payroll ledger

PURPOSE:
  All error types in one place. Every failure is synchronous, deterministic,
  and aborts the whole operation with no state change - callers re-submit a
  corrected request, the ledger never retries.

ERROR CATEGORIES:
  1. Gating errors - wrong caller, paused, reentrant call
  2. Lookup errors - unknown or duplicate employee
  3. Rule errors - invalid argument, state conflict, entitlement exceeded
  4. Collaborator errors - the token transfer was rejected

USAGE:
  Sentinels work with errors.Is; structured errors carry detail and unwrap
  to their sentinel:

    if errors.Is(err, payroll.ErrInsufficientEntitlement) { ... }

    var short *payroll.InsufficientEntitlementError
    if errors.As(err, &short) { log.Println(short.Available) }
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnauthorized is returned when the caller lacks the required role
	// (employer-only operation invoked by someone else, and vice versa).
	ErrUnauthorized = errors.New("caller not authorized")

	// ErrNotFound is returned when the employee record does not exist.
	ErrNotFound = errors.New("employee not registered")

	// ErrAlreadyExists is returned on duplicate registration.
	ErrAlreadyExists = errors.New("employee already registered")

	// ErrInvalidArgument is returned for a zero amount, zero rate, zero
	// address, or malformed input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStateConflict is returned when the record is already in the target
	// state (deactivate/reactivate) or an advance was already taken this
	// pay period.
	ErrStateConflict = errors.New("state conflict")

	// ErrInsufficientEntitlement is returned when the requested amount
	// exceeds the withdrawable balance or the half-withdrawable advance cap.
	ErrInsufficientEntitlement = errors.New("insufficient entitlement")

	// ErrPaused is returned when a fund-moving or state-changing operation
	// is attempted while the ledger is frozen.
	ErrPaused = errors.New("ledger is paused")

	// ErrTransferFailed is returned when the value-transfer collaborator
	// rejected the movement. The operation's bookkeeping is rolled back.
	ErrTransferFailed = errors.New("token transfer failed")

	// ErrReentrantCall is returned when a mutating operation is invoked
	// while another one is still in flight. At most one mutating operation
	// is active at a time, process-wide.
	ErrReentrantCall = errors.New("reentrant call rejected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientEntitlementError reports how far a request exceeded the
// claimable balance (or the advance cap).
type InsufficientEntitlementError struct {
	Employee  Address
	Requested Amount
	Available Amount
}

func (e *InsufficientEntitlementError) Error() string {
	return fmt.Sprintf("insufficient entitlement for %s: requested %s, available %s",
		e.Employee, e.Requested, e.Available)
}

func (e *InsufficientEntitlementError) Unwrap() error {
	return ErrInsufficientEntitlement
}

// TransferError reports a rejected token movement.
type TransferError struct {
	From   Address // zero when paying out of the pool
	To     Address
	Amount Amount
	Err    error
}

func (e *TransferError) Error() string {
	if e.From.IsZero() {
		return fmt.Sprintf("transfer of %s to %s failed: %v", e.Amount, e.To, e.Err)
	}
	return fmt.Sprintf("transfer of %s from %s to %s failed: %v", e.Amount, e.From, e.To, e.Err)
}

func (e *TransferError) Unwrap() error {
	return ErrTransferFailed
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the failure was a rejection of an invalid
// request, as opposed to a collaborator or internal fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrStateConflict) ||
		errors.Is(err, ErrInsufficientEntitlement) ||
		errors.Is(err, ErrPaused)
}

// IsNotFound reports whether the failure was a missing employee record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
