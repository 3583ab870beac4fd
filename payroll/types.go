/*
Package payroll implements an earned-wage-access payroll ledger.

PURPOSE:
  Employees accrue salary continuously from a per-employee monthly rate and
  may pull earned-but-unpaid balance early (advance, capped at half) or in
  full (withdrawal). The employer funds the pool, releases salary, and can
  claw back unconsumed entitlement (refund).

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A non-negative token quantity backed by decimal.Decimal
  - Address: An authenticated principal / account identifier
  - Record: Per-employee bookkeeping state, created once, never deleted
  - Transferor: The external collaborator that actually moves tokens

DESIGN PRINCIPLES:
  1. Monotonic counters: Accrued, Withdrawn, Refunded only ever grow
  2. Precision: decimal.Decimal with explicit truncating division - no floats
  3. Sequential execution: one mutating operation at a time, process-wide
  4. All-or-nothing: bookkeeping commits only after the token transfer does

CORE INVARIANT:
  For every existing record, at every observation point:

      Accrued >= Withdrawn + Refunded

  Withdrawable := Accrued - Withdrawn - Refunded is therefore never negative,
  and is zero for addresses that were never registered.

SEE ALSO:
  - accrual.go: elapsed-time to entitlement conversion
  - ledger.go: the operation engine enforcing the rules
  - errors.go: the failure taxonomy
*/
package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAY PERIOD - Fixed accounting window, shared process-wide
// =============================================================================

// PayPeriod is the fixed pay period used both to normalize the monthly rate
// and to gate advance frequency. Not configurable per employee.
const PayPeriod = 30 * 24 * time.Hour

// =============================================================================
// ADDRESS - Account / principal identifier
// =============================================================================

// Address identifies an account: the employer, an employee, or the pool.
// The empty string is the zero address and is never a valid participant.
type Address string

// ZeroAddress is the null account. Registration rejects it.
const ZeroAddress Address = ""

func (a Address) IsZero() bool { return a == ZeroAddress }

// =============================================================================
// AMOUNT - Non-negative token quantity
// =============================================================================

// Amount is a quantity of the funding token. Amounts in the ledger are
// whole, non-negative values; all division is truncating (floor), matching
// unsigned integer semantics.
type Amount struct {
	Value decimal.Decimal
}

func NewAmount(v int64) Amount {
	return Amount{Value: decimal.NewFromInt(v)}
}

// ParseAmount parses a decimal string into an Amount.
// Negative values are rejected: the ledger only ever deals in magnitudes.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: malformed amount %q", ErrInvalidArgument, s)
	}
	if d.IsNegative() {
		return Amount{}, fmt.Errorf("%w: negative amount %q", ErrInvalidArgument, s)
	}
	return Amount{Value: d}, nil
}

func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool       { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }
func (a Amount) String() string            { return a.Value.String() }

// HalfFloor returns floor(a / 2), the per-advance cap.
func (a Amount) HalfFloor() Amount {
	q, _ := a.Value.QuoRem(decimal.NewFromInt(2), 0)
	return Amount{Value: q}
}

// =============================================================================
// RECORD - Per-employee bookkeeping state
// =============================================================================

// NeverAdvanced is the sentinel for LastAdvancePeriod meaning no advance has
// ever been taken. Any real period index is >= 0.
const NeverAdvanced int64 = -1

// Record is the bookkeeping state for one employee. Created exactly once at
// registration, mutated in place by the ledger, never deleted (only
// deactivated).
//
// MONOTONICITY: Accrued, Withdrawn, Refunded, and LastSync never decrease
// over the lifetime of a record.
type Record struct {
	Employee        Address
	MonthlyRate     Amount    // earned per PayPeriod; positive while accrual-eligible
	EmploymentStart time.Time // fixed at registration, basis of the period index
	LastSync        time.Time // advanced to "now" on every accrual sync
	Accrued         Amount    // cumulative entitlement since employment start
	Withdrawn       Amount    // cumulative payouts (withdraw, advance, release)
	Refunded        Amount    // cumulative clawbacks to the employer

	// LastAdvancePeriod is the period index of the most recent advance,
	// NeverAdvanced until the first one. At most one advance per period.
	LastAdvancePeriod int64

	Exists bool // set true exactly once, at registration
	Active bool // gates new advances and accrual, toggled by the employer
}

// Withdrawable is the live claimable balance: accrued minus already
// withdrawn minus already refunded, clamped at zero. Pure; callers that
// need an up-to-the-instant figure must sync first (or use
// Ledger.PreviewWithdrawable, which simulates the sync).
func (r *Record) Withdrawable() Amount {
	consumed := r.Withdrawn.Add(r.Refunded)
	if r.Accrued.GreaterThan(consumed) {
		return r.Accrued.Sub(consumed)
	}
	return Amount{}
}

// =============================================================================
// TRANSFEROR - The value-transfer collaborator
// =============================================================================

// Transferor moves the funding token between accounts. The ledger treats any
// transfer failure as a full-operation abort: no bookkeeping written in the
// same operation survives.
//
// Transfer pays out of the pool account the Transferor is bound to;
// TransferFrom pulls from a third account (the employer, when funding) and
// requires that account's prior approval.
type Transferor interface {
	Transfer(ctx context.Context, to Address, amount Amount) error
	TransferFrom(ctx context.Context, from, to Address, amount Amount) error
}
