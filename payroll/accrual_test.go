/*
accrual_test.go - Specification tests for the accrual/time engine

PURPOSE:
  Executable specification of the entitlement math:
  1. Linearity - a full pay period of active employment earns the rate
  2. Truncation - division floors, never rounds up
  3. Determinism - same inputs, same entitlement, no float drift
  4. Period indexing - which pay period a timestamp falls into

READING THESE TESTS:
  Each test has GIVEN/WHEN/THEN comments explaining the scenario.
*/
package payroll_test

import (
	"testing"
	"time"

	"github.com/warp/payroll-ledger/payroll"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func amt(n int64) payroll.Amount {
	return payroll.NewAmount(n)
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// =============================================================================
// ACCRUAL LINEARITY
// =============================================================================

func TestAccrue_FullPeriodEarnsRate(t *testing.T) {
	// GIVEN: a monthly rate of 3000
	// WHEN: exactly one pay period elapses
	// THEN: entitlement grows by exactly the rate
	earned := payroll.Accrue(amt(3000), payroll.PayPeriod)
	if !earned.Equal(amt(3000)) {
		t.Errorf("expected 3000 after one full period, got %s", earned)
	}
}

func TestAccrue_HalfPeriodEarnsHalf(t *testing.T) {
	// GIVEN: a monthly rate of 3000
	// WHEN: 15 of 30 days elapse
	// THEN: entitlement is exactly 1500
	earned := payroll.Accrue(amt(3000), days(15))
	if !earned.Equal(amt(1500)) {
		t.Errorf("expected 1500 after half a period, got %s", earned)
	}
}

func TestAccrue_ZeroElapsed(t *testing.T) {
	// GIVEN: any rate
	// WHEN: no time elapses
	// THEN: nothing accrues
	if earned := payroll.Accrue(amt(3000), 0); !earned.IsZero() {
		t.Errorf("expected zero accrual for zero elapsed, got %s", earned)
	}
}

// =============================================================================
// TRUNCATION POLICY
// =============================================================================

func TestAccrue_TruncatesTowardZero(t *testing.T) {
	// GIVEN: a rate of 3000 per 30 days
	// WHEN: one second elapses (3000/2592000 of a period)
	// THEN: the fractional entitlement truncates to zero
	if earned := payroll.Accrue(amt(3000), time.Second); !earned.IsZero() {
		t.Errorf("expected truncation to zero, got %s", earned)
	}

	// GIVEN: a rate of 1
	// WHEN: all but one second of the period elapses
	// THEN: still zero - truncation never rounds up
	if earned := payroll.Accrue(amt(1), payroll.PayPeriod-time.Second); !earned.IsZero() {
		t.Errorf("expected truncation to zero just short of a period, got %s", earned)
	}
}

func TestAccrue_SplitSyncNeverOverAccrues(t *testing.T) {
	// GIVEN: a rate of 7 (awkward divisor against the period)
	// WHEN: the same interval is accrued in one step vs. two
	// THEN: the split total never exceeds the single-step total
	//       (each truncation under-accrues, never over-accrues)
	interval := 13*24*time.Hour + 7*time.Hour + 31*time.Second
	single := payroll.Accrue(amt(7), 2*interval)
	split := payroll.Accrue(amt(7), interval).Add(payroll.Accrue(amt(7), interval))
	if split.GreaterThan(single) {
		t.Errorf("split accrual %s exceeds single-step accrual %s", split, single)
	}
}

// =============================================================================
// PERIOD INDEX
// =============================================================================

func TestPeriodIndex_Boundaries(t *testing.T) {
	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		now  time.Time
		want int64
	}{
		{"at start", start, 0},
		{"one second before rollover", start.Add(payroll.PayPeriod - time.Second), 0},
		{"exactly one period", start.Add(payroll.PayPeriod), 1},
		{"mid second period", start.Add(days(45)), 1},
		{"two periods", start.Add(2 * payroll.PayPeriod), 2},
	}
	for _, tc := range cases {
		if got := payroll.PeriodIndex(start, tc.now); got != tc.want {
			t.Errorf("%s: expected period %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestPeriodIndex_ZeroStart(t *testing.T) {
	// GIVEN: a zero-valued record (unreachable for real registrations)
	// THEN: the period index is defined as 0
	if got := payroll.PeriodIndex(time.Time{}, time.Now()); got != 0 {
		t.Errorf("expected 0 for zero start, got %d", got)
	}
}

// =============================================================================
// AMOUNT ARITHMETIC
// =============================================================================

func TestAmount_HalfFloor(t *testing.T) {
	// The advance cap is floor(withdrawable / 2).
	cases := []struct{ in, want int64 }{
		{0, 0}, {1, 0}, {2, 1}, {2201, 1100}, {3000, 1500},
	}
	for _, tc := range cases {
		if got := amt(tc.in).HalfFloor(); !got.Equal(amt(tc.want)) {
			t.Errorf("HalfFloor(%d): expected %d, got %s", tc.in, tc.want, got)
		}
	}
}

func TestParseAmount_RejectsNegative(t *testing.T) {
	if _, err := payroll.ParseAmount("-5"); err == nil {
		t.Error("expected negative amount to be rejected")
	}
	if _, err := payroll.ParseAmount("not-a-number"); err == nil {
		t.Error("expected malformed amount to be rejected")
	}
}
