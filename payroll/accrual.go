/*
accrual.go - Elapsed time to entitlement conversion

PURPOSE:
  Keeps Record.Accrued consistent with wall-clock time and the rate in
  force. Entitlement grows linearly: a full PayPeriod of active employment
  earns exactly MonthlyRate.

ROUNDING POLICY:
  accrual = floor(rate * elapsedSeconds / periodSeconds)

  Truncating integer division, always. The slight under-accrual is a
  deterministic, accepted policy: the employee is never over-credited, and
  repeated syncs at the same instant add nothing. Floating point is banned
  here - rounding drift is unacceptable in a financial ledger.

RATE CHANGES:
  A rate change affects only future accrual. Past syncs already baked their
  truncation into Accrued, which is never decreased.

INACTIVITY:
  Inactive records earn nothing. Deactivation syncs first (earned-to-date is
  preserved), and reactivation resets LastSync to now, so time spent
  inactive contributes zero.
*/
package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var payPeriodSeconds = decimal.NewFromInt(int64(PayPeriod / time.Second))

// Accrue returns the entitlement earned at the given rate over the elapsed
// duration: floor(rate * elapsed / PayPeriod), in whole seconds.
func Accrue(rate Amount, elapsed time.Duration) Amount {
	if elapsed <= 0 {
		return Amount{}
	}
	seconds := decimal.NewFromInt(int64(elapsed / time.Second))
	q, _ := rate.Value.Mul(seconds).QuoRem(payPeriodSeconds, 0)
	return Amount{Value: q}
}

// PeriodIndex returns which pay period "now" falls into, counted from the
// employment start: floor((now - start) / PayPeriod). A zero-valued start
// yields 0; real records always have the start set at registration.
func PeriodIndex(start, now time.Time) int64 {
	if start.IsZero() || now.Before(start) {
		return 0
	}
	return int64(now.Sub(start) / PayPeriod)
}

// syncAccrual brings the record's entitlement up to "now". No-op when the
// record does not exist, is inactive, or was already synced at this instant.
// A clock that moved backwards is an internal invariant violation, never a
// user error.
//
// Every mutating ledger operation calls this exactly once, before any rule
// that depends on Accrued is evaluated.
func syncAccrual(r *Record, now time.Time) error {
	if !r.Exists || !r.Active {
		return nil
	}
	if now.Equal(r.LastSync) {
		return nil
	}
	if now.Before(r.LastSync) {
		return fmt.Errorf("clock regression: now %s precedes last sync %s",
			now.Format(time.RFC3339), r.LastSync.Format(time.RFC3339))
	}
	r.Accrued = r.Accrued.Add(Accrue(r.MonthlyRate, now.Sub(r.LastSync)))
	r.LastSync = now
	return nil
}
