package payroll

import (
	"sync"
	"time"
)

// =============================================================================
// CLOCK - Source of "now" for accrual syncs
// =============================================================================

// Clock supplies the current timestamp, read once at the start of each
// ledger operation. It must be monotonically non-decreasing.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a controllable clock for tests and demo scenarios.
// Advance only moves forward; the ledger assumes time never runs backwards.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
}
