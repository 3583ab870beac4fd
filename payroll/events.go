/*
events.go - Observations and the journal

PURPOSE:
  Every state-changing operation emits one observation record: operation
  kind, employee, amount, and (for advances) the period index. External
  indexers and monitors consume these; the core keeps no queryable history
  beyond them.

JOURNALING:
  Observations and record snapshots are written to a Journal after the
  operation commits. Journaling is best-effort: a journal failure is logged
  and never unwinds a committed operation. The in-memory record map stays
  authoritative; snapshots exist so a restarted process can rebuild it.

SEE ALSO:
  - store/sqlite: durable journal (append-only events + record snapshots)
  - MemoryJournal below: in-process journal for tests and dev
*/
package payroll

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// EVENT - One observation per state-changing operation
// =============================================================================

type EventKind string

const (
	EventRegistered     EventKind = "registered"
	EventRateUpdated    EventKind = "rate_updated"
	EventDeactivated    EventKind = "deactivated"
	EventReactivated    EventKind = "reactivated"
	EventFunded         EventKind = "funded"
	EventSalaryReleased EventKind = "salary_released"
	EventRefunded       EventKind = "refunded"
	EventAdvanceTaken   EventKind = "advance"
	EventWithdrawn      EventKind = "withdrawal"
	EventPaused         EventKind = "paused"
	EventUnpaused       EventKind = "unpaused"
)

// Event is the observation emitted by one state-changing operation.
// PeriodIndex is meaningful only for advances (NeverAdvanced otherwise).
// Employee is the zero address for ledger-wide operations (fund, pause).
type Event struct {
	ID          string
	Kind        EventKind
	Employee    Address
	Amount      Amount
	PeriodIndex int64
	At          time.Time
}

// =============================================================================
// JOURNAL - Best-effort durable sink for events and record snapshots
// =============================================================================

// Journal persists observations and record snapshots. Implementations must
// treat RecordEvent as append-only; SaveRecord overwrites the snapshot for
// that employee.
type Journal interface {
	RecordEvent(ctx context.Context, ev Event) error
	SaveRecord(ctx context.Context, rec Record) error
}

// EventSource exposes journaled observations, newest first.
type EventSource interface {
	Events(ctx context.Context, limit int) ([]Event, error)
}

// =============================================================================
// MEMORY JOURNAL - In-process implementation (for testing/dev)
// =============================================================================

// MemoryJournal keeps events and snapshots in memory.
type MemoryJournal struct {
	mu      sync.RWMutex
	events  []Event
	records map[Address]Record
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{records: make(map[Address]Record)}
}

func (j *MemoryJournal) RecordEvent(_ context.Context, ev Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return nil
}

func (j *MemoryJournal) SaveRecord(_ context.Context, rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records[rec.Employee] = rec
	return nil
}

// Events returns journaled observations, newest first.
func (j *MemoryJournal) Events(_ context.Context, limit int) ([]Event, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	n := len(j.events)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Event, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, j.events[i])
	}
	return out, nil
}

var _ Journal = (*MemoryJournal)(nil)
var _ EventSource = (*MemoryJournal)(nil)
