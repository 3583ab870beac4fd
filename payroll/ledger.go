/*
ledger.go - The payroll operation engine

PURPOSE:
  Owns the map of employee records and enforces every accrual, advance,
  withdrawal, release, and refund rule. All state transitions flow through
  here, one at a time.

OPERATION SHAPE:
  Every mutating operation follows the same sequence:
    1. Guard: reentrancy, caller role, pause flag, argument shape
    2. Sync:  bring the target record's accrual up to "now" (on a staged copy)
    3. Rule:  evaluate the operation's gate against the synced state
    4. Move:  invoke the value-transfer collaborator, if tokens move
    5. Commit: swap the staged copy in, then journal the observation

ATOMICITY:
  Steps 2-4 run against a staged copy of the record. Only after the token
  transfer succeeds is the copy committed, so a rejected transfer leaves no
  partial accrual sync or bookkeeping behind.

REENTRANCY:
  A single process-wide operation lock is acquired with TryLock. A mutating
  call arriving while another is in flight - including one issued from
  inside the transfer collaborator - is rejected with ErrReentrantCall
  rather than queued or deadlocked.

PAUSE:
  The employer can freeze the ledger. While paused, every fund-moving and
  state-changing operation fails with ErrPaused; deactivate/reactivate and
  all read-only queries stay open.

SEE ALSO:
  - accrual.go: sync and period-index math
  - events.go:  observations emitted on commit
*/
package payroll

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger is the earned-wage-access payroll ledger. Construct with New.
type Ledger struct {
	// mu serializes every operation. Mutating entry points acquire it with
	// TryLock so an overlapping call is rejected, not queued: the transfer
	// collaborator runs under the lock and must not be able to re-enter.
	mu sync.Mutex

	employer Address
	pool     Address
	token    Transferor
	clock    Clock
	journal  Journal

	records map[Address]*Record
	paused  bool
}

// Option configures a Ledger at construction time.
type Option func(*Ledger)

// WithClock substitutes the time source. Defaults to SystemClock.
func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithJournal attaches a durable journal for observations and snapshots.
func WithJournal(j Journal) Option {
	return func(l *Ledger) { l.journal = j }
}

// WithRecords seeds the ledger with previously journaled record snapshots,
// e.g. after a restart.
func WithRecords(recs []Record) Option {
	return func(l *Ledger) {
		for _, rec := range recs {
			r := rec
			l.records[r.Employee] = &r
		}
	}
}

// New creates a ledger administered by the given employer, paying in and out
// of the pool account through the given token collaborator.
func New(employer, pool Address, token Transferor, opts ...Option) (*Ledger, error) {
	if employer.IsZero() {
		return nil, fmt.Errorf("%w: zero employer address", ErrInvalidArgument)
	}
	if pool.IsZero() {
		return nil, fmt.Errorf("%w: zero pool address", ErrInvalidArgument)
	}
	if token == nil {
		return nil, fmt.Errorf("%w: nil transferor", ErrInvalidArgument)
	}
	l := &Ledger{
		employer: employer,
		pool:     pool,
		token:    token,
		clock:    SystemClock{},
		records:  make(map[Address]*Record),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// begin acquires the operation lock for a mutating entry point.
func (l *Ledger) begin() error {
	if !l.mu.TryLock() {
		return ErrReentrantCall
	}
	return nil
}

// observe journals the observation and the post-commit record snapshot.
// Best-effort: a journal failure never unwinds a committed operation.
func (l *Ledger) observe(ctx context.Context, ev Event, rec *Record) {
	if l.journal == nil {
		return
	}
	ev.ID = uuid.NewString()
	if err := l.journal.RecordEvent(ctx, ev); err != nil {
		log.Printf("payroll: journal event %s for %s: %v", ev.Kind, ev.Employee, err)
	}
	if rec != nil {
		if err := l.journal.SaveRecord(ctx, *rec); err != nil {
			log.Printf("payroll: journal snapshot for %s: %v", rec.Employee, err)
		}
	}
}

// =============================================================================
// EMPLOYER LIFECYCLE OPERATIONS
// =============================================================================

// Register creates the employee's record: exists, active, employment start
// and last sync at "now", all counters zero, no advance taken. A record is
// created exactly once per address.
func (l *Ledger) Register(ctx context.Context, caller, employee Address, monthlyRate Amount) error {
	if err := l.begin(); err != nil {
		return err
	}
	defer l.mu.Unlock()

	if caller != l.employer {
		return fmt.Errorf("%w: only the employer registers employees", ErrUnauthorized)
	}
	if l.paused {
		return ErrPaused
	}
	if employee.IsZero() {
		return fmt.Errorf("%w: zero employee address", ErrInvalidArgument)
	}
	if !monthlyRate.IsPositive() {
		return fmt.Errorf("%w: monthly rate must be positive", ErrInvalidArgument)
	}
	if _, ok := l.records[employee]; ok {
		return ErrAlreadyExists
	}

	now := l.clock.Now()
	rec := &Record{
		Employee:          employee,
		MonthlyRate:       monthlyRate,
		EmploymentStart:   now,
		LastSync:          now,
		LastAdvancePeriod: NeverAdvanced,
		Exists:            true,
		Active:            true,
	}
	l.records[employee] = rec
	l.observe(ctx, Event{Kind: EventRegistered, Employee: employee, Amount: monthlyRate, PeriodIndex: NeverAdvanced, At: now}, rec)
	return nil
}

// UpdateRate changes the employee's rate going forward. Accrual under the
// old rate is synced first and never revisited.
func (l *Ledger) UpdateRate(ctx context.Context, caller, employee Address, newRate Amount) error {
	if err := l.begin(); err != nil {
		return err
	}
	defer l.mu.Unlock()

	if caller != l.employer {
		return fmt.Errorf("%w: only the employer updates rates", ErrUnauthorized)
	}
	if l.paused {
		return ErrPaused
	}
	if !newRate.IsPositive() {
		return fmt.Errorf("%w: monthly rate must be positive", ErrInvalidArgument)
	}
	rec, ok := l.records[employee]
	if !ok {
		return ErrNotFound
	}

	now := l.clock.Now()
	staged := *rec
	if err := syncAccrual(&staged, now); err != nil {
		return err
	}
	staged.MonthlyRate = newRate
	*rec = staged
	l.observe(ctx, Event{Kind: EventRateUpdated, Employee: employee, Amount: newRate, PeriodIndex: NeverAdvanced, At: now}, rec)
	return nil
}

// Deactivate pauses the employee's earning and blocks new advances. Accrual
// earned up to this instant is preserved and stays collectible.
// Deliberately exempt from the pause gate.
func (l *Ledger) Deactivate(ctx context.Context, caller, employee Address) error {
	if err := l.begin(); err != nil {
		return err
	}
	defer l.mu.Unlock()

	if caller != l.employer {
		return fmt.Errorf("%w: only the employer deactivates employees", ErrUnauthorized)
	}
	rec, ok := l.records[employee]
	if !ok {
		return ErrNotFound
	}
	if !rec.Active {
		return fmt.Errorf("%w: employee already inactive", ErrStateConflict)
	}

	now := l.clock.Now()
	staged := *rec
	if err := syncAccrual(&staged, now); err != nil {
		return err
	}
	staged.Active = false
	*rec = staged
	l.observe(ctx, Event{Kind: EventDeactivated, Employee: employee, PeriodIndex: NeverAdvanced, At: now}, rec)
	return nil
}

// Reactivate resumes earning. LastSync is reset to "now": time spent
// inactive contributes zero accrual. Deliberately exempt from the pause gate.
func (l *Ledger) Reactivate(ctx context.Context, caller, employee Address) error {
	if err := l.begin(); err != nil {
		return err
	}
	defer l.mu.Unlock()

	if caller != l.employer {
		return fmt.Errorf("%w: only the employer reactivates employees", ErrUnauthorized)
	}
	rec, ok := l.records[employee]
	if !ok {
		return ErrNotFound
	}
	if rec.Active {
		return fmt.Errorf("%w: employee already active", ErrStateConflict)
	}

	now := l.clock.Now()
	rec.Active = true
	rec.LastSync = now
	l.observe(ctx, Event{Kind: EventReactivated, Employee: employee, PeriodIndex: NeverAdvanced, At: now}, rec)
	return nil
}

// Fund pulls tokens from the employer into the pool. The pool balance lives
// in the token's own ledger; it is not tracked redundantly here.
func (l *Ledger) Fund(ctx context.Context, caller Address, amount Amount) error {
	if err := l.begin(); err != nil {
		return err
	}
	defer l.mu.Unlock()

	if caller != l.employer {
		return fmt.Errorf("%w: only the employer funds the pool", ErrUnauthorized)
	}
	if l.paused {
		return ErrPaused
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: funding amount must be positive", ErrInvalidArgument)
	}

	if err := l.token.TransferFrom(ctx, l.employer, l.pool, amount); err != nil {
		return &TransferError{From: l.employer, To: l.pool, Amount: amount, Err: err}
	}
	l.observe(ctx, Event{Kind: EventFunded, Amount: amount, PeriodIndex: NeverAdvanced, At: l.clock.Now()}, nil)
	return nil
}

// ReleaseSalary pays the employee's entire withdrawable balance out of the
// pool, employer-triggered.
func (l *Ledger) ReleaseSalary(ctx context.Context, caller, employee Address) error {
	if err := l.begin(); err != nil {
		return err
	}
	defer l.mu.Unlock()

	if caller != l.employer {
		return fmt.Errorf("%w: only the employer releases salary", ErrUnauthorized)
	}
	if l.paused {
		return ErrPaused
	}
	rec, ok := l.records[employee]
	if !ok {
		return ErrNotFound
	}

	now := l.clock.Now()
	staged := *rec
	if err := syncAccrual(&staged, now); err != nil {
		return err
	}
	due := staged.Withdrawable()
	if due.IsZero() {
		return &InsufficientEntitlementError{Employee: employee, Requested: due, Available: due}
	}
	staged.Withdrawn = staged.Withdrawn.Add(due)

	if err := l.token.Transfer(ctx, employee, due); err != nil {
		return &TransferError{To: employee, Amount: due, Err: err}
	}
	*rec = staged
	l.observe(ctx, Event{Kind: EventSalaryReleased, Employee: employee, Amount: due, PeriodIndex: NeverAdvanced, At: now}, rec)
	return nil
}

// Refund claws back part of the employee's withdrawable balance to the
// employer. Refund and withdrawal compete for the same entitlement;
// whichever executes first consumes it.
func (l *Ledger) Refund(ctx context.Context, caller, employee Address, amount Amount) error {
	if err := l.begin(); err != nil {
		return err
	}
	defer l.mu.Unlock()

	if caller != l.employer {
		return fmt.Errorf("%w: only the employer claws back funds", ErrUnauthorized)
	}
	if l.paused {
		return ErrPaused
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: refund amount must be positive", ErrInvalidArgument)
	}
	rec, ok := l.records[employee]
	if !ok {
		return ErrNotFound
	}

	now := l.clock.Now()
	staged := *rec
	if err := syncAccrual(&staged, now); err != nil {
		return err
	}
	avail := staged.Withdrawable()
	if amount.GreaterThan(avail) {
		return &InsufficientEntitlementError{Employee: employee, Requested: amount, Available: avail}
	}
	staged.Refunded = staged.Refunded.Add(amount)

	if err := l.token.Transfer(ctx, l.employer, amount); err != nil {
		return &TransferError{To: l.employer, Amount: amount, Err: err}
	}
	*rec = staged
	l.observe(ctx, Event{Kind: EventRefunded, Employee: employee, Amount: amount, PeriodIndex: NeverAdvanced, At: now}, rec)
	return nil
}

// =============================================================================
// EMPLOYEE SELF-SERVICE OPERATIONS
// =============================================================================

// RequestAdvance pays out part of the caller's earned-but-unpaid balance
// early. At most one advance per pay period, capped at half of the
// withdrawable balance at sync time. Requires an active record.
func (l *Ledger) RequestAdvance(ctx context.Context, caller Address, amount Amount) error {
	if err := l.begin(); err != nil {
		return err
	}
	defer l.mu.Unlock()

	if l.paused {
		return ErrPaused
	}
	rec, ok := l.records[caller]
	if !ok {
		return ErrNotFound
	}
	if !rec.Active {
		return fmt.Errorf("%w: employee is inactive", ErrStateConflict)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: advance amount must be positive", ErrInvalidArgument)
	}

	now := l.clock.Now()
	staged := *rec
	if err := syncAccrual(&staged, now); err != nil {
		return err
	}
	period := PeriodIndex(staged.EmploymentStart, now)
	if staged.LastAdvancePeriod >= period {
		return fmt.Errorf("%w: advance already taken in period %d", ErrStateConflict, period)
	}
	avail := staged.Withdrawable()
	if avail.IsZero() {
		return &InsufficientEntitlementError{Employee: caller, Requested: amount, Available: avail}
	}
	maxAdvance := avail.HalfFloor()
	if amount.GreaterThan(maxAdvance) {
		return &InsufficientEntitlementError{Employee: caller, Requested: amount, Available: maxAdvance}
	}
	staged.Withdrawn = staged.Withdrawn.Add(amount)
	staged.LastAdvancePeriod = period

	if err := l.token.Transfer(ctx, caller, amount); err != nil {
		return &TransferError{To: caller, Amount: amount, Err: err}
	}
	*rec = staged
	l.observe(ctx, Event{Kind: EventAdvanceTaken, Employee: caller, Amount: amount, PeriodIndex: period, At: now}, rec)
	return nil
}

// Withdraw pays the caller's entire withdrawable balance. Available even
// when the record is inactive: deactivation blocks new advances, never
// collecting already-earned pay.
func (l *Ledger) Withdraw(ctx context.Context, caller Address) error {
	if err := l.begin(); err != nil {
		return err
	}
	defer l.mu.Unlock()

	if l.paused {
		return ErrPaused
	}
	rec, ok := l.records[caller]
	if !ok {
		return ErrNotFound
	}

	now := l.clock.Now()
	staged := *rec
	if err := syncAccrual(&staged, now); err != nil {
		return err
	}
	due := staged.Withdrawable()
	if due.IsZero() {
		return &InsufficientEntitlementError{Employee: caller, Requested: due, Available: due}
	}
	staged.Withdrawn = staged.Withdrawn.Add(due)

	if err := l.token.Transfer(ctx, caller, due); err != nil {
		return &TransferError{To: caller, Amount: due, Err: err}
	}
	*rec = staged
	l.observe(ctx, Event{Kind: EventWithdrawn, Employee: caller, Amount: due, PeriodIndex: NeverAdvanced, At: now}, rec)
	return nil
}

// =============================================================================
// PAUSE SWITCH
// =============================================================================

// Pause freezes all fund-moving and state-changing operations.
// Deactivate/reactivate and read-only queries stay open.
func (l *Ledger) Pause(ctx context.Context, caller Address) error {
	if err := l.begin(); err != nil {
		return err
	}
	defer l.mu.Unlock()

	if caller != l.employer {
		return fmt.Errorf("%w: only the employer pauses the ledger", ErrUnauthorized)
	}
	if l.paused {
		return fmt.Errorf("%w: already paused", ErrStateConflict)
	}
	l.paused = true
	l.observe(ctx, Event{Kind: EventPaused, PeriodIndex: NeverAdvanced, At: l.clock.Now()}, nil)
	return nil
}

// Unpause lifts the freeze.
func (l *Ledger) Unpause(ctx context.Context, caller Address) error {
	if err := l.begin(); err != nil {
		return err
	}
	defer l.mu.Unlock()

	if caller != l.employer {
		return fmt.Errorf("%w: only the employer unpauses the ledger", ErrUnauthorized)
	}
	if !l.paused {
		return fmt.Errorf("%w: not paused", ErrStateConflict)
	}
	l.paused = false
	l.observe(ctx, Event{Kind: EventUnpaused, PeriodIndex: NeverAdvanced, At: l.clock.Now()}, nil)
	return nil
}

// =============================================================================
// READ-ONLY QUERIES - Always open, even while paused
// =============================================================================

// Employer returns the administering principal.
func (l *Ledger) Employer() Address { return l.employer }

// Paused reports whether the ledger is frozen.
func (l *Ledger) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

// IsRegistered reports whether a record exists for the address.
func (l *Ledger) IsRegistered(employee Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.records[employee]
	return ok
}

// IsActive reports whether the employee exists and is active.
func (l *Ledger) IsActive(employee Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[employee]
	return ok && rec.Active
}

// PreviewWithdrawable computes what the withdrawable balance would be after
// a sync at "now", without mutating anything. Agrees exactly with the
// committed sync-then-compute path at the same instant. Zero for addresses
// that were never registered.
func (l *Ledger) PreviewWithdrawable(employee Address) Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[employee]
	if !ok {
		return Amount{}
	}
	staged := *rec
	if err := syncAccrual(&staged, l.clock.Now()); err != nil {
		// Clock regression: fall back to the last committed state.
		return rec.Withdrawable()
	}
	return staged.Withdrawable()
}

// Lookup returns a copy of the employee's record.
func (l *Ledger) Lookup(employee Address) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[employee]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Records returns copies of every record, in no particular order.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, *rec)
	}
	return out
}
