/*
Package sqlite provides the SQLite-backed journal for the payroll ledger.

PURPOSE:
  Persists the per-operation observations (append-only) and the per-employee
  record snapshots (overwritten on each commit). A restarted process rebuilds
  the in-memory ledger from the snapshots; the events table is the audit
  trail for external indexers.

INTERFACES IMPLEMENTED:
  payroll.Journal:     RecordEvent, SaveRecord
  payroll.EventSource: Events

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE ever touches the events table. Snapshots are the one
  mutable table, keyed by employee address.

AMOUNT ENCODING:
  Amounts are stored as their decimal string form (TEXT), never as floats.
  Timestamps are RFC 3339 with nanoseconds.

WAL MODE:
  Opened with WAL so readers don't block the (single) writer and crash
  recovery is cheap.

USAGE:
  store, err := sqlite.New("./payroll.db")
  ...
  recs, _ := store.LoadRecords(ctx)
  ledger, _ := payroll.New(employer, pool, holding,
      payroll.WithJournal(store), payroll.WithRecords(recs))

SEE ALSO:
  - payroll/events.go: the Journal and EventSource contracts
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/payroll-ledger/payroll"
)

// Store implements payroll.Journal and payroll.EventSource on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at the given path and migrates the
// schema. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Observations (append-only). seq gives the deterministic insertion
	-- order; recorded_at alone can collide within a nanosecond.
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		employee TEXT NOT NULL,
		amount TEXT NOT NULL,
		period_index INTEGER NOT NULL,
		at TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_employee ON events(employee);
	CREATE INDEX IF NOT EXISTS idx_events_at ON events(at DESC);

	-- Employee record snapshots (one row per employee, overwritten on commit)
	CREATE TABLE IF NOT EXISTS employee_records (
		employee TEXT PRIMARY KEY,
		monthly_rate TEXT NOT NULL,
		employment_start TEXT NOT NULL,
		last_sync TEXT NOT NULL,
		accrued TEXT NOT NULL,
		withdrawn TEXT NOT NULL,
		refunded TEXT NOT NULL,
		last_advance_period INTEGER NOT NULL,
		active INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// JOURNAL
// =============================================================================

// RecordEvent appends one observation. Append-only: nothing ever updates or
// deletes a row in the events table.
func (s *Store) RecordEvent(ctx context.Context, ev payroll.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, kind, employee, amount, period_index, at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID,
		string(ev.Kind),
		string(ev.Employee),
		ev.Amount.String(),
		ev.PeriodIndex,
		ev.At.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record event %s: %w", ev.ID, err)
	}
	return nil
}

// SaveRecord overwrites the snapshot for the employee.
func (s *Store) SaveRecord(ctx context.Context, rec payroll.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := 0
	if rec.Active {
		active = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employee_records
			(employee, monthly_rate, employment_start, last_sync, accrued,
			 withdrawn, refunded, last_advance_period, active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee) DO UPDATE SET
			monthly_rate = excluded.monthly_rate,
			employment_start = excluded.employment_start,
			last_sync = excluded.last_sync,
			accrued = excluded.accrued,
			withdrawn = excluded.withdrawn,
			refunded = excluded.refunded,
			last_advance_period = excluded.last_advance_period,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		string(rec.Employee),
		rec.MonthlyRate.String(),
		rec.EmploymentStart.UTC().Format(time.RFC3339Nano),
		rec.LastSync.UTC().Format(time.RFC3339Nano),
		rec.Accrued.String(),
		rec.Withdrawn.String(),
		rec.Refunded.String(),
		rec.LastAdvancePeriod,
		active,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save record for %s: %w", rec.Employee, err)
	}
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Events returns journaled observations, newest first. limit <= 0 means all.
func (s *Store) Events(ctx context.Context, limit int) ([]payroll.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, kind, employee, amount, period_index, at
		FROM events ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []payroll.Event
	for rows.Next() {
		var (
			ev        payroll.Event
			kind      string
			employee  string
			amountStr string
			atStr     string
		)
		if err := rows.Scan(&ev.ID, &kind, &employee, &amountStr, &ev.PeriodIndex, &atStr); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Kind = payroll.EventKind(kind)
		ev.Employee = payroll.Address(employee)
		if ev.Amount, err = payroll.ParseAmount(amountStr); err != nil {
			return nil, fmt.Errorf("corrupt amount in event %s: %w", ev.ID, err)
		}
		if ev.At, err = time.Parse(time.RFC3339Nano, atStr); err != nil {
			return nil, fmt.Errorf("corrupt timestamp in event %s: %w", ev.ID, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// LoadRecords returns every persisted employee snapshot, for seeding a
// ledger at boot.
func (s *Store) LoadRecords(ctx context.Context) ([]payroll.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT employee, monthly_rate, employment_start, last_sync, accrued,
		       withdrawn, refunded, last_advance_period, active
		FROM employee_records`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []payroll.Record
	for rows.Next() {
		var (
			rec                       payroll.Record
			employee                  string
			rate, start, lastSync     string
			accrued, withdrawn, refun string
			active                    int
		)
		if err := rows.Scan(&employee, &rate, &start, &lastSync,
			&accrued, &withdrawn, &refun, &rec.LastAdvancePeriod, &active); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Employee = payroll.Address(employee)
		rec.Exists = true
		rec.Active = active == 1
		if rec.MonthlyRate, err = payroll.ParseAmount(rate); err != nil {
			return nil, fmt.Errorf("corrupt rate for %s: %w", employee, err)
		}
		if rec.Accrued, err = payroll.ParseAmount(accrued); err != nil {
			return nil, fmt.Errorf("corrupt accrued for %s: %w", employee, err)
		}
		if rec.Withdrawn, err = payroll.ParseAmount(withdrawn); err != nil {
			return nil, fmt.Errorf("corrupt withdrawn for %s: %w", employee, err)
		}
		if rec.Refunded, err = payroll.ParseAmount(refun); err != nil {
			return nil, fmt.Errorf("corrupt refunded for %s: %w", employee, err)
		}
		if rec.EmploymentStart, err = time.Parse(time.RFC3339Nano, start); err != nil {
			return nil, fmt.Errorf("corrupt employment start for %s: %w", employee, err)
		}
		if rec.LastSync, err = time.Parse(time.RFC3339Nano, lastSync); err != nil {
			return nil, fmt.Errorf("corrupt last sync for %s: %w", employee, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

var _ payroll.Journal = (*Store)(nil)
var _ payroll.EventSource = (*Store)(nil)
