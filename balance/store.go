/*
store.go - Collaborator interfaces consumed by the engine

PURPOSE:
  The engine reads an employee, the raw entries of a range, and one prior
  ledger row; it writes one ledger row. Everything else (how rows are
  stored, which database, how names are indexed) belongs to the store.

KEY INTERFACES:
  EmployeeFinder: case-insensitive name -> employee (+ weekly schedule)
  EntryReader:    attendance and absences for [Start, End)
  LedgerStore:    read/upsert PeriodBalance rows
  Store:          everything the engine needs
  Repository:     Store plus the writes and listings used by the API and CLI

NOT FOUND:
  Lookups return (nil, nil) when nothing matches. The engine turns that into
  EmployeeNotFound or into a zero prior carry-over.

UPSERT:
  UpsertPeriodBalance replaces the row for (EmployeeID, PeriodKey). It is
  not additive, and last write wins.

IMPLEMENTATIONS:
  - balance/store/memory.go: in-memory, for tests and demos
  - store/sqlite/sqlite.go:  SQL (sqlite3 or postgres) via sqlx
*/
package balance

import (
	"context"

	"github.com/warp/time-balance/calendar"
)

type EmployeeFinder interface {
	// FindEmployeeByName matches name case-insensitively.
	FindEmployeeByName(ctx context.Context, name string) (*Employee, error)
}

type EntryReader interface {
	// ListAttendance returns entries with Date in rng, ordered by date.
	ListAttendance(ctx context.Context, employeeID string, rng calendar.Range) ([]AttendanceEntry, error)

	// ListAbsences returns entries with Date in rng, ordered by date.
	ListAbsences(ctx context.Context, employeeID string, rng calendar.Range) ([]AbsenceEntry, error)
}

type LedgerStore interface {
	GetPeriodBalance(ctx context.Context, employeeID string, key calendar.Date) (*PeriodBalance, error)
	UpsertPeriodBalance(ctx context.Context, pb PeriodBalance) error
}

// Store is what Engine needs.
type Store interface {
	EmployeeFinder
	EntryReader
	LedgerStore
}

// Repository extends Store with the management operations of the service.
type Repository interface {
	Store

	SaveEmployee(ctx context.Context, emp Employee) error
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)

	// SaveAttendance replaces any entry already recorded for the same day.
	SaveAttendance(ctx context.Context, entry AttendanceEntry) error

	// SaveAbsences writes all entries or none, replacing same-day entries.
	SaveAbsences(ctx context.Context, entries []AbsenceEntry) error

	// ListPeriodBalances returns the ledger of one employee ordered by key.
	ListPeriodBalances(ctx context.Context, employeeID string) ([]PeriodBalance, error)

	// Reset clears all data (for demos and tests).
	Reset(ctx context.Context) error
}
