/*
Package sqlite provides a SQL-backed implementation of balance.Repository.

PURPOSE:
  Persists employees with their weekly schedule, attendance and absence
  entries, and the period-balance ledger. The same SQL runs on SQLite
  (default, mattn/go-sqlite3) and PostgreSQL (lib/pq): queries are written
  with ? placeholders and rebound by sqlx for the active driver.

KEY TABLES:
  employees:          identity, name, Mon-Fri hours
  attendance_entries: one row per (employee_id, entry_date)
  absence_entries:    one row per (employee_id, entry_date)
  period_balances:    ledger, PRIMARY KEY (employee_id, period_key)

STORAGE FORMAT:
  Dates are TEXT in YYYY-MM-DD form, so range filters are plain string
  comparisons on both engines. Hours are TEXT decimals, never floats.

UPSERTS:
  Same-day entries and ledger rows are written with
  INSERT ... ON CONFLICT (...) DO UPDATE. Last write wins.

USAGE:
  store, err := sqlite.New("./data/timebalance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := balance.NewEngine(store)

SEE ALSO:
  - balance/store.go: Interface definitions
  - balance/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/time-balance/balance"
	"github.com/warp/time-balance/calendar"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Store implements balance.Repository on top of sqlx.
type Store struct {
	db *sqlx.DB
	mu sync.RWMutex
}

var _ balance.Repository = (*Store)(nil)

// New opens (and migrates) a SQLite database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	return Open(context.Background(), DriverSQLite, dbPath, 1)
}

// Open connects with the given driver and migrates the schema.
func Open(ctx context.Context, driver, dsn string, maxOpenConns int) (*Store, error) {
	if driver == DriverSQLite && !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// Every connection to ":memory:" is a distinct database.
		maxOpenConns = 1
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	store := NewWithDB(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// NewWithDB wraps an existing handle without migrating it.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks connectivity (used by the health endpoint).
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the database schema.
func (s *Store) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		monday_hours TEXT NOT NULL DEFAULT '0',
		tuesday_hours TEXT NOT NULL DEFAULT '0',
		wednesday_hours TEXT NOT NULL DEFAULT '0',
		thursday_hours TEXT NOT NULL DEFAULT '0',
		friday_hours TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	-- Case-insensitive name lookup (hot path of every computation)
	CREATE INDEX IF NOT EXISTS idx_employees_name_lower
		ON employees (LOWER(name));

	CREATE TABLE IF NOT EXISTS attendance_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		hours TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE (employee_id, entry_date)
	);

	CREATE TABLE IF NOT EXISTS absence_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		absence_type TEXT NOT NULL,
		credited_hours TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE (employee_id, entry_date)
	);

	CREATE TABLE IF NOT EXISTS period_balances (
		employee_id TEXT NOT NULL,
		period_key TEXT NOT NULL,
		difference TEXT NOT NULL,
		carry_over TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, period_key)
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

type employeeRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Email     string `db:"email"`
	Monday    string `db:"monday_hours"`
	Tuesday   string `db:"tuesday_hours"`
	Wednesday string `db:"wednesday_hours"`
	Thursday  string `db:"thursday_hours"`
	Friday    string `db:"friday_hours"`
	CreatedAt string `db:"created_at"`
}

const employeeColumns = `id, name, email, monday_hours, tuesday_hours, wednesday_hours, thursday_hours, friday_hours, created_at`

func (r employeeRow) toEmployee() (balance.Employee, error) {
	var (
		sch balance.WeeklySchedule
		err error
	)
	for _, col := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"monday_hours", r.Monday, &sch.Monday},
		{"tuesday_hours", r.Tuesday, &sch.Tuesday},
		{"wednesday_hours", r.Wednesday, &sch.Wednesday},
		{"thursday_hours", r.Thursday, &sch.Thursday},
		{"friday_hours", r.Friday, &sch.Friday},
	} {
		if *col.dst, err = parseHours(col.name, col.raw); err != nil {
			return balance.Employee{}, fmt.Errorf("employee %s: %w", r.ID, err)
		}
	}

	created, _ := time.Parse(time.RFC3339, r.CreatedAt)
	return balance.Employee{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Schedule:  sch,
		CreatedAt: created,
	}, nil
}

// SaveEmployee inserts or updates an employee and its schedule.
func (s *Store) SaveEmployee(ctx context.Context, emp balance.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := s.db.Rebind(`
		INSERT INTO employees (` + employeeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			monday_hours = excluded.monday_hours,
			tuesday_hours = excluded.tuesday_hours,
			wednesday_hours = excluded.wednesday_hours,
			thursday_hours = excluded.thursday_hours,
			friday_hours = excluded.friday_hours
	`)

	sch := emp.Schedule
	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Email,
		sch.Monday.String(), sch.Tuesday.String(), sch.Wednesday.String(),
		sch.Thursday.String(), sch.Friday.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id string) (*balance.Employee, error) {
	return s.getEmployee(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
}

// FindEmployeeByName matches case-insensitively; on duplicate names the
// lowest id wins.
func (s *Store) FindEmployeeByName(ctx context.Context, name string) (*balance.Employee, error) {
	return s.getEmployee(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE LOWER(name) = LOWER(?) ORDER BY id LIMIT 1`,
		strings.TrimSpace(name),
	)
}

func (s *Store) getEmployee(ctx context.Context, query string, arg any) (*balance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row employeeRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query employee: %w", err)
	}
	emp, err := row.toEmployee()
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// ListEmployees returns all employees.
func (s *Store) ListEmployees(ctx context.Context) ([]balance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []employeeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+employeeColumns+` FROM employees ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}

	employees := make([]balance.Employee, len(rows))
	for i, r := range rows {
		emp, err := r.toEmployee()
		if err != nil {
			return nil, err
		}
		employees[i] = emp
	}
	return employees, nil
}

// =============================================================================
// ENTRIES
// =============================================================================

type attendanceRow struct {
	ID         string `db:"id"`
	EmployeeID string `db:"employee_id"`
	EntryDate  string `db:"entry_date"`
	Hours      string `db:"hours"`
	Comment    string `db:"comment"`
}

type absenceRow struct {
	ID            string `db:"id"`
	EmployeeID    string `db:"employee_id"`
	EntryDate     string `db:"entry_date"`
	AbsenceType   string `db:"absence_type"`
	CreditedHours string `db:"credited_hours"`
	Comment       string `db:"comment"`
}

// SaveAttendance upserts the entry of (employee, date).
func (s *Store) SaveAttendance(ctx context.Context, e balance.AttendanceEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := s.db.Rebind(`
		INSERT INTO attendance_entries (id, employee_id, entry_date, hours, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (employee_id, entry_date) DO UPDATE SET
			hours = excluded.hours,
			comment = excluded.comment
	`)
	_, err := s.db.ExecContext(ctx, query,
		entryID(e.ID), e.EmployeeID, e.Date.String(), e.Hours.String(), e.Comment,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// SaveAbsences upserts all entries in one transaction.
func (s *Store) SaveAbsences(ctx context.Context, entries []balance.AbsenceEntry) error {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO absence_entries (id, employee_id, entry_date, absence_type, credited_hours, comment, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (employee_id, entry_date) DO UPDATE SET
				absence_type = excluded.absence_type,
				credited_hours = excluded.credited_hours,
				comment = excluded.comment
		`)
		now := time.Now().UTC().Format(time.RFC3339)
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, query,
				entryID(e.ID), e.EmployeeID, e.Date.String(), string(e.Type), e.CreditedHours.String(), e.Comment, now,
			); err != nil {
				return fmt.Errorf("insert absence %s: %w", e.Date, err)
			}
		}
		return nil
	})
}

// ListAttendance returns entries in [rng.Start, rng.End) ordered by date.
func (s *Store) ListAttendance(ctx context.Context, employeeID string, rng calendar.Range) ([]balance.AttendanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []attendanceRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, employee_id, entry_date, hours, comment
		FROM attendance_entries
		WHERE employee_id = ? AND entry_date >= ? AND entry_date < ?
		ORDER BY entry_date
	`), employeeID, rng.Start.String(), rng.End.String())
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	entries := make([]balance.AttendanceEntry, 0, len(rows))
	for _, r := range rows {
		d, err := calendar.ParseDate(r.EntryDate)
		if err != nil {
			return nil, fmt.Errorf("attendance %s: %w", r.ID, err)
		}
		hours, err := parseHours("hours", r.Hours)
		if err != nil {
			return nil, fmt.Errorf("attendance %s: %w", r.ID, err)
		}
		entries = append(entries, balance.AttendanceEntry{
			ID: r.ID, EmployeeID: r.EmployeeID, Date: d, Hours: hours, Comment: r.Comment,
		})
	}
	return entries, nil
}

// ListAbsences returns entries in [rng.Start, rng.End) ordered by date.
func (s *Store) ListAbsences(ctx context.Context, employeeID string, rng calendar.Range) ([]balance.AbsenceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []absenceRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, employee_id, entry_date, absence_type, credited_hours, comment
		FROM absence_entries
		WHERE employee_id = ? AND entry_date >= ? AND entry_date < ?
		ORDER BY entry_date
	`), employeeID, rng.Start.String(), rng.End.String())
	if err != nil {
		return nil, fmt.Errorf("list absences: %w", err)
	}

	entries := make([]balance.AbsenceEntry, 0, len(rows))
	for _, r := range rows {
		d, err := calendar.ParseDate(r.EntryDate)
		if err != nil {
			return nil, fmt.Errorf("absence %s: %w", r.ID, err)
		}
		credited, err := parseHours("credited_hours", r.CreditedHours)
		if err != nil {
			return nil, fmt.Errorf("absence %s: %w", r.ID, err)
		}
		entries = append(entries, balance.AbsenceEntry{
			ID: r.ID, EmployeeID: r.EmployeeID, Date: d,
			Type: balance.AbsenceType(r.AbsenceType), CreditedHours: credited, Comment: r.Comment,
		})
	}
	return entries, nil
}

// =============================================================================
// LEDGER
// =============================================================================

type periodBalanceRow struct {
	EmployeeID string `db:"employee_id"`
	PeriodKey  string `db:"period_key"`
	Difference string `db:"difference"`
	CarryOver  string `db:"carry_over"`
	UpdatedAt  string `db:"updated_at"`
}

func (r periodBalanceRow) toPeriodBalance() (balance.PeriodBalance, error) {
	key, err := calendar.ParseDate(r.PeriodKey)
	if err != nil {
		return balance.PeriodBalance{}, err
	}
	diff, err := parseHours("difference", r.Difference)
	if err != nil {
		return balance.PeriodBalance{}, err
	}
	carry, err := parseHours("carry_over", r.CarryOver)
	if err != nil {
		return balance.PeriodBalance{}, err
	}
	updated, _ := time.Parse(time.RFC3339, r.UpdatedAt)
	return balance.PeriodBalance{
		EmployeeID: r.EmployeeID,
		PeriodKey:  key,
		Difference: diff,
		CarryOver:  carry,
		UpdatedAt:  updated,
	}, nil
}

// GetPeriodBalance returns the ledger row at key, or nil if absent.
func (s *Store) GetPeriodBalance(ctx context.Context, employeeID string, key calendar.Date) (*balance.PeriodBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row periodBalanceRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT employee_id, period_key, difference, carry_over, updated_at
		FROM period_balances WHERE employee_id = ? AND period_key = ?
	`), employeeID, key.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get period balance: %w", err)
	}

	pb, err := row.toPeriodBalance()
	if err != nil {
		return nil, err
	}
	return &pb, nil
}

// UpsertPeriodBalance replaces the row of (employee, period key).
func (s *Store) UpsertPeriodBalance(ctx context.Context, pb balance.PeriodBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := s.db.Rebind(`
		INSERT INTO period_balances (employee_id, period_key, difference, carry_over, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (employee_id, period_key) DO UPDATE SET
			difference = excluded.difference,
			carry_over = excluded.carry_over,
			updated_at = excluded.updated_at
	`)
	_, err := s.db.ExecContext(ctx, query,
		pb.EmployeeID, pb.PeriodKey.String(),
		balance.Round(pb.Difference).String(), balance.Round(pb.CarryOver).String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListPeriodBalances returns the ledger of one employee ordered by key.
func (s *Store) ListPeriodBalances(ctx context.Context, employeeID string) ([]balance.PeriodBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []periodBalanceRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT employee_id, period_key, difference, carry_over, updated_at
		FROM period_balances WHERE employee_id = ?
		ORDER BY period_key
	`), employeeID)
	if err != nil {
		return nil, fmt.Errorf("list period balances: %w", err)
	}

	result := make([]balance.PeriodBalance, 0, len(rows))
	for _, r := range rows {
		pb, err := r.toPeriodBalance()
		if err != nil {
			return nil, err
		}
		result = append(result, pb)
	}
	return result, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"period_balances", "absence_entries", "attendance_entries", "employees"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// withTx runs fn in a transaction, rolling back if fn fails.
func (s *Store) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// entryID keeps caller-assigned ids and generates one otherwise.
func entryID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// parseHours decodes a decimal TEXT column; a corrupt value is an error,
// never zero.
func parseHours(column, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt %s %q: %w", column, s, err)
	}
	return d, nil
}
