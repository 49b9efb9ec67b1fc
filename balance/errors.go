/*
errors.go - Error taxonomy of the balance engine

ERROR CATEGORIES:
  1. InvalidPeriod     - bad year/month/quarter/period type (client error)
  2. InvalidEntry      - malformed attendance/absence write (client error)
  3. EmployeeNotFound  - no employee matches the name (not found)
  4. ExcessiveRange    - calendar walk exceeded its bound (defect, see calendar)
  5. Storage           - collaborator failure, passed through unchanged

Every error aborts the computation. No PeriodBalance is written and no
partial Result is returned.

USAGE:
  res, err := engine.ComputeMonth(ctx, "anna", 2024, 2)
  switch {
  case balance.IsClientError(err):   // 400
  case balance.IsNotFound(err):      // 404
  case err != nil:                   // 500
  }
*/
package balance

import (
	"errors"
	"fmt"

	"github.com/warp/time-balance/calendar"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrInvalidEntry     = errors.New("invalid entry")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrStorage          = errors.New("storage error")

	// ErrExcessiveRange is re-exported so callers only need this package.
	ErrExcessiveRange = calendar.ErrExcessiveRange
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidPeriodError describes which period input was rejected.
type InvalidPeriodError struct {
	Field  string // "year", "month", "quarter", "type"
	Value  string
	Reason string
}

func (e *InvalidPeriodError) Error() string {
	return fmt.Sprintf("invalid period: %s %q %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidPeriodError) Unwrap() error {
	return ErrInvalidPeriod
}

type InvalidEntryError struct {
	Field  string
	Reason string
}

func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("invalid entry: %s %s", e.Field, e.Reason)
}

func (e *InvalidEntryError) Unwrap() error {
	return ErrInvalidEntry
}

type EmployeeNotFoundError struct {
	Name string
}

func (e *EmployeeNotFoundError) Error() string {
	return fmt.Sprintf("employee not found: %q", e.Name)
}

func (e *EmployeeNotFoundError) Unwrap() error {
	return ErrEmployeeNotFound
}

// StorageError wraps a collaborator failure with the operation that failed.
// It matches both ErrStorage and the underlying cause.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidEntry)
}

// IsNotFound returns true if the error indicates a missing employee.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound)
}

// IsDefect returns true for internal invariant violations that must be
// logged as bugs rather than reported as user errors.
func IsDefect(err error) bool {
	return errors.Is(err, ErrExcessiveRange)
}
