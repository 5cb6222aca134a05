/*
errors.go - Centralized error types for the permissions engine

PURPOSE:
  All storage-facing error kinds in one place. Backends wrap these with
  call-site context via fmt.Errorf("...: %w", err) so callers can classify
  failures with errors.Is.

ERROR CATEGORIES:
  1. Load errors  - Fatal initialization failures (connection, schema)
  2. Query errors - Per-operation database failures (transaction rolls back)
  3. Usage errors - Programmer mistakes (reading an unallocated id)

USAGE:
  if errors.Is(err, data.ErrLoadFailure) {
      // storage never came up; nothing to retry at this level
  }

SEE ALSO:
  - store/sqlstore: the producer of most of these
*/
package data

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrLoadFailure is returned when storage cannot be initialized:
	// connection refused, unsupported dialect, or schema deployment failure.
	// Fatal for the store.
	ErrLoadFailure = errors.New("permissions storage failed to load")

	// ErrQueryFailure is returned for database errors on a read or write
	// path. The enclosing transaction has been rolled back.
	ErrQueryFailure = errors.New("permissions query failed")

	// ErrUnallocated is returned when the id of a subject or segment is read
	// before the database has assigned one. Programmer error.
	ErrUnallocated = errors.New("id read before allocation")

	// ErrConsistency is returned when the database behaves unexpectedly,
	// such as an insert that yields no generated key.
	ErrConsistency = errors.New("storage consistency violation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// UnsupportedDialectError reports a database flavor with no adapter.
type UnsupportedDialectError struct {
	Dialect string
}

func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("no storage support for %q databases", e.Dialect)
}

func (e *UnsupportedDialectError) Unwrap() error {
	return ErrLoadFailure
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsFatal returns true if the error means the store never initialized and
// no operation on it can succeed.
func IsFatal(err error) bool {
	return errors.Is(err, ErrLoadFailure)
}
