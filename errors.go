package ezdb

import (
	"errors"
	"fmt"

	"github.com/ezdb/ezdb/types"
)

// Package-level errors
var (
	ErrClosed          = errors.New("ezdb: engine is closed")
	ErrRowShape        = errors.New("ezdb: row does not match table columns")
	ErrUnknownTable    = errors.New("ezdb: table not registered")
	ErrNotFound        = errors.New("ezdb: row not found")
	ErrTableExists     = errors.New("ezdb: table already registered")
	ErrDeleteTooLarge  = errors.New("ezdb: delete exceeds max delete row size")
	ErrPartialTriggers = errors.New("ezdb: row count triggers partially installed")
	ErrFetchInProgress = errors.New("ezdb: a fetch is already in progress")
	ErrNoFetch         = errors.New("ezdb: no fetch in progress")
	ErrSchemaMismatch  = errors.New("ezdb: table does not match its descriptor")
	ErrInvalidName     = errors.New("ezdb: invalid identifier")
)

// FormatError reports a value or identifier rejected before any SQL is built.
type FormatError = types.FormatError

// TypeMismatchError reports a value whose runtime type disagrees with its
// column's declared kind.
type TypeMismatchError = types.TypeMismatchError

// NotSupportedError reports a capability the dialect does not offer.
type NotSupportedError struct {
	Dialect    string
	Capability string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("ezdb: %s does not support %s", e.Dialect, e.Capability)
}

// UnknownDialectError is returned when no dialect is registered under a name.
type UnknownDialectError struct {
	Name      string
	Available []string
}

func (e *UnknownDialectError) Error() string {
	return fmt.Sprintf("ezdb: unknown dialect %q (available: %v)", e.Name, e.Available)
}

// ExecError wraps a statement failure at the database.
type ExecError struct {
	Statement string
	// Index is the position of the statement within its batch, -1 for
	// statements executed on their own.
	Index int
	Err   error
}

func (e *ExecError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("ezdb: statement %d failed: %v [%s]", e.Index, e.Err, e.Statement)
	}
	return fmt.Sprintf("ezdb: statement failed: %v [%s]", e.Err, e.Statement)
}

func (e *ExecError) Unwrap() error { return e.Err }

// RollbackError is returned when a failed batch could not be rolled back.
// Cause is the statement failure that triggered the rollback and takes
// priority; both are reachable through errors.Is and errors.As.
type RollbackError struct {
	Cause error
	Err   error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("%v (rollback failed: %v)", e.Cause, e.Err)
}

func (e *RollbackError) Unwrap() []error { return []error{e.Cause, e.Err} }
