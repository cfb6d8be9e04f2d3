package sortable

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/sortable/dialect/sql/sqlgraph"
)

// Standard sentinel errors for ledger operations.
var (
	// ErrOutOfBounds is returned when a target rank lies outside the list.
	ErrOutOfBounds = errors.New("sortable: rank out of bounds")

	// ErrInvalidState is returned when a record is not in the state an
	// operation requires (e.g. moving a row that was never saved).
	ErrInvalidState = errors.New("sortable: invalid record state")

	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("sortable: row not found")

	// ErrInvariant is returned when a scope does not hold a contiguous 1..N ranking.
	ErrInvariant = errors.New("sortable: rank invariant violated")
)

// OutOfBoundsError reports a target rank outside [Min, Max]. Ranks are never clamped.
type OutOfBoundsError struct {
	Op   string // Operation (e.g. "insert", "move", "reorder")
	Rank int    // Requested rank
	Min  int    // Lowest accepted rank
	Max  int    // Highest accepted rank
}

// Error returns the error string.
func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("sortable: %s: invalid rank %d (want %d..%d)", e.Op, e.Rank, e.Min, e.Max)
}

// Is reports whether the target error matches OutOfBoundsError.
// This allows errors.Is(err, ErrOutOfBounds) to return true.
func (e *OutOfBoundsError) Is(err error) bool {
	return err == ErrOutOfBounds
}

// NewOutOfBoundsError returns a new OutOfBoundsError.
func NewOutOfBoundsError(op string, rank, lo, hi int) *OutOfBoundsError {
	return &OutOfBoundsError{Op: op, Rank: rank, Min: lo, Max: hi}
}

// IsOutOfBounds returns true if the error is an OutOfBoundsError.
func IsOutOfBounds(err error) bool {
	if err == nil {
		return false
	}
	var e *OutOfBoundsError
	return errors.As(err, &e) || errors.Is(err, ErrOutOfBounds)
}

// InvalidStateError reports an operation applied to a record in the wrong lifecycle state.
type InvalidStateError struct {
	Op     string
	Reason string
}

// Error returns the error string.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("sortable: %s: %s", e.Op, e.Reason)
}

// Is reports whether the target error matches InvalidStateError.
func (e *InvalidStateError) Is(err error) bool {
	return err == ErrInvalidState
}

// NewInvalidStateError returns a new InvalidStateError.
func NewInvalidStateError(op, reason string) *InvalidStateError {
	return &InvalidStateError{Op: op, Reason: reason}
}

// IsInvalidState returns true if the error is an InvalidStateError.
func IsInvalidState(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidStateError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidState)
}

// StorageError wraps a failure of the row store. The ledger returns it unchanged.
type StorageError struct {
	Op  string // Store operation (e.g. "shift", "insert", "max rank")
	Err error  // Underlying driver error
}

// Error returns the error string.
func (e *StorageError) Error() string {
	return fmt.Sprintf("sortable: storage: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsConstraint reports whether the store rejected the write with a database
// constraint violation, such as a duplicate primary key.
func (e *StorageError) IsConstraint() bool {
	return sqlgraph.IsConstraintError(e.Err)
}

// IsRetryable reports whether the failure is a transient lock or
// serialization conflict. The whole operation may be retried.
func (e *StorageError) IsRetryable() bool {
	return sqlgraph.IsRetryableError(e.Err)
}

// NewStorageError returns a new StorageError, or nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError returns true if the error is a StorageError.
func IsStorageError(err error) bool {
	if err == nil {
		return false
	}
	var e *StorageError
	return errors.As(err, &e)
}

// NotFoundError represents a row that does not exist.
type NotFoundError struct {
	label string
	id    any
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("sortable: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("sortable: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given table and id.
func NewNotFoundError(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// InvariantError describes a scope whose ranks are not exactly 1..N.
type InvariantError struct {
	Scope  Scope
	Reason string
}

// Error returns the error string.
func (e *InvariantError) Error() string {
	if len(e.Scope) == 0 {
		return fmt.Sprintf("sortable: rank invariant violated: %s", e.Reason)
	}
	return fmt.Sprintf("sortable: rank invariant violated in scope %s: %s", e.Scope, e.Reason)
}

// Is reports whether the target error matches InvariantError.
func (e *InvariantError) Is(err error) bool {
	return err == ErrInvariant
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error that triggered rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("sortable: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "sortable: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("sortable: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors so errors.Is and errors.As see each of them.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
