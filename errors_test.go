package sortable_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sortable"
)

func TestOutOfBoundsError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := sortable.NewOutOfBoundsError("insert", 7, 1, 5)
		assert.Equal(t, "sortable: insert: invalid rank 7 (want 1..5)", err.Error())
	})

	t.Run("IsOutOfBounds", func(t *testing.T) {
		err := sortable.NewOutOfBoundsError("move", 0, 1, 3)
		assert.True(t, errors.Is(err, sortable.ErrOutOfBounds))
		assert.True(t, sortable.IsOutOfBounds(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, sortable.IsOutOfBounds(wrapped))

		var e *sortable.OutOfBoundsError
		require.True(t, errors.As(wrapped, &e))
		assert.Equal(t, 3, e.Max)

		// Non-matching error
		assert.False(t, sortable.IsOutOfBounds(errors.New("other error")))
		assert.False(t, sortable.IsOutOfBounds(nil))
		assert.False(t, sortable.IsInvalidState(err))
	})
}

func TestInvalidStateError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := sortable.NewInvalidStateError("move", "object must be already in the sortable list")
		assert.Equal(t, "sortable: move: object must be already in the sortable list", err.Error())
	})

	t.Run("IsInvalidState", func(t *testing.T) {
		err := sortable.NewInvalidStateError("swap", "nil record")
		assert.True(t, errors.Is(err, sortable.ErrInvalidState))
		assert.True(t, sortable.IsInvalidState(fmt.Errorf("wrapper: %w", err)))
		assert.True(t, sortable.IsInvalidState(sortable.ErrInvalidState))
		assert.False(t, sortable.IsInvalidState(errors.New("other error")))
		assert.False(t, sortable.IsInvalidState(nil))
	})
}

func TestStorageError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := sortable.NewStorageError("shift", errors.New("connection reset"))
		assert.Equal(t, "sortable: storage: shift: connection reset", err.Error())
	})

	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, sortable.NewStorageError("insert", nil))
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("db error")
		err := sortable.NewStorageError("update", underlying)
		assert.True(t, errors.Is(err, underlying))
		assert.True(t, sortable.IsStorageError(err))
		assert.False(t, sortable.IsStorageError(underlying))
		assert.False(t, sortable.IsStorageError(nil))
	})

	t.Run("NoDoubleWrap", func(t *testing.T) {
		inner := sortable.NewStorageError("insert", errors.New("boom"))
		err := sortable.NewStorageError("commit", fmt.Errorf("tx: %w", inner))
		var se *sortable.StorageError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "insert", se.Op)
	})

	t.Run("Classify", func(t *testing.T) {
		var se *sortable.StorageError
		require.True(t, errors.As(sortable.NewStorageError("insert", errors.New("UNIQUE constraint failed: tasks.id")), &se))
		assert.True(t, se.IsConstraint())
		assert.False(t, se.IsRetryable())

		require.True(t, errors.As(sortable.NewStorageError("shift", errors.New("database is locked")), &se))
		assert.False(t, se.IsConstraint())
		assert.True(t, se.IsRetryable())
	})
}

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		assert.Equal(t, "sortable: tasks not found (id=3)", sortable.NewNotFoundError("tasks", 3).Error())
		assert.Equal(t, "sortable: tasks not found", sortable.NewNotFoundError("tasks", nil).Error())
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := sortable.NewNotFoundError("tasks", "a1")
		assert.Equal(t, "a1", err.ID())
		assert.True(t, errors.Is(err, sortable.ErrNotFound))
		assert.True(t, sortable.IsNotFound(fmt.Errorf("wrapper: %w", err)))
		assert.True(t, sortable.IsNotFound(sortable.ErrNotFound))
		assert.False(t, sortable.IsNotFound(errors.New("other error")))
		assert.False(t, sortable.IsNotFound(nil))
	})
}

func TestInvariantError(t *testing.T) {
	err := &sortable.InvariantError{Scope: sortable.Scope{7}, Reason: "rank 2 is missing"}
	assert.Equal(t, "sortable: rank invariant violated in scope (7): rank 2 is missing", err.Error())
	assert.True(t, errors.Is(err, sortable.ErrInvariant))

	unscoped := &sortable.InvariantError{Reason: "rank 1 is missing"}
	assert.Equal(t, "sortable: rank invariant violated: rank 1 is missing", unscoped.Error())
}

func TestRollbackError(t *testing.T) {
	underlying := errors.New("rollback failed")
	err := &sortable.RollbackError{Err: underlying}
	assert.Equal(t, "sortable: rollback failed: rollback failed", err.Error())
	assert.True(t, errors.Is(err, underlying))
}

func TestAggregateError(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		assert.NoError(t, sortable.NewAggregateError())
		assert.NoError(t, sortable.NewAggregateError(nil, nil))
		assert.Equal(t, "sortable: no errors", (&sortable.AggregateError{}).Error())
	})

	t.Run("Single", func(t *testing.T) {
		single := errors.New("only")
		assert.Equal(t, single, sortable.NewAggregateError(nil, single))
	})

	t.Run("Multiple", func(t *testing.T) {
		a := &sortable.InvariantError{Scope: sortable.Scope{1}, Reason: "rank 2 is missing"}
		b := &sortable.InvariantError{Scope: sortable.Scope{2}, Reason: "rank 1 is held by more than one row"}
		err := sortable.NewAggregateError(a, nil, b)
		assert.Equal(t, "sortable: multiple errors:\n"+
			"  [1] sortable: rank invariant violated in scope (1): rank 2 is missing\n"+
			"  [2] sortable: rank invariant violated in scope (2): rank 1 is held by more than one row", err.Error())
		assert.True(t, errors.Is(err, sortable.ErrInvariant))

		var agg *sortable.AggregateError
		require.True(t, errors.As(err, &agg))
		assert.Len(t, agg.Errors, 2)
	})
}
