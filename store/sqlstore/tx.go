package sqlstore

import (
	"context"
	"errors"

	"github.com/syssam/sortable"
	"github.com/syssam/sortable/dialect"
)

// txKey keys the transaction of one driver in a context, so that stores over
// different databases never share a transaction.
type txKey struct{ drv dialect.Driver }

// WithTx returns a context carrying tx, a transaction opened on drv. Store
// calls made with the returned context run on tx.
//
// Example:
//
//	tx, _ := drv.Tx(ctx)
//	txCtx := sqlstore.WithTx(ctx, drv, tx)
//	ledger.MoveUp(txCtx, rec)
//	ledger.MoveToBottom(txCtx, other)
//	tx.Commit()
func WithTx(ctx context.Context, drv dialect.Driver, tx dialect.Tx) context.Context {
	return context.WithValue(ctx, txKey{drv}, tx)
}

// TxFrom returns the transaction on drv carried by ctx, or nil.
func TxFrom(ctx context.Context, drv dialect.Driver) dialect.Tx {
	if tx, ok := ctx.Value(txKey{drv}).(dialect.Tx); ok {
		return tx
	}
	return nil
}

// RunTx runs fn in a transaction on drv. The transaction commits when fn
// returns nil and rolls back otherwise. When ctx already carries a transaction
// on drv, fn joins it and the outer caller decides the outcome.
func RunTx(ctx context.Context, drv dialect.Driver, fn func(ctx context.Context) error) error {
	if TxFrom(ctx, drv) != nil {
		return fn(ctx)
	}
	tx, err := drv.Tx(ctx)
	if err != nil {
		return sortable.NewStorageError("begin", err)
	}
	if err := fn(WithTx(ctx, drv, tx)); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return errors.Join(err, &sortable.RollbackError{Err: rerr})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return sortable.NewStorageError("commit", err)
	}
	return nil
}
