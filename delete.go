package sortable

import "context"

// Delete removes a persisted record and closes the gap it leaves, in one
// transaction.
//
// Before the DELETE the stored rank of the row is captured (the in-memory rank
// may already be undefined after RemoveFromList); after it every row ranked
// below the captured rank moves up by one. Deleting the last row of a scope
// shifts nothing.
func (l *Ledger[K]) Delete(ctx context.Context, rec *Record[K]) error {
	switch {
	case rec == nil:
		return NewInvalidStateError("delete", "nil record")
	case rec.IsNew():
		return NewInvalidStateError("delete", "object was never saved")
	case rec.IsDeleted():
		return NewInvalidStateError("delete", "object was deleted")
	}
	return l.run(ctx, "delete", func(ctx context.Context, o *operation[K]) error {
		rank, scope, last, err := l.preDelete(ctx, o, rec)
		if err != nil {
			return err
		}
		if err := l.store.Delete(ctx, rec); err != nil {
			return err
		}
		if !last {
			if err := l.postDelete(ctx, o, scope, rank); err != nil {
				return err
			}
		}
		o.then(func(ctx context.Context) {
			rec.state = stateDeleted
			rec.rank, rec.savedRank = 0, 0
			rec.pending = nil
			l.cache.Evict(ctx, rec.ID)
		})
		return nil
	})
}

// preDelete captures the stored rank and scope of rec, and whether no row is
// ranked below it.
func (l *Ledger[K]) preDelete(ctx context.Context, o *operation[K], rec *Record[K]) (int, Scope, bool, error) {
	if err := l.refresh(ctx, o, rec); err != nil {
		return 0, nil, false, err
	}
	if rec.savedRank == 0 {
		return 0, rec.savedScope.clone(), true, nil
	}
	maxRank, err := l.store.MaxRank(ctx, rec.savedScope)
	if err != nil {
		return 0, nil, false, err
	}
	l.log.DebugContext(ctx, "sortable: deleting ranked row",
		"id", rec.ID, "rank", rec.savedRank, "max_rank", maxRank, "scope", rec.savedScope.String())
	return rec.savedRank, rec.savedScope.clone(), rec.savedRank >= maxRank, nil
}

// postDelete closes the gap left by a deleted row.
func (l *Ledger[K]) postDelete(ctx context.Context, o *operation[K], scope Scope, rank int) error {
	if rank == 0 {
		return nil
	}
	return l.shift(ctx, o, scope, Range{From: rank + 1}, -1)
}
