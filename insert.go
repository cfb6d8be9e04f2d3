package sortable

import "context"

// InsertAtRank stages rec at rank without writing anything. Rows at rank and
// below shift down only when the returned handle is committed (Commit or Save).
//
// rec must not occupy a rank yet: either new, or persisted and removed from the
// list. rank must lie in [1, maxRank+1] of the record's scope. Staging the same
// record again replaces the tentative rank and returns the same handle.
func (l *Ledger[K]) InsertAtRank(ctx context.Context, rec *Record[K], rank int) (*Pending[K], error) {
	if err := l.checkInsertable("insert", rec); err != nil {
		return nil, err
	}
	maxRank, err := l.store.MaxRank(ctx, rec.scope)
	if err != nil {
		return nil, err
	}
	if rank < 1 || rank > maxRank+1 {
		return nil, NewOutOfBoundsError("insert", rank, 1, maxRank+1)
	}
	return l.stage(rec, rank), nil
}

// InsertAtTop stages rec at rank 1.
func (l *Ledger[K]) InsertAtTop(ctx context.Context, rec *Record[K]) (*Pending[K], error) {
	return l.InsertAtRank(ctx, rec, 1)
}

// InsertAtBottom stages rec after the last row of its scope.
func (l *Ledger[K]) InsertAtBottom(ctx context.Context, rec *Record[K]) (*Pending[K], error) {
	if err := l.checkInsertable("insert", rec); err != nil {
		return nil, err
	}
	maxRank, err := l.store.MaxRank(ctx, rec.scope)
	if err != nil {
		return nil, err
	}
	return l.stage(rec, maxRank+1), nil
}

func (l *Ledger[K]) checkInsertable(op string, rec *Record[K]) error {
	switch {
	case rec == nil:
		return NewInvalidStateError(op, "nil record")
	case rec.IsDeleted():
		return NewInvalidStateError(op, "object was deleted")
	case rec.inList():
		return NewInvalidStateError(op, "object is already in the sortable list")
	}
	return l.checkScope(op, rec.scope)
}

func (l *Ledger[K]) stage(rec *Record[K], rank int) *Pending[K] {
	if rec.pending == nil {
		rec.pending = &Pending[K]{rec: rec}
	}
	rec.pending.rank = rank
	rec.rank = rank
	return rec.pending
}

// Commit persists a staged insert: in one transaction it re-checks the bounds
// against a fresh max rank, shifts every row at or below the target rank down
// by one and writes the record.
func (l *Ledger[K]) Commit(ctx context.Context, p *Pending[K]) (*Record[K], error) {
	if p == nil || p.rec == nil || p.rec.pending != p {
		return nil, NewInvalidStateError("commit", "pending insert is no longer staged")
	}
	rec := p.rec
	if err := l.checkInsertable("commit", rec); err != nil {
		return nil, err
	}
	err := l.run(ctx, "commit", func(ctx context.Context, o *operation[K]) error {
		o.touch(rec)
		maxRank, err := l.store.MaxRank(ctx, rec.scope)
		if err != nil {
			return err
		}
		if p.rank > maxRank+1 {
			return NewOutOfBoundsError("commit", p.rank, 1, maxRank+1)
		}
		if p.rank <= maxRank {
			if err := l.shift(ctx, o, rec.scope, Range{From: p.rank}, +1); err != nil {
				return err
			}
		}
		rec.rank = p.rank
		if err := l.write(ctx, rec); err != nil {
			return err
		}
		o.then(func(ctx context.Context) {
			rec.markSaved()
			l.cache.Put(ctx, rec)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// write inserts a new record or updates a persisted one.
func (l *Ledger[K]) write(ctx context.Context, rec *Record[K]) error {
	if rec.IsNew() {
		return l.store.Insert(ctx, rec)
	}
	return l.store.Update(ctx, rec)
}

// Save persists rec and applies its deferred ranking side effects:
//   - a staged insert is committed (see Commit);
//   - a new record without a staged insert is appended after the last row;
//   - a pending RemoveFromList stores a NULL rank and closes the gap it leaves;
//   - a scope change closes the gap in the old scope and appends the record to
//     the new one;
//   - anything else is a plain update.
func (l *Ledger[K]) Save(ctx context.Context, rec *Record[K]) error {
	if rec == nil {
		return NewInvalidStateError("save", "nil record")
	}
	if rec.IsDeleted() {
		return NewInvalidStateError("save", "object was deleted")
	}
	if rec.pending != nil {
		_, err := l.Commit(ctx, rec.pending)
		return err
	}
	if err := l.checkScope("save", rec.scope); err != nil {
		return err
	}
	switch {
	case rec.IsNew():
		return l.append(ctx, rec)
	case rec.scopeChanged():
		return l.rescope(ctx, rec)
	case rec.removalPending():
		return l.remove(ctx, rec)
	}
	return l.run(ctx, "update", func(ctx context.Context, o *operation[K]) error {
		if err := l.store.Update(ctx, rec); err != nil {
			return err
		}
		o.then(func(ctx context.Context) {
			rec.markSaved()
			l.cache.Put(ctx, rec)
		})
		return nil
	})
}

// append inserts a new record after the last row of its scope.
func (l *Ledger[K]) append(ctx context.Context, rec *Record[K]) error {
	return l.run(ctx, "insert", func(ctx context.Context, o *operation[K]) error {
		o.touch(rec)
		maxRank, err := l.store.MaxRank(ctx, rec.scope)
		if err != nil {
			return err
		}
		rec.rank = maxRank + 1
		if err := l.store.Insert(ctx, rec); err != nil {
			return err
		}
		o.then(func(ctx context.Context) {
			rec.markSaved()
			l.cache.Put(ctx, rec)
		})
		return nil
	})
}

// remove stores the NULL rank of a record taken out of the list and shifts
// the rows that followed it up by one.
func (l *Ledger[K]) remove(ctx context.Context, rec *Record[K]) error {
	return l.run(ctx, "remove", func(ctx context.Context, o *operation[K]) error {
		if err := l.refresh(ctx, o, rec); err != nil {
			return err
		}
		old, scope := rec.savedRank, rec.savedScope
		if err := l.store.Update(ctx, rec); err != nil {
			return err
		}
		if old > 0 {
			if err := l.shift(ctx, o, scope, Range{From: old + 1}, -1); err != nil {
				return err
			}
		}
		o.then(func(ctx context.Context) {
			rec.markSaved()
			l.cache.Put(ctx, rec)
		})
		return nil
	})
}

// rescope moves a persisted record to the bottom of its new scope.
func (l *Ledger[K]) rescope(ctx context.Context, rec *Record[K]) error {
	return l.run(ctx, "rescope", func(ctx context.Context, o *operation[K]) error {
		if err := l.refresh(ctx, o, rec); err != nil {
			return err
		}
		old, oldScope := rec.savedRank, rec.savedScope
		if old > 0 {
			if err := l.shift(ctx, o, oldScope, Range{From: old + 1}, -1); err != nil {
				return err
			}
		}
		if rec.HasRank() {
			maxRank, err := l.store.MaxRank(ctx, rec.scope)
			if err != nil {
				return err
			}
			rec.rank = maxRank + 1
		}
		if err := l.store.Update(ctx, rec); err != nil {
			return err
		}
		o.then(func(ctx context.Context) {
			rec.markSaved()
			l.cache.Put(ctx, rec)
		})
		return nil
	})
}
