package sortable

import "context"

// IsFirst reports whether rec is a persisted record at rank 1. It reads the
// in-memory rank only.
func (l *Ledger[K]) IsFirst(rec *Record[K]) bool {
	return rec != nil && !rec.IsNew() && rec.rank == 1
}

// IsLast reports whether rec holds the highest rank of its scope. Like Next
// and Previous it answers from the stored rank of rec, which may differ from
// the in-memory one after other rows were shifted; call Reload to bring rec
// itself up to date.
func (l *Ledger[K]) IsLast(ctx context.Context, rec *Record[K]) (bool, error) {
	scope, rank, err := l.position(ctx, "is last", rec)
	if err != nil {
		return false, err
	}
	maxRank, err := l.store.MaxRank(ctx, scope)
	if err != nil {
		return false, err
	}
	return rank == maxRank, nil
}

// Next returns the row ranked just below rec, or nil when rec is last.
func (l *Ledger[K]) Next(ctx context.Context, rec *Record[K]) (*Record[K], error) {
	scope, rank, err := l.position(ctx, "next", rec)
	if err != nil {
		return nil, err
	}
	return l.findByRank(ctx, scope, rank+1)
}

// Previous returns the row ranked just above rec, or nil when rec is first.
func (l *Ledger[K]) Previous(ctx context.Context, rec *Record[K]) (*Record[K], error) {
	scope, rank, err := l.position(ctx, "previous", rec)
	if err != nil {
		return nil, err
	}
	return l.findByRank(ctx, scope, rank-1)
}

// position returns the stored scope and rank of rec.
func (l *Ledger[K]) position(ctx context.Context, op string, rec *Record[K]) (Scope, int, error) {
	if err := l.checkInList(op, rec); err != nil {
		return nil, 0, err
	}
	cur, err := l.store.Find(ctx, rec.ID)
	if err != nil {
		return nil, 0, err
	}
	if !cur.HasRank() {
		return nil, 0, NewInvalidStateError(op, "object was removed from the sortable list")
	}
	return cur.scope, cur.rank, nil
}

// MaxRank returns the highest rank of scope, 0 when it is empty.
func (l *Ledger[K]) MaxRank(ctx context.Context, scope ...any) (int, error) {
	if err := l.checkScope("max rank", scope); err != nil {
		return 0, err
	}
	return l.store.MaxRank(ctx, scope)
}

// FindByRank returns the row at rank in scope, or nil if there is none.
func (l *Ledger[K]) FindByRank(ctx context.Context, rank int, scope ...any) (*Record[K], error) {
	if err := l.checkScope("find by rank", scope); err != nil {
		return nil, err
	}
	return l.findByRank(ctx, scope, rank)
}

func (l *Ledger[K]) findByRank(ctx context.Context, scope Scope, rank int) (*Record[K], error) {
	if rank < 1 {
		return nil, nil
	}
	found, err := l.store.FindByRank(ctx, scope, rank)
	if err != nil || found == nil {
		return nil, err
	}
	return l.adopt(ctx, found), nil
}

// Get returns the row with the given key, from the identity cache when current.
func (l *Ledger[K]) Get(ctx context.Context, id K) (*Record[K], error) {
	if rec, ok := l.cache.Get(ctx, id); ok {
		return rec, nil
	}
	found, err := l.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.adopt(ctx, found), nil
}

// List returns the ranked rows of scope ordered by rank.
func (l *Ledger[K]) List(ctx context.Context, scope ...any) ([]*Record[K], error) {
	if err := l.checkScope("list", scope); err != nil {
		return nil, err
	}
	rows, err := l.store.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		rows[i] = l.adopt(ctx, r)
	}
	return rows, nil
}

// Reload replaces the rank, scope and fields of rec with the stored values,
// discarding unsaved changes and any staged insert.
func (l *Ledger[K]) Reload(ctx context.Context, rec *Record[K]) error {
	if rec == nil || rec.IsNew() || rec.IsDeleted() {
		return NewInvalidStateError("reload", "object is not persisted")
	}
	cur, err := l.store.Find(ctx, rec.ID)
	if err != nil {
		return err
	}
	rec.rank, rec.savedRank = cur.rank, cur.savedRank
	rec.scope, rec.savedScope = cur.scope.clone(), cur.savedScope.clone()
	rec.Fields = cur.Fields
	rec.pending = nil
	l.cache.Put(ctx, rec)
	return nil
}
