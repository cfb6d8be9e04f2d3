package sortable

import (
	"context"
	"fmt"
)

// MoveToRank moves a persisted record to newRank within its scope.
//
// The rows between the old and the new rank are shifted by one with a single
// bulk update, then the record itself is written: two writes regardless of the
// distance. Moving to the current rank is a no-op. newRank must lie in
// [1, maxRank].
func (l *Ledger[K]) MoveToRank(ctx context.Context, rec *Record[K], newRank int) (*Record[K], error) {
	if err := l.checkInList("move", rec); err != nil {
		return nil, err
	}
	err := l.run(ctx, "move", func(ctx context.Context, o *operation[K]) error {
		if err := l.refresh(ctx, o, rec); err != nil {
			return err
		}
		maxRank, err := l.store.MaxRank(ctx, rec.scope)
		if err != nil {
			return err
		}
		return l.moveTo(ctx, o, rec, newRank, maxRank)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// moveTo shifts the affected interval and writes rec at newRank.
func (l *Ledger[K]) moveTo(ctx context.Context, o *operation[K], rec *Record[K], newRank, maxRank int) error {
	if !rec.HasRank() {
		return NewInvalidStateError(o.name, "object was removed from the sortable list")
	}
	if newRank < 1 || newRank > maxRank {
		return NewOutOfBoundsError(o.name, newRank, 1, maxRank)
	}
	old := rec.rank
	if newRank == old {
		return nil
	}
	var err error
	if newRank > old {
		err = l.shift(ctx, o, rec.scope, Range{From: old + 1, To: newRank}, -1)
	} else {
		err = l.shift(ctx, o, rec.scope, Range{From: newRank, To: old - 1}, +1)
	}
	if err != nil {
		return err
	}
	rec.rank = newRank
	if err := l.store.Update(ctx, rec); err != nil {
		return err
	}
	o.then(func(ctx context.Context) {
		rec.markSaved()
		l.cache.Put(ctx, rec)
	})
	return nil
}

// MoveToTop moves rec to rank 1. A record already at the top is returned unchanged.
func (l *Ledger[K]) MoveToTop(ctx context.Context, rec *Record[K]) (*Record[K], error) {
	return l.MoveToRank(ctx, rec, 1)
}

// MoveToBottom moves rec to the last rank of its scope. When rec is already
// last nothing is written and a nil record is returned.
func (l *Ledger[K]) MoveToBottom(ctx context.Context, rec *Record[K]) (*Record[K], error) {
	if err := l.checkInList("move to bottom", rec); err != nil {
		return nil, err
	}
	moved := false
	err := l.run(ctx, "move to bottom", func(ctx context.Context, o *operation[K]) error {
		if err := l.refresh(ctx, o, rec); err != nil {
			return err
		}
		maxRank, err := l.store.MaxRank(ctx, rec.scope)
		if err != nil {
			return err
		}
		if rec.rank == maxRank {
			return nil
		}
		moved = true
		return l.moveTo(ctx, o, rec, maxRank, maxRank)
	})
	if err != nil || !moved {
		return nil, err
	}
	return rec, nil
}

// MoveUp swaps rec with the row ranked just above it. A record already at
// rank 1 is returned unchanged.
func (l *Ledger[K]) MoveUp(ctx context.Context, rec *Record[K]) (*Record[K], error) {
	if err := l.checkInList("move up", rec); err != nil {
		return nil, err
	}
	err := l.run(ctx, "move up", func(ctx context.Context, o *operation[K]) error {
		if err := l.refresh(ctx, o, rec); err != nil {
			return err
		}
		if rec.rank <= 1 {
			return nil
		}
		return l.step(ctx, o, rec, rec.rank-1)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// MoveDown swaps rec with the row ranked just below it. When rec is already
// last nothing is written and a nil record is returned.
func (l *Ledger[K]) MoveDown(ctx context.Context, rec *Record[K]) (*Record[K], error) {
	if err := l.checkInList("move down", rec); err != nil {
		return nil, err
	}
	moved := false
	err := l.run(ctx, "move down", func(ctx context.Context, o *operation[K]) error {
		if err := l.refresh(ctx, o, rec); err != nil {
			return err
		}
		maxRank, err := l.store.MaxRank(ctx, rec.scope)
		if err != nil {
			return err
		}
		if rec.rank >= maxRank {
			return nil
		}
		moved = true
		return l.step(ctx, o, rec, rec.rank+1)
	})
	if err != nil || !moved {
		return nil, err
	}
	return rec, nil
}

// step exchanges the ranks of rec and the stored row at rank, within rec's
// scope. The neighbour is written from its stored state, so unsaved changes of
// a cached instance are neither persisted nor lost.
func (l *Ledger[K]) step(ctx context.Context, o *operation[K], rec *Record[K], rank int) error {
	nb, err := l.store.FindByRank(ctx, rec.scope, rank)
	if err != nil {
		return err
	}
	if nb == nil {
		return &InvariantError{Scope: rec.scope.clone(), Reason: fmt.Sprintf("no row at rank %d", rank)}
	}
	held, _ := l.cache.Get(ctx, nb.ID)
	o.touch(rec)
	rec.rank, nb.rank = nb.rank, rec.rank
	if err := l.store.Update(ctx, rec); err != nil {
		return err
	}
	if err := l.store.Update(ctx, nb); err != nil {
		return err
	}
	o.then(func(ctx context.Context) {
		rec.markSaved()
		l.cache.Put(ctx, rec)
		l.settle(ctx, nb, held)
	})
	return nil
}

// settle marks a row written from its stored state as saved and carries its
// new rank over to the cached instance, which keeps any unsaved removal or
// scope change.
func (l *Ledger[K]) settle(ctx context.Context, fresh, held *Record[K]) {
	fresh.markSaved()
	if held == nil || held == fresh {
		l.cache.Put(ctx, fresh)
		return
	}
	removed, rescoped := held.removalPending(), held.scopeChanged()
	held.savedRank, held.savedScope = fresh.savedRank, fresh.savedScope.clone()
	if !removed {
		held.rank = fresh.rank
	}
	if !rescoped {
		held.scope = fresh.scope.clone()
	}
	l.cache.Put(ctx, held)
}

// SwapWith exchanges the positions of two persisted records. Only the two
// rows are written; every other rank is left untouched. Records living in
// different scopes exchange their scopes as well.
func (l *Ledger[K]) SwapWith(ctx context.Context, rec, other *Record[K]) (*Record[K], error) {
	if err := l.checkInList("swap", rec); err != nil {
		return nil, err
	}
	if err := l.checkInList("swap", other); err != nil {
		return nil, err
	}
	if rec == other || rec.ID == other.ID {
		return rec, nil
	}
	err := l.run(ctx, "swap", func(ctx context.Context, o *operation[K]) error {
		if err := l.refresh(ctx, o, rec); err != nil {
			return err
		}
		if err := l.refresh(ctx, o, other); err != nil {
			return err
		}
		return l.swap(ctx, o, rec, other)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// swap exchanges the ranks and scopes of two refreshed records.
func (l *Ledger[K]) swap(ctx context.Context, o *operation[K], a, b *Record[K]) error {
	if !a.HasRank() || !b.HasRank() {
		return NewInvalidStateError(o.name, "object was removed from the sortable list")
	}
	o.touch(a, b)
	a.rank, b.rank = b.rank, a.rank
	a.scope, b.scope = b.scope, a.scope
	if err := l.store.Update(ctx, a); err != nil {
		return err
	}
	if err := l.store.Update(ctx, b); err != nil {
		return err
	}
	o.then(func(ctx context.Context) {
		a.markSaved()
		b.markSaved()
		l.cache.Put(ctx, a)
		l.cache.Put(ctx, b)
	})
	return nil
}

// RemoveFromList takes rec out of the ordered list in memory: its rank becomes
// undefined. Nothing is written; the rows that followed it move up when rec is
// saved or deleted.
func (l *Ledger[K]) RemoveFromList(rec *Record[K]) (*Record[K], error) {
	if err := l.checkInList("remove from list", rec); err != nil {
		return nil, err
	}
	rec.rank = 0
	return rec, nil
}
