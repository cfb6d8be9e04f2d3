package sortable

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"
)

// verifyConcurrency bounds the number of scopes checked in parallel by Verify.
const verifyConcurrency = 4

// Reorder assigns new ranks to several rows of one scope in a single
// transaction, e.g. after a drag-and-drop of a whole list. Rows not named in
// order keep their rank. The resulting scope must be contiguous, otherwise the
// transaction is rolled back and an *InvariantError is returned.
func (l *Ledger[K]) Reorder(ctx context.Context, scope Scope, order map[K]int) error {
	if err := l.checkScope("reorder", scope); err != nil {
		return err
	}
	if len(order) == 0 {
		return nil
	}
	ids := make([]K, 0, len(order))
	used := make(map[int]K, len(order))
	for id, rank := range order {
		if prev, dup := used[rank]; dup {
			return NewInvalidStateError("reorder", fmt.Sprintf("rank %d assigned to both %v and %v", rank, prev, id))
		}
		used[rank] = id
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b K) int { return order[a] - order[b] })
	return l.run(ctx, "reorder", func(ctx context.Context, o *operation[K]) error {
		maxRank, err := l.store.MaxRank(ctx, scope)
		if err != nil {
			return err
		}
		recs := make([]*Record[K], 0, len(ids))
		held := make([]*Record[K], 0, len(ids))
		for _, id := range ids {
			rank := order[id]
			if rank < 1 || rank > maxRank {
				return NewOutOfBoundsError("reorder", rank, 1, maxRank)
			}
			rec, err := l.store.Find(ctx, id)
			if err != nil {
				return err
			}
			if !rec.HasRank() || !rec.scope.Equal(scope) {
				return NewInvalidStateError("reorder", fmt.Sprintf("%s %v is not ranked in scope %s", l.label, id, scope))
			}
			cached, _ := l.cache.Get(ctx, id)
			rec.rank = rank
			if err := l.store.Update(ctx, rec); err != nil {
				return err
			}
			recs = append(recs, rec)
			held = append(held, cached)
		}
		rows, err := l.store.List(ctx, scope)
		if err != nil {
			return err
		}
		if err := checkContiguous(scope, rows); err != nil {
			return err
		}
		o.invalidate(scope)
		o.then(func(ctx context.Context) {
			for i, rec := range recs {
				l.settle(ctx, rec, held[i])
			}
		})
		return nil
	})
}

// DeleteList deletes every row of scope.
func (l *Ledger[K]) DeleteList(ctx context.Context, scope ...any) (int64, error) {
	if err := l.checkScope("delete list", scope); err != nil {
		return 0, err
	}
	var n int64
	err := l.run(ctx, "delete list", func(ctx context.Context, o *operation[K]) error {
		var err error
		if n, err = l.store.DeleteScope(ctx, scope); err != nil {
			return err
		}
		o.invalidate(scope)
		return nil
	})
	return n, err
}

// Verify checks that every scope of the table is ranked exactly 1..N. Scopes
// are checked concurrently; all violations are returned as an aggregate of
// *InvariantError values.
func (l *Ledger[K]) Verify(ctx context.Context) error {
	scopes, err := l.store.Scopes(ctx)
	if err != nil {
		return err
	}
	violations := make([]error, len(scopes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyConcurrency)
	for i, scope := range scopes {
		g.Go(func() error {
			rows, err := l.store.List(ctx, scope)
			if err != nil {
				return err
			}
			violations[i] = checkContiguous(scope, rows)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return NewAggregateError(violations...)
}

// Repair renumbers the ranked rows of scope 1..N, keeping their current order.
// Rows sharing a rank keep the store's tie order.
func (l *Ledger[K]) Repair(ctx context.Context, scope ...any) (int, error) {
	if err := l.checkScope("repair", scope); err != nil {
		return 0, err
	}
	fixed := 0
	err := l.run(ctx, "repair", func(ctx context.Context, o *operation[K]) error {
		rows, err := l.store.List(ctx, scope)
		if err != nil {
			return err
		}
		// Fresh rows are compared and written; cached instances of the scope
		// are dropped by the invalidation.
		var changed []*Record[K]
		for i, rec := range rows {
			if rec.savedRank == i+1 {
				continue
			}
			rec.rank = i + 1
			if err := l.store.Update(ctx, rec); err != nil {
				return err
			}
			changed = append(changed, rec)
		}
		fixed = len(changed)
		if fixed > 0 {
			l.log.InfoContext(ctx, "sortable: repaired ranks", "scope", Scope(scope).String(), "rows", fixed)
			o.invalidate(scope)
		}
		o.then(func(ctx context.Context) {
			for _, rec := range changed {
				rec.markSaved()
			}
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return fixed, nil
}

// checkContiguous reports the first deviation of rows (ordered by rank) from 1..N.
func checkContiguous[K comparable](scope Scope, rows []*Record[K]) error {
	for i, r := range rows {
		want := i + 1
		switch {
		case r.savedRank == want:
		case i > 0 && r.savedRank == rows[i-1].savedRank:
			return &InvariantError{Scope: scope.clone(), Reason: fmt.Sprintf("rank %d is held by more than one row", r.savedRank)}
		default:
			return &InvariantError{Scope: scope.clone(), Reason: fmt.Sprintf("rank %d is missing", want)}
		}
	}
	return nil
}
