// Package sortable maintains a dense, gap-free integer ordering ("rank") over
// the rows of a table, optionally partitioned by scope columns.
//
// A Ledger is instantiated once per table on top of a Store. Rank changes that
// affect other rows are applied with single bulk UPDATE statements inside one
// transaction, and the identity cache of the affected scope is invalidated once
// the transaction commits.
//
//	st := sqlstore.New[int64](drv, def)
//	l := sortable.New(st, nil)
//
//	p, err := l.InsertAtRank(ctx, sortable.NewRecord[int64](0), 2) // tentative, nothing shifts
//	rec, err := l.Commit(ctx, p)                                   // shift + insert, one tx
//	_, err = l.MoveToRank(ctx, rec, 4)
package sortable

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Observer receives the outcome of every transactional ledger operation.
type Observer interface {
	Observe(ctx context.Context, op string, d time.Duration, err error)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, op string, d time.Duration, err error)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, op string, d time.Duration, err error) {
	f(ctx, op, d, err)
}

// Option configures a Ledger.
type Option func(*options)

type options struct {
	log   *slog.Logger
	obs   Observer
	label string
}

// WithLogger sets the logger used for shift and invalidation diagnostics.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithObserver registers an observer for ledger operations.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.obs = obs
	}
}

// WithLabel sets the name used for the table in errors and logs.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// Ledger maintains the rank invariant of one table.
type Ledger[K comparable] struct {
	store Store[K]
	cache IdentityCache[K]
	log   *slog.Logger
	obs   Observer
	label string
}

// New returns a Ledger over store. A nil cache selects a process-local IdentityMap.
func New[K comparable](store Store[K], cache IdentityCache[K], opts ...Option) *Ledger[K] {
	o := options{label: "row"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	if cache == nil {
		cache = NewIdentityMap[K]()
	}
	return &Ledger[K]{
		store: store,
		cache: cache,
		log:   o.log.With("table", o.label),
		obs:   o.obs,
		label: o.label,
	}
}

// Store returns the underlying row store.
func (l *Ledger[K]) Store() Store[K] { return l.store }

// Cache returns the identity cache.
func (l *Ledger[K]) Cache() IdentityCache[K] { return l.cache }

// operation tracks the side effects of one transactional ledger call.
type operation[K comparable] struct {
	name     string
	saved    []memento[K]
	dirty    []Scope
	onCommit []func(context.Context)
}

// touch snapshots the ranking state of recs so it can be restored on failure.
func (o *operation[K]) touch(recs ...*Record[K]) {
	for _, r := range recs {
		seen := false
		for _, m := range o.saved {
			if m.rec == r {
				seen = true
				break
			}
		}
		if !seen {
			o.saved = append(o.saved, r.memento())
		}
	}
}

// invalidate schedules a cache invalidation of scope after commit.
func (o *operation[K]) invalidate(scope Scope) {
	for _, s := range o.dirty {
		if s.Equal(scope) {
			return
		}
	}
	o.dirty = append(o.dirty, scope.clone())
}

func (o *operation[K]) then(fn func(context.Context)) {
	o.onCommit = append(o.onCommit, fn)
}

// run executes fn in one store transaction. On failure every touched record is
// restored; on success the dirty scopes are invalidated before the commit
// callbacks run, so records cached by the callbacks carry the new version.
func (l *Ledger[K]) run(ctx context.Context, name string, fn func(context.Context, *operation[K]) error) (err error) {
	start := time.Now()
	o := &operation[K]{name: name}
	defer func() {
		if l.obs != nil {
			l.obs.Observe(ctx, name, time.Since(start), err)
		}
	}()
	err = l.store.InTx(ctx, func(ctx context.Context) error {
		return fn(ctx, o)
	})
	if err != nil {
		for i := len(o.saved) - 1; i >= 0; i-- {
			o.saved[i].restore()
		}
		return err
	}
	var errs []error
	for _, s := range o.dirty {
		if ierr := l.cache.InvalidateScope(ctx, s); ierr != nil {
			l.log.ErrorContext(ctx, "sortable: cache invalidation failed", "op", name, "scope", s.String(), "error", ierr)
			errs = append(errs, fmt.Errorf("sortable: %s: invalidate scope %s: %w", name, s, ierr))
		} else {
			l.log.DebugContext(ctx, "sortable: invalidated scope", "op", name, "scope", s.String())
		}
	}
	for _, cb := range o.onCommit {
		cb(ctx)
	}
	return NewAggregateError(errs...)
}

// shift runs a bulk rank shift and schedules the invalidation of its scope.
func (l *Ledger[K]) shift(ctx context.Context, o *operation[K], scope Scope, r Range, delta int) error {
	n, err := l.store.Shift(ctx, scope, r, delta)
	if err != nil {
		return err
	}
	l.log.DebugContext(ctx, "sortable: shifted ranks",
		"op", o.name, "scope", scope.String(), "from", r.From, "to", r.To, "delta", delta, "rows", n)
	o.invalidate(scope)
	return nil
}

// checkScope verifies that a scope carries one value per scope column.
func (l *Ledger[K]) checkScope(op string, scope Scope) error {
	if want := len(l.store.ScopeColumns()); len(scope) != want {
		return NewInvalidStateError(op, fmt.Sprintf("scope requires %d value(s), got %d", want, len(scope)))
	}
	return nil
}

// checkInList verifies that rec is a persisted row occupying a rank with no
// unsaved ranking change.
func (l *Ledger[K]) checkInList(op string, rec *Record[K]) error {
	switch {
	case rec == nil:
		return NewInvalidStateError(op, "nil record")
	case rec.IsNew():
		return NewInvalidStateError(op, "object must be already in the sortable list")
	case rec.IsDeleted():
		return NewInvalidStateError(op, "object was deleted")
	case !rec.HasRank():
		return NewInvalidStateError(op, "object was removed from the sortable list")
	case rec.scopeChanged():
		return NewInvalidStateError(op, "object has an unsaved scope change")
	}
	return l.checkScope(op, rec.scope)
}

// refresh reloads the stored rank and scope of rec inside the current
// transaction. Unsaved in-memory intents (a pending removal or scope change)
// are preserved.
func (l *Ledger[K]) refresh(ctx context.Context, o *operation[K], rec *Record[K]) error {
	cur, err := l.store.Find(ctx, rec.ID)
	if err != nil {
		return err
	}
	o.touch(rec)
	removed := rec.removalPending()
	rescoped := rec.scopeChanged()
	rec.savedRank, rec.savedScope = cur.savedRank, cur.savedScope.clone()
	if !removed {
		rec.rank = cur.rank
	}
	if !rescoped {
		rec.scope = cur.scope.clone()
	}
	return nil
}

// adopt returns the cached instance of a freshly loaded row when one is current,
// otherwise caches and returns the loaded row.
func (l *Ledger[K]) adopt(ctx context.Context, fresh *Record[K]) *Record[K] {
	if fresh == nil {
		return nil
	}
	if cached, ok := l.cache.Get(ctx, fresh.ID); ok {
		return cached
	}
	l.cache.Put(ctx, fresh)
	return fresh
}
