// Package memstore implements the sortable row store in memory.
//
// A transaction holds the store lock until it ends and restores a snapshot
// of the table when it fails, so concurrent ledger operations serialize the
// way they do on a database. It backs tests and single process use.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/syssam/sortable"
)

type row struct {
	rank   int
	scope  sortable.Scope
	fields map[string]any
	seq    uint64
}

func (r *row) clone() *row {
	c := *r
	c.scope = append(sortable.Scope(nil), r.scope...)
	c.fields = maps.Clone(r.fields)
	return &c
}

// Store is an in-memory sortable.Store.
type Store[K comparable] struct {
	mu       sync.Mutex
	label    string
	scopeCol []string
	rows     map[K]*row
	seq      uint64
	nextID   int64
	failures map[string]error
	calls    map[string]int
}

// Option configures a Store.
type Option func(*options)

type options struct {
	label string
}

// WithLabel sets the name used in not found errors. Defaults to "row".
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// New returns an empty Store partitioned by the given scope columns.
func New[K comparable](scopeColumns []string, opts ...Option) *Store[K] {
	o := options{label: "row"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[K]{
		label:    o.label,
		scopeCol: slices.Clone(scopeColumns),
		rows:     make(map[K]*row),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

var _ sortable.Store[int] = (*Store[int])(nil)

type txKey[K comparable] struct{ s *Store[K] }

type snapshot[K comparable] struct {
	rows   map[K]*row
	seq    uint64
	nextID int64
}

func (s *Store[K]) inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey[K]{s}).(bool)
	return ok
}

// lock acquires the store lock unless ctx belongs to a running transaction,
// which already holds it.
func (s *Store[K]) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// FailOn makes every later call of op fail with err, until reset with a nil err.
// Ops are named like the storage errors they produce: "max rank", "find by
// rank", "find", "list", "scopes", "shift", "insert", "update", "delete",
// "delete scope" and "commit".
func (s *Store[K]) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls returns the number of times op was called.
func (s *Store[K]) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Len returns the number of stored rows.
func (s *Store[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *Store[K]) enter(op string) error {
	s.calls[op]++
	return sortable.NewStorageError(op, s.failures[op])
}

// ScopeColumns implements sortable.Store.
func (s *Store[K]) ScopeColumns() []string { return s.scopeCol }

// InTx implements sortable.Store. The table is restored when fn fails or
// panics; the panic is propagated.
func (s *Store[K]) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	defer func() {
		if v := recover(); v != nil {
			s.restore(snap)
			panic(v)
		}
	}()
	if err := fn(context.WithValue(ctx, txKey[K]{s}, true)); err != nil {
		s.restore(snap)
		return err
	}
	if err := s.enter("commit"); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store[K]) snapshot() snapshot[K] {
	rows := make(map[K]*row, len(s.rows))
	for id, r := range s.rows {
		rows[id] = r.clone()
	}
	return snapshot[K]{rows: rows, seq: s.seq, nextID: s.nextID}
}

func (s *Store[K]) restore(snap snapshot[K]) {
	s.rows, s.seq, s.nextID = snap.rows, snap.seq, snap.nextID
}

func (s *Store[K]) hydrate(id K, r *row) *sortable.Record[K] {
	return sortable.Hydrate(id, r.rank, r.scope, maps.Clone(r.fields))
}

// ranked returns the ranked rows of scope ordered by rank, then insertion order.
func (s *Store[K]) ranked(scope sortable.Scope) []K {
	var ids []K
	for id, r := range s.rows {
		if r.rank > 0 && r.scope.Equal(scope) {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b K) int {
		ra, rb := s.rows[a], s.rows[b]
		if ra.rank != rb.rank {
			return ra.rank - rb.rank
		}
		switch {
		case ra.seq < rb.seq:
			return -1
		case ra.seq > rb.seq:
			return 1
		}
		return 0
	})
	return ids
}

// MaxRank implements sortable.Store.
func (s *Store[K]) MaxRank(ctx context.Context, scope sortable.Scope) (int, error) {
	defer s.lock(ctx)()
	if err := s.enter("max rank"); err != nil {
		return 0, err
	}
	maxRank := 0
	for _, r := range s.rows {
		if r.scope.Equal(scope) && r.rank > maxRank {
			maxRank = r.rank
		}
	}
	return maxRank, nil
}

// FindByRank implements sortable.Store.
func (s *Store[K]) FindByRank(ctx context.Context, scope sortable.Scope, rank int) (*sortable.Record[K], error) {
	defer s.lock(ctx)()
	if err := s.enter("find by rank"); err != nil {
		return nil, err
	}
	for _, id := range s.ranked(scope) {
		if r := s.rows[id]; r.rank == rank {
			return s.hydrate(id, r), nil
		}
	}
	return nil, nil
}

// Find implements sortable.Store.
func (s *Store[K]) Find(ctx context.Context, id K) (*sortable.Record[K], error) {
	defer s.lock(ctx)()
	if err := s.enter("find"); err != nil {
		return nil, err
	}
	r, ok := s.rows[id]
	if !ok {
		return nil, sortable.NewNotFoundError(s.label, id)
	}
	return s.hydrate(id, r), nil
}

// List implements sortable.Store.
func (s *Store[K]) List(ctx context.Context, scope sortable.Scope) ([]*sortable.Record[K], error) {
	defer s.lock(ctx)()
	if err := s.enter("list"); err != nil {
		return nil, err
	}
	ids := s.ranked(scope)
	recs := make([]*sortable.Record[K], len(ids))
	for i, id := range ids {
		recs[i] = s.hydrate(id, s.rows[id])
	}
	return recs, nil
}

// Scopes implements sortable.Store. An unscoped table has the single empty scope.
func (s *Store[K]) Scopes(ctx context.Context) ([]sortable.Scope, error) {
	defer s.lock(ctx)()
	if err := s.enter("scopes"); err != nil {
		return nil, err
	}
	if len(s.scopeCol) == 0 {
		return []sortable.Scope{{}}, nil
	}
	seen := make(map[string]sortable.Scope)
	for _, r := range s.rows {
		if r.rank > 0 {
			seen[r.scope.Key()] = r.scope
		}
	}
	keys := slices.Sorted(maps.Keys(seen))
	scopes := make([]sortable.Scope, len(keys))
	for i, k := range keys {
		scopes[i] = append(sortable.Scope(nil), seen[k]...)
	}
	return scopes, nil
}

// Shift implements sortable.Store.
func (s *Store[K]) Shift(ctx context.Context, scope sortable.Scope, rg sortable.Range, delta int) (int64, error) {
	defer s.lock(ctx)()
	if err := s.enter("shift"); err != nil {
		return 0, err
	}
	var n int64
	for _, r := range s.rows {
		if r.rank > 0 && r.scope.Equal(scope) && rg.Contains(r.rank) {
			r.rank += delta
			n++
		}
	}
	return n, nil
}

// Insert implements sortable.Store. A zero integer key is generated.
func (s *Store[K]) Insert(ctx context.Context, rec *sortable.Record[K]) error {
	defer s.lock(ctx)()
	if err := s.enter("insert"); err != nil {
		return err
	}
	if sortable.IsZeroID(rec) {
		s.nextID++
		if !sortable.SetGeneratedID(rec, s.nextID) {
			return sortable.NewStorageError("insert", fmt.Errorf("key type %T cannot hold generated id", rec.ID))
		}
	}
	if _, ok := s.rows[rec.ID]; ok {
		return sortable.NewStorageError("insert", fmt.Errorf("duplicate key %v", rec.ID))
	}
	if id, ok := any(rec.ID).(int64); ok && id > s.nextID {
		s.nextID = id
	}
	s.seq++
	s.rows[rec.ID] = &row{
		rank:   rec.Rank(),
		scope:  rec.Scope(),
		fields: maps.Clone(rec.Fields),
		seq:    s.seq,
	}
	return nil
}

// Update implements sortable.Store.
func (s *Store[K]) Update(ctx context.Context, rec *sortable.Record[K]) error {
	defer s.lock(ctx)()
	if err := s.enter("update"); err != nil {
		return err
	}
	r, ok := s.rows[rec.ID]
	if !ok {
		return sortable.NewNotFoundError(s.label, rec.ID)
	}
	r.rank = rec.Rank()
	r.scope = rec.Scope()
	r.fields = maps.Clone(rec.Fields)
	return nil
}

// Delete implements sortable.Store.
func (s *Store[K]) Delete(ctx context.Context, rec *sortable.Record[K]) error {
	defer s.lock(ctx)()
	if err := s.enter("delete"); err != nil {
		return err
	}
	if _, ok := s.rows[rec.ID]; !ok {
		return sortable.NewNotFoundError(s.label, rec.ID)
	}
	delete(s.rows, rec.ID)
	return nil
}

// DeleteScope implements sortable.Store.
func (s *Store[K]) DeleteScope(ctx context.Context, scope sortable.Scope) (int64, error) {
	defer s.lock(ctx)()
	if err := s.enter("delete scope"); err != nil {
		return 0, err
	}
	var n int64
	for id, r := range s.rows {
		if r.scope.Equal(scope) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

// ErrInjected is a ready-made error for FailOn.
var ErrInjected = errors.New("memstore: injected failure")
