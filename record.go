package sortable

import (
	"fmt"
	"strings"
)

// Scope holds the values of a table's scope columns, in column order.
// An unscoped table uses an empty Scope. Nil values match NULL.
type Scope []any

// Key returns a canonical string for the scope, used for cache partitioning.
// Values are compared by their printed form, so int(1) and int64(1) share a key.
func (s Scope) Key() string {
	if len(s) == 0 {
		return ""
	}
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprintf("%v", deref(v))
	}
	return strings.Join(parts, "\x1f")
}

// Equal reports whether both scopes select the same partition.
func (s Scope) Equal(o Scope) bool {
	return len(s) == len(o) && s.Key() == o.Key()
}

// String implements fmt.Stringer.
func (s Scope) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprintf("%v", deref(v))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func deref(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func (s Scope) clone() Scope {
	if s == nil {
		return nil
	}
	return append(Scope(nil), s...)
}

// state is the persistence lifecycle of a record.
type state uint8

const (
	stateNew state = iota
	statePersisted
	stateDeleted
)

// Record is a row participating in a sortable list.
//
// The rank of a record is owned by the Ledger: application code reads it through
// Rank and HasRank and changes it only through ledger operations.
type Record[K comparable] struct {
	// ID is the primary key. It must not change once the record is persisted.
	ID K
	// Fields holds the non-ranking columns of the row.
	Fields map[string]any

	rank  int
	scope Scope
	state state

	// Values last written to the store.
	savedRank  int
	savedScope Scope

	pending *Pending[K]
}

// NewRecord returns a new, unsaved record in the given scope.
func NewRecord[K comparable](id K, scope ...any) *Record[K] {
	return &Record[K]{
		ID:     id,
		Fields: make(map[string]any),
		scope:  Scope(scope).clone(),
	}
}

// Hydrate builds a persisted record from stored values. A rank of 0 means NULL.
// Stores call it when loading rows.
func Hydrate[K comparable](id K, rank int, scope Scope, fields map[string]any) *Record[K] {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &Record[K]{
		ID:         id,
		Fields:     fields,
		rank:       rank,
		scope:      scope.clone(),
		state:      statePersisted,
		savedRank:  rank,
		savedScope: scope.clone(),
	}
}

// Rank returns the rank of the record, or 0 when it has none.
func (r *Record[K]) Rank() int { return r.rank }

// HasRank reports whether the record holds a rank (tentative or persisted).
func (r *Record[K]) HasRank() bool { return r.rank > 0 }

// Scope returns a copy of the record's scope values.
func (r *Record[K]) Scope() Scope { return r.scope.clone() }

// SetScope changes the scope of the record. For a persisted record the move
// to the new scope takes effect on the next Save.
func (r *Record[K]) SetScope(values ...any) *Record[K] {
	r.scope = Scope(values).clone()
	return r
}

// IsNew reports whether the record was never persisted.
func (r *Record[K]) IsNew() bool { return r.state == stateNew }

// IsDeleted reports whether the record was deleted through the ledger.
func (r *Record[K]) IsDeleted() bool { return r.state == stateDeleted }

// Pending returns the staged insert of the record, if any.
func (r *Record[K]) Pending() *Pending[K] { return r.pending }

// Get returns a field value.
func (r *Record[K]) Get(name string) any { return r.Fields[name] }

// Set assigns a field value and returns the record for chaining.
func (r *Record[K]) Set(name string, v any) *Record[K] {
	if r.Fields == nil {
		r.Fields = make(map[string]any)
	}
	r.Fields[name] = v
	return r
}

// String implements fmt.Stringer.
func (r *Record[K]) String() string {
	return fmt.Sprintf("Record(id=%v, rank=%d, scope=%s)", r.ID, r.rank, r.scope)
}

// inList reports whether the persisted row currently occupies a rank.
func (r *Record[K]) inList() bool { return r.state == statePersisted && r.savedRank > 0 }

// removalPending reports whether RemoveFromList was called and not yet saved.
func (r *Record[K]) removalPending() bool {
	return r.state == statePersisted && r.savedRank > 0 && r.rank == 0
}

// scopeChanged reports whether the scope differs from the stored one.
func (r *Record[K]) scopeChanged() bool {
	return r.state == statePersisted && !r.scope.Equal(r.savedScope)
}

// markSaved records the current rank and scope as persisted.
func (r *Record[K]) markSaved() {
	r.state = statePersisted
	r.savedRank = r.rank
	r.savedScope = r.scope.clone()
	r.pending = nil
}

// memento captures the ranking state so a failed operation can restore it.
type memento[K comparable] struct {
	rec        *Record[K]
	id         K
	rank       int
	scope      Scope
	savedRank  int
	savedScope Scope
}

func (r *Record[K]) memento() memento[K] {
	return memento[K]{
		rec:        r,
		id:         r.ID,
		rank:       r.rank,
		scope:      r.scope.clone(),
		savedRank:  r.savedRank,
		savedScope: r.savedScope.clone(),
	}
}

func (m memento[K]) restore() {
	m.rec.ID = m.id
	m.rec.rank = m.rank
	m.rec.scope = m.scope
	m.rec.savedRank = m.savedRank
	m.rec.savedScope = m.savedScope
}

// SetGeneratedID assigns a store-generated integer key to a record whose key
// type is an integer. It reports whether the key type accepted the value.
func SetGeneratedID[K comparable](r *Record[K], id int64) bool {
	switch p := any(&r.ID).(type) {
	case *int64:
		*p = id
	case *int:
		*p = int(id)
	case *int32:
		*p = int32(id)
	case *uint64:
		*p = uint64(id)
	default:
		return false
	}
	return true
}

// IsZeroID reports whether the record's key is the zero value of its type.
func IsZeroID[K comparable](r *Record[K]) bool {
	var zero K
	return r.ID == zero
}

// Pending is a staged insert: a record holding a tentative rank that has not
// shifted any other row yet. Commit it with Ledger.Commit or Ledger.Save.
type Pending[K comparable] struct {
	rec  *Record[K]
	rank int
}

// Record returns the staged record.
func (p *Pending[K]) Record() *Record[K] { return p.rec }

// Rank returns the tentative rank.
func (p *Pending[K]) Rank() int { return p.rank }
