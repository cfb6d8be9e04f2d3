package sortable

import "context"

// Range selects ranks From..To inclusive. A zero To leaves the range open-ended.
type Range struct {
	From int
	To   int
}

// Contains reports whether rank lies in the range.
func (r Range) Contains(rank int) bool {
	return rank >= r.From && (r.To == 0 || rank <= r.To)
}

// Store is the row store a Ledger runs against. Implementations must run every
// method called with a context obtained inside InTx on that transaction.
//
// Errors returned by a store are expected to be *StorageError values; the ledger
// passes them through unchanged.
type Store[K comparable] interface {
	// ScopeColumns returns the names of the scope columns, empty for unscoped tables.
	ScopeColumns() []string

	// InTx runs fn in a transaction. The transaction commits when fn returns nil
	// and rolls back otherwise. A context that already carries a transaction
	// joins it.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	// MaxRank returns the highest rank in scope, 0 if the scope is empty.
	MaxRank(ctx context.Context, scope Scope) (int, error)
	// FindByRank returns the row at rank in scope, or nil if there is none.
	FindByRank(ctx context.Context, scope Scope, rank int) (*Record[K], error)
	// Find returns the row with the given key or a *NotFoundError.
	Find(ctx context.Context, id K) (*Record[K], error)
	// List returns the ranked rows of scope ordered by rank.
	List(ctx context.Context, scope Scope) ([]*Record[K], error)
	// Scopes returns every distinct scope present in the table.
	Scopes(ctx context.Context) ([]Scope, error)

	// Shift adds delta to the rank of every row of scope whose rank lies in r,
	// in a single statement. It returns the number of shifted rows.
	Shift(ctx context.Context, scope Scope, r Range, delta int) (int64, error)

	Insert(ctx context.Context, rec *Record[K]) error
	Update(ctx context.Context, rec *Record[K]) error
	Delete(ctx context.Context, rec *Record[K]) error
	// DeleteScope removes every row of scope and returns the number of deleted rows.
	DeleteScope(ctx context.Context, scope Scope) (int64, error)
}
