// Package sqlstore implements the sortable row store on a SQL database.
//
// Every statement runs on the transaction carried by the context (see WithTx),
// or directly on the driver when there is none. Bulk shifts are a single
// UPDATE statement.
package sqlstore

import (
	"context"
	"fmt"

	"github.com/syssam/sortable"
	"github.com/syssam/sortable/dialect"
	"github.com/syssam/sortable/dialect/sql"
	"github.com/syssam/sortable/schema"
)

// Table maps a sortable table to its columns.
type Table struct {
	Name   string
	ID     string
	Rank   string
	Scope  []string
	Fields []string
	// GeneratedID is set when the database assigns the key on insert.
	GeneratedID bool
}

// TableOf returns the column mapping of a behavior definition.
func TableOf(s *schema.Sortable) Table {
	return Table{
		Name:        s.Table,
		ID:          s.IDColumn,
		Rank:        s.RankColumn,
		Scope:       append([]string(nil), s.ScopeColumns...),
		Fields:      s.FieldNames(),
		GeneratedID: s.IDType == schema.IDInt,
	}
}

func (t Table) columns() []string {
	cols := append([]string{t.ID, t.Rank}, t.Scope...)
	return append(cols, t.Fields...)
}

// Store is a sortable.Store over a dialect.Driver.
type Store[K comparable] struct {
	drv   dialect.Driver
	table Table
	rank  sql.IntField
}

// New returns a Store for table on drv.
func New[K comparable](drv dialect.Driver, table Table) *Store[K] {
	return &Store[K]{drv: drv, table: table, rank: sql.IntField(table.Rank)}
}

var _ sortable.Store[int64] = (*Store[int64])(nil)

// Driver returns the underlying driver.
func (s *Store[K]) Driver() dialect.Driver { return s.drv }

// Table returns the column mapping.
func (s *Store[K]) Table() Table { return s.table }

// ScopeColumns implements sortable.Store.
func (s *Store[K]) ScopeColumns() []string { return s.table.Scope }

// InTx implements sortable.Store.
func (s *Store[K]) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return RunTx(ctx, s.drv, fn)
}

func (s *Store[K]) conn(ctx context.Context) dialect.ExecQuerier {
	if tx := TxFrom(ctx, s.drv); tx != nil {
		return tx
	}
	return s.drv
}

func (s *Store[K]) builder() *sql.DialectBuilder {
	return sql.Dialect(s.drv.Dialect())
}

func (s *Store[K]) inScope(scope sortable.Scope) sql.Predicate {
	return sql.FieldsEQ(s.table.Scope, scope)
}

// MaxRank implements sortable.Store.
func (s *Store[K]) MaxRank(ctx context.Context, scope sortable.Scope) (int, error) {
	query, args := s.builder().SelectMax(s.table.Rank).
		From(s.table.Name).
		Where(s.inScope(scope)).
		Query()
	n, err := sql.QueryInt(ctx, s.conn(ctx), query, args)
	if err != nil {
		return 0, sortable.NewStorageError("max rank", err)
	}
	return n, nil
}

// FindByRank implements sortable.Store.
func (s *Store[K]) FindByRank(ctx context.Context, scope sortable.Scope, rank int) (*sortable.Record[K], error) {
	query, args := s.builder().Select(s.table.columns()...).
		From(s.table.Name).
		Where(s.rank.EQ(rank)).
		Where(s.inScope(scope)).
		Limit(1).
		Query()
	recs, err := s.query(ctx, query, args)
	if err != nil {
		return nil, sortable.NewStorageError("find by rank", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

// Find implements sortable.Store.
func (s *Store[K]) Find(ctx context.Context, id K) (*sortable.Record[K], error) {
	query, args := s.builder().Select(s.table.columns()...).
		From(s.table.Name).
		Where(sql.FieldEQ(s.table.ID, id)).
		Query()
	recs, err := s.query(ctx, query, args)
	if err != nil {
		return nil, sortable.NewStorageError("find", err)
	}
	if len(recs) == 0 {
		return nil, sortable.NewNotFoundError(s.table.Name, id)
	}
	return recs[0], nil
}

// List implements sortable.Store. Ties are broken by key.
func (s *Store[K]) List(ctx context.Context, scope sortable.Scope) ([]*sortable.Record[K], error) {
	query, args := s.builder().Select(s.table.columns()...).
		From(s.table.Name).
		Where(s.rank.NotNull()).
		Where(s.inScope(scope)).
		OrderBy(s.table.Rank, s.table.ID).
		Query()
	recs, err := s.query(ctx, query, args)
	if err != nil {
		return nil, sortable.NewStorageError("list", err)
	}
	return recs, nil
}

// Scopes implements sortable.Store. An unscoped table has the single empty scope.
func (s *Store[K]) Scopes(ctx context.Context) ([]sortable.Scope, error) {
	if len(s.table.Scope) == 0 {
		return []sortable.Scope{{}}, nil
	}
	query, args := s.builder().Select(s.table.Scope...).
		Distinct().
		From(s.table.Name).
		Where(s.rank.NotNull()).
		OrderBy(s.table.Scope...).
		Query()
	rows := &sql.Rows{}
	if err := s.conn(ctx).Query(ctx, query, args, rows); err != nil {
		return nil, sortable.NewStorageError("scopes", err)
	}
	defer rows.Close()
	var scopes []sortable.Scope
	for rows.Next() {
		scope := make(sortable.Scope, len(s.table.Scope))
		dest := make([]any, len(scope))
		for i := range scope {
			dest[i] = &scope[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, sortable.NewStorageError("scopes", err)
		}
		normalize(scope)
		scopes = append(scopes, scope)
	}
	if err := rows.Err(); err != nil {
		return nil, sortable.NewStorageError("scopes", err)
	}
	return scopes, nil
}

// Shift implements sortable.Store with a single UPDATE statement.
func (s *Store[K]) Shift(ctx context.Context, scope sortable.Scope, r sortable.Range, delta int) (int64, error) {
	query, args := s.builder().Update(s.table.Name).
		Add(s.table.Rank, delta).
		Where(s.inScope(scope)).
		Where(s.rank.Range(r.From, r.To)).
		Query()
	n, err := sql.RowsAffected(ctx, s.conn(ctx), query, args)
	if err != nil {
		return 0, sortable.NewStorageError("shift", err)
	}
	return n, nil
}

// Insert implements sortable.Store. A zero key of a table with generated keys
// is assigned by the database and written back to rec.
func (s *Store[K]) Insert(ctx context.Context, rec *sortable.Record[K]) error {
	b := s.builder().Insert(s.table.Name)
	generate := s.table.GeneratedID && sortable.IsZeroID(rec)
	if !generate {
		b.Set(s.table.ID, rec.ID)
	}
	cols, vals := s.values(rec)
	for i, col := range cols {
		b.Set(col, vals[i])
	}
	if !generate {
		query, args := b.Query()
		return sortable.NewStorageError("insert", s.conn(ctx).Exec(ctx, query, args, nil))
	}
	var id int64
	if s.drv.Dialect() == dialect.Postgres {
		query, args := b.Returning(s.table.ID).Query()
		n, err := sql.QueryInt(ctx, s.conn(ctx), query, args)
		if err != nil {
			return sortable.NewStorageError("insert", err)
		}
		id = int64(n)
	} else {
		query, args := b.Query()
		var res sql.Result
		if err := s.conn(ctx).Exec(ctx, query, args, &res); err != nil {
			return sortable.NewStorageError("insert", err)
		}
		var err error
		if id, err = res.LastInsertId(); err != nil {
			return sortable.NewStorageError("insert", err)
		}
	}
	if !sortable.SetGeneratedID(rec, id) {
		return sortable.NewStorageError("insert", fmt.Errorf("key type %T cannot hold generated id %d", rec.ID, id))
	}
	return nil
}

// Update implements sortable.Store.
func (s *Store[K]) Update(ctx context.Context, rec *sortable.Record[K]) error {
	b := s.builder().Update(s.table.Name)
	cols, vals := s.values(rec)
	for i, col := range cols {
		b.Set(col, vals[i])
	}
	query, args := b.Where(sql.FieldEQ(s.table.ID, rec.ID)).Query()
	return sortable.NewStorageError("update", s.conn(ctx).Exec(ctx, query, args, nil))
}

// Delete implements sortable.Store.
func (s *Store[K]) Delete(ctx context.Context, rec *sortable.Record[K]) error {
	query, args := s.builder().Delete(s.table.Name).
		Where(sql.FieldEQ(s.table.ID, rec.ID)).
		Query()
	n, err := sql.RowsAffected(ctx, s.conn(ctx), query, args)
	if err != nil {
		return sortable.NewStorageError("delete", err)
	}
	if n == 0 {
		return sortable.NewNotFoundError(s.table.Name, rec.ID)
	}
	return nil
}

// DeleteScope implements sortable.Store.
func (s *Store[K]) DeleteScope(ctx context.Context, scope sortable.Scope) (int64, error) {
	query, args := s.builder().Delete(s.table.Name).
		Where(s.inScope(scope)).
		Query()
	n, err := sql.RowsAffected(ctx, s.conn(ctx), query, args)
	if err != nil {
		return 0, sortable.NewStorageError("delete scope", err)
	}
	return n, nil
}

// values returns the rank (nil for NULL), the scope and the known fields of rec.
func (s *Store[K]) values(rec *sortable.Record[K]) ([]string, []any) {
	cols := []string{s.table.Rank}
	vals := []any{nil}
	if rec.HasRank() {
		vals[0] = rec.Rank()
	}
	scope := rec.Scope()
	for i, col := range s.table.Scope {
		var v any
		if i < len(scope) {
			v = scope[i]
		}
		cols = append(cols, col)
		vals = append(vals, v)
	}
	for _, f := range s.table.Fields {
		if v, ok := rec.Fields[f]; ok {
			cols = append(cols, f)
			vals = append(vals, v)
		}
	}
	return cols, vals
}

// query runs a select of s.table.columns() and hydrates the rows.
func (s *Store[K]) query(ctx context.Context, query string, args []any) ([]*sortable.Record[K], error) {
	rows := &sql.Rows{}
	if err := s.conn(ctx).Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []*sortable.Record[K]
	for rows.Next() {
		var (
			id     K
			rank   sql.NullInt64
			scope  = make(sortable.Scope, len(s.table.Scope))
			fields = make([]any, len(s.table.Fields))
		)
		dest := make([]any, 0, 2+len(scope)+len(fields))
		dest = append(dest, &id, &rank)
		for i := range scope {
			dest = append(dest, &scope[i])
		}
		for i := range fields {
			dest = append(dest, &fields[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		normalize(scope)
		normalize(fields)
		m := make(map[string]any, len(fields))
		for i, f := range s.table.Fields {
			m[f] = fields[i]
		}
		recs = append(recs, sortable.Hydrate(id, int(rank.Int64), scope, m))
	}
	return recs, rows.Err()
}

// normalize turns driver []byte values into strings.
func normalize(vs []any) {
	for i, v := range vs {
		if b, ok := v.([]byte); ok {
			vs[i] = string(b)
		}
	}
}
