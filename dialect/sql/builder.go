package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/sortable/dialect"
)

// Querier wraps the Query method of the statement builders.
type Querier interface {
	// Query returns the SQL text and its arguments.
	Query() (string, []any)
}

// Builder is the base of every statement: it accumulates SQL text and
// arguments, quoting identifiers and numbering placeholders for its dialect.
type Builder struct {
	sb      strings.Builder
	args    []any
	dialect string
}

// Dialect returns a DialectBuilder producing statements for the given dialect.
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{dialect: name}
}

// DialectBuilder creates statement builders bound to a dialect.
type DialectBuilder struct {
	dialect string
}

// Raw returns an empty Builder for hand written statements such as DDL.
func (d *DialectBuilder) Raw() *Builder {
	return &Builder{dialect: d.dialect}
}

// WriteString appends raw SQL.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Ident appends a quoted identifier. Dotted names are quoted per segment.
func (b *Builder) Ident(name string) *Builder {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if i > 0 {
			b.sb.WriteByte('.')
		}
		b.sb.WriteString(b.quote(p))
	}
	return b
}

// IdentComma appends a comma separated list of quoted identifiers.
func (b *Builder) IdentComma(names ...string) *Builder {
	for i, n := range names {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.Ident(n)
	}
	return b
}

// Arg appends a placeholder for v.
func (b *Builder) Arg(v any) *Builder {
	b.args = append(b.args, v)
	if b.postgres() {
		b.sb.WriteString("$" + strconv.Itoa(len(b.args)))
	} else {
		b.sb.WriteByte('?')
	}
	return b
}

// Args appends a comma separated list of placeholders.
func (b *Builder) Args(vs ...any) *Builder {
	for i, v := range vs {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.Arg(v)
	}
	return b
}

// String returns the SQL text written so far.
func (b *Builder) String() string { return b.sb.String() }

// Query implements Querier.
func (b *Builder) Query() (string, []any) { return b.sb.String(), b.args }

func (b *Builder) postgres() bool { return b.dialect == dialect.Postgres }

func (b *Builder) quote(ident string) string {
	if b.dialect == dialect.MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (b *Builder) reset() {
	b.sb.Reset()
	b.args = nil
}

func (b *Builder) writeWhere(p Predicate) {
	if p == nil {
		return
	}
	b.WriteString(" WHERE ")
	p(b)
}

// Selector is a SELECT statement builder.
type Selector struct {
	Builder
	columns  []string
	max      string
	distinct bool
	table    string
	where    Predicate
	order    []string
	limit    int
}

// Select returns a Selector for the given columns.
func (d *DialectBuilder) Select(columns ...string) *Selector {
	return &Selector{Builder: Builder{dialect: d.dialect}, columns: columns}
}

// SelectMax returns a Selector for MAX(column).
func (d *DialectBuilder) SelectMax(column string) *Selector {
	return &Selector{Builder: Builder{dialect: d.dialect}, max: column}
}

// Distinct adds the DISTINCT keyword.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// From sets the source table.
func (s *Selector) From(table string) *Selector {
	s.table = table
	return s
}

// Where sets the WHERE predicate, combining with AND on repeated calls.
func (s *Selector) Where(p Predicate) *Selector {
	s.where = And(s.where, p)
	return s
}

// OrderBy appends ascending ORDER BY columns.
func (s *Selector) OrderBy(columns ...string) *Selector {
	s.order = append(s.order, columns...)
	return s
}

// Limit sets the LIMIT clause.
func (s *Selector) Limit(n int) *Selector {
	s.limit = n
	return s
}

// Query implements Querier.
func (s *Selector) Query() (string, []any) {
	s.reset()
	s.WriteString("SELECT ")
	if s.distinct {
		s.WriteString("DISTINCT ")
	}
	if s.max != "" {
		s.WriteString("MAX(").Ident(s.max).WriteString(")")
	} else {
		s.IdentComma(s.columns...)
	}
	s.WriteString(" FROM ").Ident(s.table)
	s.Builder.writeWhere(s.where)
	if len(s.order) > 0 {
		s.WriteString(" ORDER BY ").IdentComma(s.order...)
	}
	if s.limit > 0 {
		s.WriteString(" LIMIT " + strconv.Itoa(s.limit))
	}
	return s.Builder.Query()
}

// UpdateBuilder is an UPDATE statement builder.
type UpdateBuilder struct {
	Builder
	table string
	sets  []func(*Builder)
	where Predicate
}

// Update returns an UpdateBuilder for table.
func (d *DialectBuilder) Update(table string) *UpdateBuilder {
	return &UpdateBuilder{Builder: Builder{dialect: d.dialect}, table: table}
}

// Set assigns v to column.
func (u *UpdateBuilder) Set(column string, v any) *UpdateBuilder {
	u.sets = append(u.sets, func(b *Builder) {
		b.Ident(column).WriteString(" = ").Arg(v)
	})
	return u
}

// Add increments column by delta.
func (u *UpdateBuilder) Add(column string, delta int) *UpdateBuilder {
	u.sets = append(u.sets, func(b *Builder) {
		b.Ident(column).WriteString(" = ").Ident(column).WriteString(" + ").Arg(delta)
	})
	return u
}

// Where sets the WHERE predicate, combining with AND on repeated calls.
func (u *UpdateBuilder) Where(p Predicate) *UpdateBuilder {
	u.where = And(u.where, p)
	return u
}

// Empty reports whether no column is assigned.
func (u *UpdateBuilder) Empty() bool { return len(u.sets) == 0 }

// Query implements Querier.
func (u *UpdateBuilder) Query() (string, []any) {
	u.reset()
	u.WriteString("UPDATE ").Ident(u.table).WriteString(" SET ")
	for i, set := range u.sets {
		if i > 0 {
			u.WriteString(", ")
		}
		set(&u.Builder)
	}
	u.Builder.writeWhere(u.where)
	return u.Builder.Query()
}

// InsertBuilder is an INSERT statement builder.
type InsertBuilder struct {
	Builder
	table     string
	columns   []string
	values    []any
	returning string
}

// Insert returns an InsertBuilder for table.
func (d *DialectBuilder) Insert(table string) *InsertBuilder {
	return &InsertBuilder{Builder: Builder{dialect: d.dialect}, table: table}
}

// Set adds a column and its value.
func (i *InsertBuilder) Set(column string, v any) *InsertBuilder {
	i.columns = append(i.columns, column)
	i.values = append(i.values, v)
	return i
}

// Returning adds a RETURNING clause.
func (i *InsertBuilder) Returning(column string) *InsertBuilder {
	i.returning = column
	return i
}

// Query implements Querier.
func (i *InsertBuilder) Query() (string, []any) {
	i.reset()
	i.WriteString("INSERT INTO ").Ident(i.table)
	if len(i.columns) == 0 {
		i.WriteString(" DEFAULT VALUES")
	} else {
		i.WriteString(" (").IdentComma(i.columns...).WriteString(") VALUES (").Args(i.values...).WriteString(")")
	}
	if i.returning != "" {
		i.WriteString(" RETURNING ").Ident(i.returning)
	}
	return i.Builder.Query()
}

// DeleteBuilder is a DELETE statement builder.
type DeleteBuilder struct {
	Builder
	table string
	where Predicate
}

// Delete returns a DeleteBuilder for table.
func (d *DialectBuilder) Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{Builder: Builder{dialect: d.dialect}, table: table}
}

// Where sets the WHERE predicate, combining with AND on repeated calls.
func (d *DeleteBuilder) Where(p Predicate) *DeleteBuilder {
	d.where = And(d.where, p)
	return d
}

// Query implements Querier.
func (d *DeleteBuilder) Query() (string, []any) {
	d.reset()
	d.WriteString("DELETE FROM ").Ident(d.table)
	d.Builder.writeWhere(d.where)
	return d.Builder.Query()
}
