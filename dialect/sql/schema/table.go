// Package schema creates and validates the tables sortable rows live in.
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/sortable/dialect"
	"github.com/syssam/sortable/dialect/sql"
	"github.com/syssam/sortable/schema"
)

// ColumnType is the portable type of a column.
type ColumnType string

// Column types.
const (
	TypeInt    ColumnType = "int"
	TypeString ColumnType = "string"
	TypeText   ColumnType = "text"
	TypeFloat  ColumnType = "float"
	TypeBool   ColumnType = "bool"
)

// Column describes a table column.
type Column struct {
	Name      string
	Type      ColumnType
	Size      int  // max length of string columns
	Nullable  bool // NULL allowed
	Increment bool // auto increment primary key
}

// Index describes a table index.
type Index struct {
	Name    string
	Columns []*Column
	Unique  bool
}

// Table describes a sortable table.
type Table struct {
	Name       string
	Columns    []*Column
	PrimaryKey []*Column
	Indexes    []*Index
	// Rank is the rank column. Scope holds the scope columns in order.
	Rank  *Column
	Scope []*Column
}

// NewTable builds the table definition of a sortable behavior. The rank column
// is a nullable integer, and a plain (non unique) index covers the scope
// columns followed by the rank: rank shifts and swaps are transiently
// non-unique inside a transaction.
func NewTable(s *schema.Sortable) *Table {
	t := &Table{Name: s.Table}
	id := &Column{Name: s.IDColumn, Type: TypeInt, Increment: true}
	if s.IDType == schema.IDString {
		id = &Column{Name: s.IDColumn, Type: TypeString, Size: 36}
	}
	t.Columns = append(t.Columns, id)
	t.PrimaryKey = []*Column{id}
	t.Rank = &Column{Name: s.RankColumn, Type: TypeInt, Nullable: true}
	t.Columns = append(t.Columns, t.Rank)
	for _, name := range s.ScopeColumns {
		c := &Column{Name: name, Type: ColumnType(s.ScopeType), Nullable: true}
		if c.Type == TypeString {
			c.Size = 255
		}
		t.Scope = append(t.Scope, c)
		t.Columns = append(t.Columns, c)
	}
	for _, f := range s.Fields {
		c := &Column{Name: f.Name, Type: ColumnType(f.Type), Nullable: f.Nullable}
		if c.Type == TypeString {
			c.Size = 255
		}
		t.Columns = append(t.Columns, c)
	}
	idx := &Index{Name: s.Table + "_" + s.RankColumn}
	idx.Columns = append(append(idx.Columns, t.Scope...), t.Rank)
	t.Indexes = append(t.Indexes, idx)
	return t
}

// Column returns the column named name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// CreateStatements returns the DDL creating t in the given dialect. Every
// statement is idempotent.
func (t *Table) CreateStatements(name string) ([]string, error) {
	switch name {
	case dialect.SQLite, dialect.Postgres, dialect.MySQL:
	default:
		return nil, fmt.Errorf("dialect/sql/schema: unsupported dialect %q", name)
	}
	d := sql.Dialect(name)
	b := d.Raw().WriteString("CREATE TABLE IF NOT EXISTS ").Ident(t.Name).WriteString(" (")
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(c.Name).WriteString(" ").WriteString(columnDDL(name, c, t.isPrimary(c)))
	}
	if pk := t.PrimaryKey; len(pk) > 0 && !pk[0].Increment {
		b.WriteString(", PRIMARY KEY (").IdentComma(names(pk)...).WriteString(")")
	}
	if name == dialect.MySQL {
		for _, idx := range t.Indexes {
			b.WriteString(", ")
			if idx.Unique {
				b.WriteString("UNIQUE ")
			}
			b.WriteString("INDEX ").Ident(idx.Name).WriteString(" (").IdentComma(names(idx.Columns)...).WriteString(")")
		}
		b.WriteString(")")
		return []string{b.String()}, nil
	}
	b.WriteString(")")
	stmts := []string{b.String()}
	for _, idx := range t.Indexes {
		ib := d.Raw().WriteString("CREATE ")
		if idx.Unique {
			ib.WriteString("UNIQUE ")
		}
		ib.WriteString("INDEX IF NOT EXISTS ").Ident(idx.Name).
			WriteString(" ON ").Ident(t.Name).
			WriteString(" (").IdentComma(names(idx.Columns)...).WriteString(")")
		stmts = append(stmts, ib.String())
	}
	return stmts, nil
}

// Create validates t for the dialect of drv and creates it if missing.
func Create(ctx context.Context, drv dialect.Driver, t *Table) error {
	if res := ValidateTable(t); res.HasErrors() {
		return fmt.Errorf("dialect/sql/schema: %s", res)
	}
	if res := ValidateDialect(t, drv.Dialect()); res.HasErrors() {
		return fmt.Errorf("dialect/sql/schema: %s", res)
	}
	stmts, err := t.CreateStatements(drv.Dialect())
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("dialect/sql/schema: create table %q: %w", t.Name, err)
		}
	}
	return nil
}

func (t *Table) isPrimary(c *Column) bool {
	for _, pk := range t.PrimaryKey {
		if pk == c {
			return true
		}
	}
	return false
}

func columnDDL(name string, c *Column, primary bool) string {
	if primary && c.Increment {
		switch name {
		case dialect.Postgres:
			return "BIGSERIAL PRIMARY KEY"
		case dialect.MySQL:
			return "BIGINT AUTO_INCREMENT PRIMARY KEY"
		default:
			return "INTEGER PRIMARY KEY AUTOINCREMENT"
		}
	}
	var typ string
	switch c.Type {
	case TypeInt:
		typ = "BIGINT"
		if name == dialect.SQLite {
			typ = "INTEGER"
		}
	case TypeString:
		typ = fmt.Sprintf("VARCHAR(%d)", c.Size)
		if name == dialect.SQLite {
			typ = "TEXT"
		}
	case TypeText:
		typ = "TEXT"
	case TypeFloat:
		switch name {
		case dialect.Postgres:
			typ = "DOUBLE PRECISION"
		case dialect.MySQL:
			typ = "DOUBLE"
		default:
			typ = "REAL"
		}
	case TypeBool:
		typ = "BOOLEAN"
	default:
		typ = strings.ToUpper(string(c.Type))
	}
	if c.Nullable {
		return typ + " NULL"
	}
	return typ + " NOT NULL"
}

func names(cols []*Column) []string {
	ns := make([]string, len(cols))
	for i, c := range cols {
		ns[i] = c.Name
	}
	return ns
}
