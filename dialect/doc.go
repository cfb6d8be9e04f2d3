// Package dialect provides the database dialect abstraction the sortable row
// store runs on.
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL database ($n placeholders, double-quoted identifiers)
//   - MySQL: MySQL/MariaDB database (? placeholders, backtick identifiers)
//   - SQLite: SQLite database (? placeholders, double-quoted identifiers)
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Transaction Interface
//
// Every rank mutation runs inside one Tx:
//
//	type Tx interface {
//	    ExecQuerier
//	    Commit() error
//	    Rollback() error
//	}
//
// # Usage
//
//	import (
//	    "github.com/syssam/sortable/dialect"
//	    "github.com/syssam/sortable/dialect/sql"
//	)
//
//	drv, err := sql.Open(dialect.SQLite, "file:app.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// # Sub-packages
//
//   - dialect/sql: driver implementation and statement builders
//   - dialect/sql/schema: DDL for sortable tables
//   - dialect/sql/sqlgraph: classification of constraint errors
package dialect
