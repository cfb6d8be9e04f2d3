// Package sql provides the database/sql driver and the statement builders the
// sortable row store is written with.
//
// # Builder Types
//
//   - Builder: low-level SQL string builder with identifier quoting
//   - Selector: SELECT builder with predicates, ordering and LIMIT
//   - InsertBuilder: INSERT builder with RETURNING support
//   - UpdateBuilder: UPDATE builder; Add renders in-place increments
//   - DeleteBuilder: DELETE builder with WHERE predicates
//
// # Dialect Support
//
// Placeholders and identifier quoting adapt to the dialect:
//
//	sql.Dialect(dialect.Postgres).Update("tasks").
//	    Add("sortable_rank", 1).
//	    Where(sql.FieldEQ("project_id", 7)).
//	    Where(sql.IntField("sortable_rank").Range(3, 0)).
//	    Query()
//	// UPDATE "tasks" SET "sortable_rank" = "sortable_rank" + $1
//	//     WHERE "project_id" = $2 AND "sortable_rank" >= $3
//
// MySQL quotes with backticks, PostgreSQL numbers its placeholders.
//
// # Predicates
//
// Predicates are functions rendering into a Builder. FieldEQ with a nil value
// renders IS NULL, so scopes holding NULL values compare as expected.
//
// # Drivers
//
// Driver wraps a *sql.DB. StatsDriver and DebugDriver wrap any dialect.Driver
// to collect statistics or log every statement.
package sql
