// Package schema describes a table carrying the sortable behavior.
//
// A behavior definition is a YAML document:
//
//	entity: Task
//	table: tasks              # default: underscored plural of entity
//	id_column: id             # default
//	id_type: int              # int (auto increment) or string
//	rank_column: sortable_rank  # default
//	scope_columns: [project_id]
//	fields:
//	  - name: title
//	    type: string
//	  - name: done
//	    type: bool
//
// Load and LoadFile apply the defaults and validate the result. Unknown keys
// are rejected so that typos such as "scope_column" fail loudly.
//
// # Scopes
//
// Rows sharing the same values in every scope column form one list, ranked
// 1..N independently of the other lists. A table without scope columns is a
// single list.
package schema
