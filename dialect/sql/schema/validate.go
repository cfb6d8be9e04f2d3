package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/sortable/dialect"
)

// ValidationError represents a table validation problem.
type ValidationError struct {
	Table   string
	Column  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of table validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// ValidateTable validates a sortable table definition.
func ValidateTable(t *Table) *ValidationResult {
	result := &ValidationResult{}

	if len(t.PrimaryKey) == 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Table:   t.Name,
			Message: "table has no primary key",
		})
	}

	colNames := make(map[string]bool)
	for _, c := range t.Columns {
		if colNames[c.Name] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Column:  c.Name,
				Message: "duplicate column name",
			})
		}
		colNames[c.Name] = true
	}

	switch {
	case t.Rank == nil:
		result.Errors = append(result.Errors, &ValidationError{
			Table:   t.Name,
			Message: "table has no rank column",
		})
	case t.Rank.Type != TypeInt:
		result.Errors = append(result.Errors, &ValidationError{
			Table:   t.Name,
			Column:  t.Rank.Name,
			Message: fmt.Sprintf("rank column must be an integer, got %s", t.Rank.Type),
		})
	case !t.Rank.Nullable:
		// Rows removed from their list keep a NULL rank.
		result.Errors = append(result.Errors, &ValidationError{
			Table:   t.Name,
			Column:  t.Rank.Name,
			Message: "rank column must be nullable",
		})
	}

	idxNames := make(map[string]bool)
	covered := false
	for _, idx := range t.Indexes {
		if idxNames[idx.Name] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Message: fmt.Sprintf("duplicate index name: %s", idx.Name),
			})
		}
		idxNames[idx.Name] = true

		for _, col := range idx.Columns {
			if col != nil && !colNames[col.Name] {
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Message: fmt.Sprintf("index %q references non-existent column %q", idx.Name, col.Name),
				})
			}
		}
		if t.Rank != nil && idx.Unique && slices.Contains(idx.Columns, t.Rank) {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Message: fmt.Sprintf("index %q must not be unique: ranks are shifted in place", idx.Name),
			})
		}
		if t.Rank != nil && slices.Equal(idx.Columns, append(slices.Clone(t.Scope), t.Rank)) {
			covered = true
		}
	}
	if t.Rank != nil && !covered {
		result.Warnings = append(result.Warnings, &ValidationError{
			Table:   t.Name,
			Message: "no index covers the scope and rank columns; rank lookups will scan the table",
		})
	}

	return result
}

// ValidateDialect reports definitions the given dialect cannot create.
func ValidateDialect(t *Table, name string) *ValidationResult {
	result := &ValidationResult{}
	if name != dialect.MySQL {
		return result
	}
	for _, idx := range t.Indexes {
		for _, col := range idx.Columns {
			if col != nil && col.Type == TypeText {
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Column:  col.Name,
					Message: fmt.Sprintf("mysql cannot index TEXT column in %q without a prefix length", idx.Name),
				})
			}
		}
	}
	for _, c := range t.Columns {
		if c.Type == TypeString && c.Size > 16383 {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   t.Name,
				Column:  c.Name,
				Message: fmt.Sprintf("VARCHAR(%d) exceeds the utf8mb4 row limit", c.Size),
			})
		}
	}
	return result
}
