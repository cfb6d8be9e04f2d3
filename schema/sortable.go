package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"

	"github.com/go-openapi/inflect"
	"gopkg.in/yaml.v3"
)

// Defaults applied to an empty behavior definition.
const (
	DefaultIDColumn   = "id"
	DefaultRankColumn = "sortable_rank"
)

// ID types of a sortable table.
const (
	IDInt    = "int"
	IDString = "string"
)

// Field types supported for payload columns.
const (
	TypeString = "string"
	TypeText   = "text"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
)

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Sortable describes a table carrying the sortable behavior.
//
// Example:
//
//	entity: Task
//	scope_columns: [project_id]
//	fields:
//	  - name: title
//	    type: string
type Sortable struct {
	// Entity is the entity name, e.g. "Task". The table name derives from it.
	Entity string `yaml:"entity"`

	// Table is the table name. Defaults to the underscored plural of Entity.
	Table string `yaml:"table,omitempty"`

	// IDColumn is the primary key column. Defaults to "id".
	IDColumn string `yaml:"id_column,omitempty"`

	// IDType is "int" (auto increment) or "string" (caller supplied). Defaults to "int".
	IDType string `yaml:"id_type,omitempty"`

	// RankColumn holds the rank. Defaults to "sortable_rank".
	RankColumn string `yaml:"rank_column,omitempty"`

	// ScopeColumns partition the table into independent lists. Empty means
	// the whole table is one list.
	ScopeColumns []string `yaml:"scope_columns,omitempty"`

	// ScopeType is the field type of the scope columns. Defaults to "int".
	ScopeType string `yaml:"scope_type,omitempty"`

	// Fields are the payload columns.
	Fields []Field `yaml:"fields,omitempty"`
}

// Field is a payload column of a sortable table.
type Field struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable,omitempty"`
}

// Load parses a behavior definition from r, applies defaults and validates it.
// Unknown keys are rejected.
func Load(r io.Reader) (*Sortable, error) {
	var s Sortable
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("schema: parse: %w", err)
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads and parses the behavior definition at path.
func LoadFile(path string) (*Sortable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return Load(bytes.NewReader(data))
}

// TableName returns the default table name of entity: "TodoItem" gives "todo_items".
func TableName(entity string) string {
	return inflect.Pluralize(inflect.Underscore(entity))
}

func (s *Sortable) applyDefaults() {
	if s.Table == "" && s.Entity != "" {
		s.Table = TableName(s.Entity)
	}
	if s.IDColumn == "" {
		s.IDColumn = DefaultIDColumn
	}
	if s.IDType == "" {
		s.IDType = IDInt
	}
	if s.RankColumn == "" {
		s.RankColumn = DefaultRankColumn
	}
	if s.ScopeType == "" {
		s.ScopeType = TypeInt
	}
	for i := range s.Fields {
		if s.Fields[i].Type == "" {
			s.Fields[i].Type = TypeString
		}
	}
}

// Columns returns every column of the table: id, rank, scope columns, then fields.
func (s *Sortable) Columns() []string {
	cols := []string{s.IDColumn, s.RankColumn}
	cols = append(cols, s.ScopeColumns...)
	for _, f := range s.Fields {
		cols = append(cols, f.Name)
	}
	return cols
}

// FieldNames returns the payload column names.
func (s *Sortable) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Validate reports every problem of the definition, joined.
func (s *Sortable) Validate() error {
	var errs []error
	if s.Table == "" {
		errs = append(errs, errors.New("schema: entity or table is required"))
	} else if !identRE.MatchString(s.Table) {
		errs = append(errs, fmt.Errorf("schema: invalid table name %q", s.Table))
	}
	if s.IDType != IDInt && s.IDType != IDString {
		errs = append(errs, fmt.Errorf("schema: id_type must be %q or %q, got %q", IDInt, IDString, s.IDType))
	}
	seen := make(map[string]bool)
	for _, col := range s.Columns() {
		switch {
		case !identRE.MatchString(col):
			errs = append(errs, fmt.Errorf("schema: %s: invalid column name %q", s.Table, col))
		case seen[col]:
			errs = append(errs, fmt.Errorf("schema: %s: duplicate column %q", s.Table, col))
		}
		seen[col] = true
	}
	types := []string{TypeString, TypeText, TypeInt, TypeFloat, TypeBool}
	for _, f := range s.Fields {
		if !slices.Contains(types, f.Type) {
			errs = append(errs, fmt.Errorf("schema: %s.%s: unknown field type %q", s.Table, f.Name, f.Type))
		}
	}
	if len(s.ScopeColumns) > 0 && s.ScopeType != TypeInt && s.ScopeType != TypeString {
		errs = append(errs, fmt.Errorf("schema: %s: scope_type must be %q or %q, got %q", s.Table, TypeInt, TypeString, s.ScopeType))
	}
	return errors.Join(errs...)
}
