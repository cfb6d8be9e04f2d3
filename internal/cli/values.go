package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/sortable/schema"
)

// parseValue converts a command line value to the Go type of a column.
// The literal "null" is NULL for nullable columns.
func parseValue(typ string, nullable bool, s string) (any, error) {
	if nullable && s == "null" {
		return nil, nil
	}
	switch typ {
	case schema.TypeInt:
		return strconv.ParseInt(s, 10, 64)
	case schema.TypeFloat:
		return strconv.ParseFloat(s, 64)
	case schema.TypeBool:
		return strconv.ParseBool(s)
	case schema.TypeString, schema.TypeText:
		return s, nil
	}
	return nil, fmt.Errorf("unknown column type %q", typ)
}

// parseScope converts --scope values, given in scope column order.
func parseScope(def *schema.Sortable, values []string) ([]any, error) {
	if len(values) != len(def.ScopeColumns) {
		return nil, fmt.Errorf("%s needs %d --scope value(s) (%s), got %d",
			def.Table, len(def.ScopeColumns), strings.Join(def.ScopeColumns, ", "), len(values))
	}
	scope := make([]any, len(values))
	for i, s := range values {
		v, err := parseValue(def.ScopeType, true, s)
		if err != nil {
			return nil, fmt.Errorf("scope %s: %w", def.ScopeColumns[i], err)
		}
		scope[i] = v
	}
	return scope, nil
}

// parseFields converts --set name=value pairs.
func parseFields(def *schema.Sortable, pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set %q: want name=value", p)
		}
		f, found := lookupField(def, name)
		if !found {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		v, err := parseValue(f.Type, f.Nullable, raw)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		fields[name] = v
	}
	return fields, nil
}

func lookupField(def *schema.Sortable, name string) (schema.Field, bool) {
	for _, f := range def.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return schema.Field{}, false
}

// parseRank parses a 1-based rank argument.
func parseRank(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid rank %q", s)
	}
	return n, nil
}
