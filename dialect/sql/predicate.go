package sql

// Predicate renders a boolean SQL expression into a Builder.
type Predicate func(*Builder)

// And joins the given predicates with AND. Nil predicates are skipped and
// And returns nil when none is left.
func And(ps ...Predicate) Predicate {
	var list []Predicate
	for _, p := range ps {
		if p != nil {
			list = append(list, p)
		}
	}
	switch len(list) {
	case 0:
		return nil
	case 1:
		return list[0]
	}
	return func(b *Builder) {
		for i, p := range list {
			if i > 0 {
				b.WriteString(" AND ")
			}
			p(b)
		}
	}
}

// FieldEQ returns a predicate that checks if the field equals v.
// A nil value renders as IS NULL.
func FieldEQ(name string, v any) Predicate {
	if v == nil {
		return FieldIsNull(name)
	}
	return compare(name, " = ", v)
}

// FieldNEQ returns a predicate that checks if the field does not equal v.
func FieldNEQ(name string, v any) Predicate {
	if v == nil {
		return FieldNotNull(name)
	}
	return compare(name, " <> ", v)
}

// FieldGT returns a predicate that checks if the field is greater than v.
func FieldGT(name string, v any) Predicate { return compare(name, " > ", v) }

// FieldGTE returns a predicate that checks if the field is greater than or equal to v.
func FieldGTE(name string, v any) Predicate { return compare(name, " >= ", v) }

// FieldLT returns a predicate that checks if the field is less than v.
func FieldLT(name string, v any) Predicate { return compare(name, " < ", v) }

// FieldLTE returns a predicate that checks if the field is less than or equal to v.
func FieldLTE(name string, v any) Predicate { return compare(name, " <= ", v) }

// FieldIsNull returns a predicate that checks if the field is NULL.
func FieldIsNull(name string) Predicate {
	return func(b *Builder) { b.Ident(name).WriteString(" IS NULL") }
}

// FieldNotNull returns a predicate that checks if the field is not NULL.
func FieldNotNull(name string) Predicate {
	return func(b *Builder) { b.Ident(name).WriteString(" IS NOT NULL") }
}

// FieldsEQ returns the conjunction of FieldEQ over the column/value pairs.
func FieldsEQ(names []string, vs []any) Predicate {
	ps := make([]Predicate, len(names))
	for i, name := range names {
		ps[i] = FieldEQ(name, vs[i])
	}
	return And(ps...)
}

func compare(name, op string, v any) Predicate {
	return func(b *Builder) { b.Ident(name).WriteString(op).Arg(v) }
}

// IntField is an integer column providing typed predicates.
//
// Usage:
//
//	var Rank = sql.IntField("sortable_rank")
//	sel.Where(Rank.Range(2, 5))
type IntField string

// Name returns the column name.
func (f IntField) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals v.
func (f IntField) EQ(v int) Predicate { return FieldEQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal v.
func (f IntField) NEQ(v int) Predicate { return FieldNEQ(string(f), v) }

// GT returns a predicate that checks if the field is greater than v.
func (f IntField) GT(v int) Predicate { return FieldGT(string(f), v) }

// GTE returns a predicate that checks if the field is greater than or equal to v.
func (f IntField) GTE(v int) Predicate { return FieldGTE(string(f), v) }

// LT returns a predicate that checks if the field is less than v.
func (f IntField) LT(v int) Predicate { return FieldLT(string(f), v) }

// LTE returns a predicate that checks if the field is less than or equal to v.
func (f IntField) LTE(v int) Predicate { return FieldLTE(string(f), v) }

// IsNull returns a predicate that checks if the field is NULL.
func (f IntField) IsNull() Predicate { return FieldIsNull(string(f)) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f IntField) NotNull() Predicate { return FieldNotNull(string(f)) }

// Range returns a predicate for from <= field <= to. A zero to leaves the
// range open-ended.
func (f IntField) Range(from, to int) Predicate {
	if to == 0 {
		return f.GTE(from)
	}
	return And(f.GTE(from), f.LTE(to))
}
