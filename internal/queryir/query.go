package queryir

import (
	"fmt"
	"strings"
)

// Filter type names accepted in Query.Filters.
const (
	FilterEquals               = "equals"
	FilterNotEquals            = "not_equals"
	FilterGreaterThan          = "greater_than"
	FilterGreaterThanOrEqualTo = "greater_than_or_equal_to"
	FilterLessThan             = "less_than"
	FilterLessThanOrEqualTo    = "less_than_or_equal_to"
	FilterContains             = "contains"
	FilterNotContain           = "not_contain"
	FilterStartsWith           = "starts_with"
	FilterNotStartWith         = "not_start_with"
	FilterEndsWith             = "ends_with"
	FilterNotEndWith           = "not_end_with"
)

// Sorter directions.
const (
	Ascend  = "ascend"
	Descend = "descend"
)

// Model names the relational source of a query.
type Model struct {
	Name         string        `yaml:"name" json:"name"`
	Table        string        `yaml:"table,omitempty" json:"table,omitempty"`
	Partitioners []Partitioner `yaml:"partitioners,omitempty" json:"partitioners,omitempty"`
}

// Partitioner is a fixed equality condition applied to every query against
// the model, e.g. a type discriminator column.
type Partitioner struct {
	Name  string `yaml:"name" json:"name"`
	Value any    `yaml:"value" json:"value"`
}

// TableName returns Table, defaulting to Name.
func (m Model) TableName() string {
	if m.Table != "" {
		return m.Table
	}
	return m.Name
}

// Field is a selected column. Display renames it in the result rows.
type Field struct {
	KeyPath string `yaml:"key_path" json:"key_path"`
	Display string `yaml:"display,omitempty" json:"display,omitempty"`
}

// Filter restricts the rows a query returns. Value may be a scalar, nil or a
// list of scalars.
type Filter struct {
	Type    string `yaml:"type" json:"type"`
	KeyPath string `yaml:"key_path" json:"key_path"`
	Value   any    `yaml:"value" json:"value"`
}

// Sorter orders results by a column.
type Sorter struct {
	KeyPath   string `yaml:"key_path" json:"key_path"`
	Direction string `yaml:"direction,omitempty" json:"direction,omitempty"`
}

// Descending reports whether the sorter orders from high to low.
func (s Sorter) Descending() bool {
	switch strings.ToLower(s.Direction) {
	case Descend, "desc":
		return true
	default:
		return false
	}
}

// Query is the declarative read query decoded from configuration.
type Query struct {
	Fields  []Field  `yaml:"fields,omitempty" json:"fields,omitempty"`
	Filters []Filter `yaml:"filters,omitempty" json:"filters,omitempty"`
	Sorters []Sorter `yaml:"sorters,omitempty" json:"sorters,omitempty"`
	Limit   int      `yaml:"limit,omitempty" json:"limit,omitempty"`
}

// WithFilters returns a copy of q with extra filters appended. The receiver
// is left untouched.
func (q Query) WithFilters(extra ...Filter) Query {
	out := q
	out.Fields = append([]Field(nil), q.Fields...)
	out.Sorters = append([]Sorter(nil), q.Sorters...)
	out.Filters = make([]Filter, 0, len(q.Filters)+len(extra))
	out.Filters = append(out.Filters, q.Filters...)
	out.Filters = append(out.Filters, extra...)
	return out
}

// Select validates q against m and lowers it into a Select node.
func (q Query) Select(m Model) (Select, error) {
	if err := Validate(m, q).Err(); err != nil {
		return Select{}, err
	}

	sel := Select{
		From:  m.TableName(),
		Limit: q.Limit,
	}

	for _, f := range q.Fields {
		col := Column{Name: f.KeyPath}
		if f.Display != "" && f.Display != f.KeyPath {
			col.Alias = f.Display
		}
		sel.Columns = append(sel.Columns, col)
	}

	var preds []Predicate
	for _, p := range m.Partitioners {
		preds = append(preds, Filter{Type: FilterEquals, KeyPath: p.Name, Value: p.Value}.Predicate())
	}
	for _, f := range q.Filters {
		preds = append(preds, f.Predicate())
	}
	switch len(preds) {
	case 0:
	case 1:
		sel.Filter = preds[0]
	default:
		sel.Filter = And{Predicates: preds}
	}

	for _, s := range q.Sorters {
		sel.OrderBy = append(sel.OrderBy, Order{Column: s.KeyPath, Descending: s.Descending()})
	}

	return sel, nil
}

// Predicate lowers the filter into a predicate tree. The filter type must
// already be known to Validate; unknown types lower to an always-false Or.
func (f Filter) Predicate() Predicate {
	values, isList := listValues(f.Value)

	switch f.Type {
	case FilterEquals:
		if !isList {
			return equalsScalar(f.KeyPath, f.Value, false)
		}
		return membership(f.KeyPath, values, false)
	case FilterNotEquals:
		if !isList {
			return equalsScalar(f.KeyPath, f.Value, true)
		}
		return membership(f.KeyPath, values, true)
	case FilterGreaterThan:
		return compareEach(f.KeyPath, OpGreater, values)
	case FilterGreaterThanOrEqualTo:
		return compareEach(f.KeyPath, OpGreaterOrEqual, values)
	case FilterLessThan:
		return compareEach(f.KeyPath, OpLess, values)
	case FilterLessThanOrEqualTo:
		return compareEach(f.KeyPath, OpLessOrEqual, values)
	case FilterContains:
		return likeEach(f.KeyPath, values, "%", "%", false)
	case FilterNotContain:
		return likeEach(f.KeyPath, values, "%", "%", true)
	case FilterStartsWith:
		return likeEach(f.KeyPath, values, "", "%", false)
	case FilterNotStartWith:
		return likeEach(f.KeyPath, values, "", "%", true)
	case FilterEndsWith:
		return likeEach(f.KeyPath, values, "%", "", false)
	case FilterNotEndWith:
		return likeEach(f.KeyPath, values, "%", "", true)
	default:
		return Or{}
	}
}

func listValues(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, true
	default:
		return []any{v}, false
	}
}

func equalsScalar(field string, value any, negate bool) Predicate {
	if value == nil {
		return IsNull{Field: field, Negate: negate}
	}
	return Equals{Field: field, Value: value, Negate: negate}
}

// membership splits nil members out of a list so that [1, nil] means
// "IN (1) OR IS NULL" and its negation "NOT IN (1) AND IS NOT NULL".
func membership(field string, values []any, negate bool) Predicate {
	var present []any
	hasNil := false
	for _, v := range values {
		if v == nil {
			hasNil = true
			continue
		}
		present = append(present, v)
	}

	in := In{Field: field, Values: present, Negate: negate}
	if !hasNil {
		return in
	}
	null := IsNull{Field: field, Negate: negate}
	if len(present) == 0 {
		return null
	}
	if negate {
		return And{Predicates: []Predicate{in, null}}
	}
	return Or{Predicates: []Predicate{in, null}}
}

func compareEach(field string, op CompareOp, values []any) Predicate {
	var preds []Predicate
	for _, v := range values {
		if v == nil {
			continue
		}
		preds = append(preds, Compare{Field: field, Op: op, Value: v})
	}
	if len(preds) == 1 {
		return preds[0]
	}
	return Or{Predicates: preds}
}

func likeEach(field string, values []any, prefix, suffix string, negate bool) Predicate {
	var preds []Predicate
	for _, v := range values {
		if v == nil {
			continue
		}
		preds = append(preds, Like{Field: field, Pattern: prefix + fmt.Sprint(v) + suffix, Negate: negate})
	}
	if len(preds) == 1 {
		return preds[0]
	}
	if negate {
		return And{Predicates: preds}
	}
	return Or{Predicates: preds}
}
