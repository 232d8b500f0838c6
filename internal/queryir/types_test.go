package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelTableName(t *testing.T) {
	assert.Equal(t, "patients", Model{Name: "patients"}.TableName())
	assert.Equal(t, "tbl_patients", Model{Name: "patients", Table: "tbl_patients"}.TableName())
}

func TestPredicatesAreSealed(t *testing.T) {
	preds := []Predicate{
		Equals{}, In{}, IsNull{}, Compare{}, Like{}, And{}, Or{},
		&Equals{}, &In{}, &IsNull{}, &Compare{}, &Like{}, &And{}, &Or{},
	}
	for _, p := range preds {
		switch p.(type) {
		case Equals, *Equals, In, *In, IsNull, *IsNull, Compare, *Compare,
			Like, *Like, And, *And, Or, *Or:
		default:
			t.Fatalf("unexpected predicate type %T", p)
		}
	}
}

func TestFilterPredicate(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		expected Predicate
	}{
		{
			name:     "equals scalar",
			filter:   Filter{Type: FilterEquals, KeyPath: "id", Value: 1},
			expected: Equals{Field: "id", Value: 1},
		},
		{
			name:     "equals nil",
			filter:   Filter{Type: FilterEquals, KeyPath: "middle_name"},
			expected: IsNull{Field: "middle_name"},
		},
		{
			name:     "equals list",
			filter:   Filter{Type: FilterEquals, KeyPath: "id", Value: []any{1, 2}},
			expected: In{Field: "id", Values: []any{1, 2}},
		},
		{
			name:     "equals string list",
			filter:   Filter{Type: FilterEquals, KeyPath: "chart_number", Value: []string{"C0001"}},
			expected: In{Field: "chart_number", Values: []any{"C0001"}},
		},
		{
			name:   "equals list with nil",
			filter: Filter{Type: FilterEquals, KeyPath: "middle_name", Value: []any{"The", nil}},
			expected: Or{Predicates: []Predicate{
				In{Field: "middle_name", Values: []any{"The"}},
				IsNull{Field: "middle_name"},
			}},
		},
		{
			name:     "equals list of only nil",
			filter:   Filter{Type: FilterEquals, KeyPath: "middle_name", Value: []any{nil}},
			expected: IsNull{Field: "middle_name"},
		},
		{
			name:     "not equals scalar",
			filter:   Filter{Type: FilterNotEquals, KeyPath: "id", Value: 1},
			expected: Equals{Field: "id", Value: 1, Negate: true},
		},
		{
			name:   "not equals list with nil",
			filter: Filter{Type: FilterNotEquals, KeyPath: "middle_name", Value: []any{"The", nil}},
			expected: And{Predicates: []Predicate{
				In{Field: "middle_name", Values: []any{"The"}, Negate: true},
				IsNull{Field: "middle_name", Negate: true},
			}},
		},
		{
			name:     "greater than",
			filter:   Filter{Type: FilterGreaterThan, KeyPath: "status_id", Value: 1},
			expected: Compare{Field: "status_id", Op: OpGreater, Value: 1},
		},
		{
			name:   "less than or equal list",
			filter: Filter{Type: FilterLessThanOrEqualTo, KeyPath: "status_id", Value: []any{1, 5}},
			expected: Or{Predicates: []Predicate{
				Compare{Field: "status_id", Op: OpLessOrEqual, Value: 1},
				Compare{Field: "status_id", Op: OpLessOrEqual, Value: 5},
			}},
		},
		{
			name:     "contains",
			filter:   Filter{Type: FilterContains, KeyPath: "first_name", Value: "oz"},
			expected: Like{Field: "first_name", Pattern: "%oz%"},
		},
		{
			name:     "starts with",
			filter:   Filter{Type: FilterStartsWith, KeyPath: "first_name", Value: "Bo"},
			expected: Like{Field: "first_name", Pattern: "Bo%"},
		},
		{
			name:     "ends with",
			filter:   Filter{Type: FilterEndsWith, KeyPath: "first_name", Value: "zo"},
			expected: Like{Field: "first_name", Pattern: "%zo"},
		},
		{
			name:   "not start with list",
			filter: Filter{Type: FilterNotStartWith, KeyPath: "first_name", Value: []any{"B", "F"}},
			expected: And{Predicates: []Predicate{
				Like{Field: "first_name", Pattern: "B%", Negate: true},
				Like{Field: "first_name", Pattern: "F%", Negate: true},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filter.Predicate())
		})
	}
}

func TestQuerySelect(t *testing.T) {
	model := Model{
		Name:         "patients",
		Partitioners: []Partitioner{{Name: "status_id", Value: 1}},
	}
	query := Query{
		Fields: []Field{
			{KeyPath: "id"},
			{KeyPath: "first_name", Display: "First"},
			{KeyPath: "last_name", Display: "last_name"},
		},
		Filters: []Filter{{Type: FilterEquals, KeyPath: "last_name", Value: "Clown"}},
		Sorters: []Sorter{{KeyPath: "last_name", Direction: Descend}, {KeyPath: "id"}},
		Limit:   5,
	}

	sel, err := query.Select(model)
	require.NoError(t, err)

	assert.Equal(t, Select{
		From: "patients",
		Columns: []Column{
			{Name: "id"},
			{Name: "first_name", Alias: "First"},
			{Name: "last_name"},
		},
		Filter: And{Predicates: []Predicate{
			Equals{Field: "status_id", Value: 1},
			Equals{Field: "last_name", Value: "Clown"},
		}},
		OrderBy: []Order{{Column: "last_name", Descending: true}, {Column: "id"}},
		Limit:   5,
	}, sel)
}

func TestQuerySelectNoFilters(t *testing.T) {
	sel, err := Query{}.Select(Model{Name: "patients"})
	require.NoError(t, err)
	assert.Nil(t, sel.Filter)
	assert.Empty(t, sel.Columns)
	assert.Zero(t, sel.Limit)
}

func TestQuerySelectSingleFilterIsNotWrapped(t *testing.T) {
	q := Query{Filters: []Filter{{Type: FilterEquals, KeyPath: "id", Value: 3}}}
	sel, err := q.Select(Model{Name: "patients"})
	require.NoError(t, err)
	assert.Equal(t, Equals{Field: "id", Value: 3}, sel.Filter)
}

func TestWithFiltersDoesNotMutate(t *testing.T) {
	base := Query{
		Fields:  []Field{{KeyPath: "id"}},
		Filters: make([]Filter, 1, 4),
		Sorters: []Sorter{{KeyPath: "id"}},
		Limit:   2,
	}
	base.Filters[0] = Filter{Type: FilterEquals, KeyPath: "status_id", Value: 1}

	extended := base.WithFilters(Filter{Type: FilterEquals, KeyPath: "id", Value: []any{1, 2}})

	require.Len(t, base.Filters, 1)
	require.Len(t, extended.Filters, 2)
	assert.Equal(t, "id", extended.Filters[1].KeyPath)
	assert.Equal(t, base.Fields, extended.Fields)
	assert.Equal(t, base.Sorters, extended.Sorters)
	assert.Equal(t, 2, extended.Limit)

	// Appending to the copy must not write into the base backing array.
	_ = append(extended.Filters[:1], Filter{Type: FilterEquals, KeyPath: "x"})
	assert.Equal(t, 1, len(base.Filters))
	assert.Equal(t, "status_id", base.Filters[0].KeyPath)
}

func TestSorterDescending(t *testing.T) {
	assert.True(t, Sorter{Direction: "descend"}.Descending())
	assert.True(t, Sorter{Direction: "DESC"}.Descending())
	assert.False(t, Sorter{Direction: "ascend"}.Descending())
	assert.False(t, Sorter{}.Descending())
}
