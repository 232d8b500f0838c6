package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidQuery(t *testing.T) {
	q := Query{
		Fields:  []Field{{KeyPath: "id"}, {KeyPath: "first_name", Display: "name"}},
		Filters: []Filter{{Type: FilterEquals, KeyPath: "id", Value: []any{1, 2, nil}}},
		Sorters: []Sorter{{KeyPath: "id", Direction: "ascend"}},
		Limit:   10,
	}

	result := Validate(Model{Name: "patients"}, q)

	assert.True(t, result.IsValid())
	assert.Empty(t, result.Problems)
	assert.NoError(t, result.Err())
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name    string
		model   Model
		query   Query
		problem string
	}{
		{
			name:    "missing model name",
			model:   Model{},
			problem: "model name is required",
		},
		{
			name:    "partitioner without name",
			model:   Model{Name: "patients", Partitioners: []Partitioner{{Value: 1}}},
			problem: "model partitioners[0]: name is required",
		},
		{
			name:    "field without key path",
			model:   Model{Name: "patients"},
			query:   Query{Fields: []Field{{Display: "x"}}},
			problem: "fields[0]: key_path is required",
		},
		{
			name:    "association key path",
			model:   Model{Name: "patients"},
			query:   Query{Fields: []Field{{KeyPath: "status.name"}}},
			problem: `fields[0]: key_path "status.name" traverses an association`,
		},
		{
			name:    "unknown filter type",
			model:   Model{Name: "patients"},
			query:   Query{Filters: []Filter{{Type: "between", KeyPath: "id"}}},
			problem: `filters[0]: unknown filter type "between"`,
		},
		{
			name:    "object filter value",
			model:   Model{Name: "patients"},
			query:   Query{Filters: []Filter{{Type: FilterEquals, KeyPath: "id", Value: map[string]any{"a": 1}}}},
			problem: "filters[0]: value must be a scalar or a list of scalars",
		},
		{
			name:    "nested list filter value",
			model:   Model{Name: "patients"},
			query:   Query{Filters: []Filter{{Type: FilterEquals, KeyPath: "id", Value: []any{[]any{1}}}}},
			problem: "filters[0]: value must be a scalar",
		},
		{
			name:    "unknown direction",
			model:   Model{Name: "patients"},
			query:   Query{Sorters: []Sorter{{KeyPath: "id", Direction: "sideways"}}},
			problem: `sorters[0]: unknown direction "sideways"`,
		},
		{
			name:    "negative limit",
			model:   Model{Name: "patients"},
			query:   Query{Limit: -1},
			problem: "limit must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.model, tt.query)
			require.False(t, result.IsValid())
			require.Len(t, result.Problems, 1)
			assert.Contains(t, result.Problems[0], tt.problem)
			assert.Contains(t, result.Err().Error(), "invalid query")
		})
	}
}

func TestValidate_AccumulatesProblems(t *testing.T) {
	q := Query{
		Fields:  []Field{{}},
		Filters: []Filter{{Type: "nope"}},
	}

	result := Validate(Model{}, q)

	// model name, field key_path, filter type, filter key_path
	assert.Len(t, result.Problems, 4)
}

func TestSelectReturnsValidationError(t *testing.T) {
	_, err := Query{Limit: -3}.Select(Model{Name: "patients"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit must not be negative")
}
