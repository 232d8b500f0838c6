package querysql

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dbfuel/internal/dialect"
	"github.com/roach88/dbfuel/internal/queryir"
	"github.com/roach88/dbfuel/internal/store"
	"github.com/roach88/dbfuel/internal/testutil"
)

func TestCompileGolden(t *testing.T) {
	patients := queryir.Model{Name: "patients"}

	tests := []struct {
		name    string
		dialect dialect.Dialect
		model   queryir.Model
		query   queryir.Query
		params  []any
	}{
		{
			name:    "select_all",
			dialect: dialect.SQLite,
			model:   patients,
		},
		{
			name:    "sqlite_full_query",
			dialect: dialect.SQLite,
			model:   patients,
			query: queryir.Query{
				Fields: []queryir.Field{{KeyPath: "id"}, {KeyPath: "first_name", Display: "First"}},
				Filters: []queryir.Filter{
					{Type: queryir.FilterEquals, KeyPath: "last_name", Value: "Clown"},
					{Type: queryir.FilterGreaterThan, KeyPath: "status_id", Value: 0},
				},
				Sorters: []queryir.Sorter{{KeyPath: "last_name", Direction: queryir.Descend}, {KeyPath: "id"}},
				Limit:   10,
			},
			params: []any{"Clown", 0},
		},
		{
			name:    "postgres_nested",
			dialect: dialect.Postgres,
			model:   patients,
			query: queryir.Query{
				Filters: []queryir.Filter{
					{Type: queryir.FilterEquals, KeyPath: "status_id", Value: 1},
					{Type: queryir.FilterEquals, KeyPath: "chart_number", Value: []any{"C0001", "R0001", nil}},
				},
			},
			params: []any{1, "C0001", "R0001"},
		},
		{
			name:    "mysql_not_contain",
			dialect: dialect.MySQL,
			model:   patients,
			query: queryir.Query{
				Fields:  []queryir.Field{{KeyPath: "first_name"}},
				Filters: []queryir.Filter{{Type: queryir.FilterNotContain, KeyPath: "first_name", Value: []any{"o", "u"}}},
			},
			params: []any{"%o%", "%u%"},
		},
		{
			name:    "sqlite_partitioned",
			dialect: dialect.SQLite,
			model: queryir.Model{
				Name:         "patients",
				Table:        "people",
				Partitioners: []queryir.Partitioner{{Name: "type", Value: "Patient"}},
			},
			query:  queryir.Query{Sorters: []queryir.Sorter{{KeyPath: "id"}}},
			params: []any{"Patient"},
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := NewSQLCompiler(tt.dialect).CompileQuery(tt.model, tt.query)
			require.NoError(t, err)
			g.Assert(t, tt.name, []byte(sql+"\n"))
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestCompile_PointerPredicates(t *testing.T) {
	sel := queryir.Select{
		From: "patients",
		Filter: &queryir.And{Predicates: []queryir.Predicate{
			&queryir.Equals{Field: "id", Value: 1, Negate: true},
			&queryir.IsNull{Field: "middle_name", Negate: true},
			&queryir.Compare{Field: "status_id", Op: queryir.OpLessOrEqual, Value: 2},
			&queryir.Like{Field: "first_name", Pattern: "B%"},
			&queryir.In{Field: "id", Values: []any{1, 2}, Negate: true},
		}},
	}

	sql, params, err := NewSQLCompiler(dialect.SQLite).Compile(sel)
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "patients" WHERE "id" <> ? AND "middle_name" IS NOT NULL AND "status_id" <= ? AND "first_name" LIKE ? AND "id" NOT IN (?, ?)`, sql)
	assert.Equal(t, []any{1, 2, "B%", 1, 2}, params)
}

func TestCompile_EmptyJunctionsAndLists(t *testing.T) {
	c := NewSQLCompiler(dialect.SQLite)

	tests := []struct {
		name   string
		filter queryir.Predicate
		where  string
	}{
		{"empty and", queryir.And{}, "1 = 1"},
		{"empty or", queryir.Or{}, "1 = 0"},
		{"empty in", queryir.In{Field: "id"}, "1 = 0"},
		{"empty not in", queryir.In{Field: "id", Negate: true}, "1 = 1"},
		{"nil equals", queryir.Equals{Field: "middle_name"}, `"middle_name" IS NULL`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, _, err := c.Compile(queryir.Select{From: "patients", Filter: tt.filter})
			require.NoError(t, err)
			assert.Equal(t, `SELECT * FROM "patients" WHERE `+tt.where, sql)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	c := NewSQLCompiler(dialect.SQLite)

	_, _, err := c.Compile(queryir.Select{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a source table")

	_, _, err = c.Compile(queryir.Select{
		From:   "patients",
		Filter: queryir.Compare{Field: "id", Op: "!=", Value: 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported comparison operator")

	_, _, err = c.Compile(queryir.Select{
		From:   "patients",
		Filter: queryir.In{Field: "id", Values: []any{nil}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contains NULL")

	_, _, err = c.CompileQuery(queryir.Model{}, queryir.Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model name is required")
}

func TestCompile_ExecutesAgainstSQLite(t *testing.T) {
	s := testutil.OpenPatientsDB(t, true)
	c := NewSQLCompiler(s.Dialect())

	tests := []struct {
		name   string
		query  queryir.Query
		charts []any
	}{
		{
			name: "in list with null member",
			query: queryir.Query{
				Fields:  []queryir.Field{{KeyPath: "chart_number"}},
				Filters: []queryir.Filter{{Type: queryir.FilterEquals, KeyPath: "middle_name", Value: []any{nil, "Nope"}}},
			},
			charts: []any{"R0001"},
		},
		{
			name: "ends with sorted descending",
			query: queryir.Query{
				Fields:  []queryir.Field{{KeyPath: "chart_number"}},
				Filters: []queryir.Filter{{Type: queryir.FilterEndsWith, KeyPath: "chart_number", Value: "0001"}},
				Sorters: []queryir.Sorter{{KeyPath: "chart_number", Direction: queryir.Descend}},
				Limit:   2,
			},
			charts: []any{"R0001", "C0001"},
		},
		{
			name: "greater than or equal",
			query: queryir.Query{
				Fields:  []queryir.Field{{KeyPath: "chart_number"}},
				Filters: []queryir.Filter{{Type: queryir.FilterGreaterThanOrEqualTo, KeyPath: "status_id", Value: 2}},
			},
			charts: []any{"B0001"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := c.CompileQuery(queryir.Model{Name: "patients"}, tt.query)
			require.NoError(t, err)

			rows, err := store.QueryRows(context.Background(), s, sql, params...)
			require.NoError(t, err)

			charts := make([]any, len(rows))
			for i, row := range rows {
				charts[i] = row["chart_number"]
			}
			assert.Equal(t, tt.charts, charts)
		})
	}
}

func TestCompile_DisplayAliasesResultColumns(t *testing.T) {
	s := testutil.OpenPatientsDB(t, true)

	sql, params, err := NewSQLCompiler(s.Dialect()).CompileQuery(
		queryir.Model{Name: "patients"},
		queryir.Query{
			Fields:  []queryir.Field{{KeyPath: "first_name", Display: "First Name"}},
			Filters: []queryir.Filter{{Type: queryir.FilterEquals, KeyPath: "chart_number", Value: "C0001"}},
		},
	)
	require.NoError(t, err)

	rows, err := store.QueryRows(context.Background(), s, sql, params...)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]any{"First Name": "Bozo"}, rows[0])
}
