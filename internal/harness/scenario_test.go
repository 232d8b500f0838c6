package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/upsert_roster.yaml")
	require.NoError(t, err)

	assert.Equal(t, "upsert_roster", scenario.Name)
	assert.Equal(t, "run-upsert-roster", scenario.RunID)
	assert.Equal(t, []string{filepath.Join("testdata", "scenarios", "patients.sql")}, scenario.SQLFiles)
	assert.Len(t, scenario.Pipeline.Jobs, 3)
	assert.Equal(t, "db_fuel/active_record/upsert", scenario.Pipeline.Jobs[0].Type())
	assert.Len(t, scenario.Registers["patients"], 2)
	assert.Len(t, scenario.Assertions, 4)
	assert.Nil(t, scenario.Expect)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: typo
description: "misspelled assertions"
pipeline:
  jobs:
    - name: a
      type: b/value/static
assertion:
  - type: output_contains
    line: x
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "assertion")
}

func TestLoadScenario_ResolvesSQLFilesRelativeToScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.sql"), []byte("CREATE TABLE t (id INTEGER)"), 0644))
	path := writeScenario(t, dir, `
name: relative
description: "sql files next to the scenario"
sql_files: [schema.sql]
pipeline:
  jobs:
    - name: a
      type: b/value/static
assertions:
  - type: row_count
    table: t
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "schema.sql")}, scenario.SQLFiles)
}

func TestParseScenario_ValidationErrors(t *testing.T) {
	jobs := `
pipeline:
  jobs:
    - name: a
      type: b/value/static
`
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d" + jobs + "assertions: [{type: output_contains, line: x}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n" + jobs + "assertions: [{type: output_contains, line: x}]",
			wantErr: "description is required",
		},
		{
			name:    "no jobs",
			content: "name: n\ndescription: d\nassertions: [{type: output_contains, line: x}]",
			wantErr: "pipeline.jobs is required",
		},
		{
			name:    "nothing checked",
			content: "name: n\ndescription: d" + jobs,
			wantErr: "assertions list is required unless expect is given",
		},
		{
			name:    "empty expect",
			content: "name: n\ndescription: d" + jobs + "expect: {error: \"\"}",
			wantErr: "expect: error is required",
		},
		{
			name:    "bad now",
			content: "name: n\ndescription: d\nnow: yesterday" + jobs + "assertions: [{type: output_contains, line: x}]",
			wantErr: "now:",
		},
		{
			name:    "missing sql file",
			content: "name: n\ndescription: d\nsql_files: [nope.sql]" + jobs + "assertions: [{type: output_contains, line: x}]",
			wantErr: "sql file not found",
		},
		{
			name:    "assertion without type",
			content: "name: n\ndescription: d" + jobs + "assertions: [{line: x}]",
			wantErr: "assertions[0]: type is required",
		},
		{
			name:    "unknown assertion type",
			content: "name: n\ndescription: d" + jobs + "assertions: [{type: trace_contains}]",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "output_contains without line",
			content: "name: n\ndescription: d" + jobs + "assertions: [{type: output_contains}]",
			wantErr: "line is required for output_contains",
		},
		{
			name:    "output_order without lines",
			content: "name: n\ndescription: d" + jobs + "assertions: [{type: output_order}]",
			wantErr: "lines list is required for output_order",
		},
		{
			name:    "register_count without register",
			content: "name: n\ndescription: d" + jobs + "assertions: [{type: register_count, count: 1}]",
			wantErr: "register is required for register_count",
		},
		{
			name:    "row_count negative",
			content: "name: n\ndescription: d" + jobs + "assertions: [{type: row_count, table: t, count: -1}]",
			wantErr: "count must be non-negative for row_count",
		},
		{
			name:    "final_state without expect",
			content: "name: n\ndescription: d" + jobs + "assertions: [{type: final_state, table: t}]",
			wantErr: "expect is required for final_state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content), t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
