package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dbfuel/internal/pipeline"
)

func runScenarioFile(t *testing.T, path string) *Result {
	t.Helper()
	_, result, err := RunFile(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func TestRun_ScenarioFiles(t *testing.T) {
	paths := []string{
		"testdata/scenarios/upsert_roster.yaml",
		"testdata/scenarios/update_all_status.yaml",
		"testdata/scenarios/find_or_insert_keys.yaml",
		"testdata/scenarios/missing_table.yaml",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			result := runScenarioFile(t, path)
			assert.True(t, result.Pass, "errors: %v\noutput: %v", result.Errors, result.Output)
		})
	}
}

func TestRun_CapturesRun(t *testing.T) {
	result := runScenarioFile(t, "testdata/scenarios/upsert_roster.yaml")

	assert.Equal(t, "run-upsert-roster", result.RunID)
	assert.Equal(t, 3, result.JobsRun)
	assert.Equal(t, []string{"patients", "roster"}, result.Registers)
	assert.Empty(t, result.RunError)
	assert.Equal(t, "[1] db_fuel/active_record/upsert::upsert_patients", result.Output[0])
}

func TestRun_ExpectedFailure(t *testing.T) {
	result := runScenarioFile(t, "testdata/scenarios/missing_table.yaml")

	assert.True(t, result.Pass)
	assert.Contains(t, result.RunError, `job "insert_ghosts"`)
	assert.Equal(t, 0, result.JobsRun)
	assert.Equal(t, []string{"[1] db_fuel/active_record/insert::insert_ghosts"}, result.Output)
}

func TestRun_DefaultsRunID(t *testing.T) {
	scenario := &Scenario{
		Name:        "defaults",
		Description: "static value only",
		Pipeline: pipeline.Config{Jobs: []pipeline.Definition{
			{"name": "load", "type": "b/value/static", "value": []any{map[string]any{"a": 1}}},
		}},
		Assertions: []Assertion{{Type: AssertRegisterCount, Register: pipeline.DefaultRegister, Count: 1}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "test-run-default", result.RunID)
	assert.Equal(t, []string{"[1] b/value/static::load"}, result.Output)
}

func TestRun_UnexpectedFailureFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected",
		Description: "insert into a missing table",
		Registers:   map[string]any{"rows": []any{map[string]any{"name": "x"}}},
		Pipeline: pipeline.Config{Jobs: []pipeline.Definition{
			{"name": "insert", "type": "db_fuel/active_record/insert", "register": "rows", "table_name": "nope",
				"attributes": []any{map[string]any{"key": "name"}}},
		}},
		Assertions: []Assertion{{Type: AssertOutputContains, Line: "insert"}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "pipeline failed")
}

func TestRun_ExpectedFailureThatSucceeds(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_failure",
		Description: "expects an error that never happens",
		Pipeline: pipeline.Config{Jobs: []pipeline.Definition{
			{"name": "load", "type": "b/value/static"},
		}},
		Expect: &ExpectClause{Error: "boom"},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], `expected error containing "boom", but the run succeeded`)
}

func TestRun_WrongErrorText(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_error",
		Description: "error text mismatch",
		Pipeline: pipeline.Config{Jobs: []pipeline.Definition{
			{"name": "insert", "type": "db_fuel/active_record/insert", "table_name": "nope",
				"attributes": []any{map[string]any{"key": "name"}}},
		}},
		Registers: map[string]any{pipeline.DefaultRegister: []any{map[string]any{"name": "x"}}},
		Expect:    &ExpectClause{Error: "deadlock"},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], `expected error containing "deadlock", got`)
}

func TestRun_SetupErrorIsReturned(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_setup",
		Description: "broken SQL",
		Setup:       []string{"CREATE TABLEE oops"},
		Pipeline: pipeline.Config{Jobs: []pipeline.Definition{
			{"name": "load", "type": "b/value/static"},
		}},
		Assertions: []Assertion{{Type: AssertOutputContains, Line: "load"}},
	}

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute setup")
	assert.Contains(t, err.Error(), "setup[0]")
}

func TestRun_InvalidPipelineIsReturned(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_pipeline",
		Description: "record job without a table",
		Pipeline: pipeline.Config{Jobs: []pipeline.Definition{
			{"name": "insert", "type": "db_fuel/active_record/insert"},
		}},
		Assertions: []Assertion{{Type: AssertOutputContains, Line: "insert"}},
	}

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build pipeline")
	assert.True(t, pipeline.IsConfigError(err))
}

func TestRun_UsesScenarioNow(t *testing.T) {
	scenario := &Scenario{
		Name:        "now",
		Description: "timestamps follow the scenario clock",
		Setup:       []string{"CREATE TABLE events (id INTEGER PRIMARY KEY, code TEXT, created_at DATETIME, updated_at DATETIME)"},
		Now:         "2021-06-01T12:00:00Z",
		Registers:   map[string]any{"events": []any{map[string]any{"code": "E1"}}},
		Pipeline: pipeline.Config{Jobs: []pipeline.Definition{
			{"name": "insert", "type": "db_fuel/active_record/insert", "register": "events", "table_name": "events",
				"attributes": []any{map[string]any{"key": "code"}}},
		}},
		Assertions: []Assertion{{
			Type:   AssertFinalState,
			Table:  "events",
			Where:  map[string]any{"code": "E1"},
			Expect: map[string]any{"created_at": "2021-06-01T12:00:00Z", "updated_at": "2021-06-01T12:00:00Z"},
		}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
