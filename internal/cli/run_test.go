package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dbfuel/internal/testutil"
)

func TestRunMissingDatabaseFlag(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})

	_, _, err := execute(cmd, pipelineFixture("sync.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "db")
}

func TestRunYAMLPipeline(t *testing.T) {
	dbPath := patientsDBFile(t)
	cmd := NewRunCommand(&RootOptions{Format: "text"})

	stdout, stderr, err := execute(cmd, "--db", dbPath, pipelineFixture("sync.yaml"))
	require.NoError(t, err, "stdout: %s\nstderr: %s", stdout, stderr)

	assert.Contains(t, stdout, "[1] b/value/static::load_patients")
	assert.Contains(t, stdout, "[2] db_fuel/active_record/upsert::upsert_patients")
	assert.Contains(t, stdout, "  - Total Updated: 1")
	assert.Contains(t, stdout, "  - Total Inserted: 1")
	assert.Contains(t, stdout, "[3] db_fuel/dbee/range::reload_patients")
	assert.Contains(t, stdout, "  - Loading 2 record(s) into patients")
	assert.Contains(t, stdout, "✓ Pipeline finished: 3 job(s) run")

	assert.Contains(t, stderr, "pipeline starting")
	assert.Contains(t, stderr, "pipeline finished")

	s := openPatientsDB(t, dbPath)
	assert.Len(t, testutil.QueryPatients(t, s), 4)
	assert.Equal(t, "Bozzo", testutil.PatientByChart(t, s, "C0001")["first_name"])
	assert.Equal(t, "Nina", testutil.PatientByChart(t, s, "N0001")["first_name"])
}

func TestRunCUEPipeline(t *testing.T) {
	dbPath := patientsDBFile(t)
	cmd := NewRunCommand(&RootOptions{Format: "text"})

	stdout, _, err := execute(cmd, "--db", dbPath, pipelineFixture("sync.cue"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "Total Inserted: 1")

	s := openPatientsDB(t, dbPath)
	assert.Len(t, testutil.QueryPatients(t, s), 4)
}

func TestRunJSONSummary(t *testing.T) {
	dbPath := patientsDBFile(t)
	cmd := NewRunCommand(&RootOptions{Format: "json"})

	stdout, stderr, err := execute(cmd, "--db", dbPath, pipelineFixture("sync.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), "stdout must hold only the JSON response")
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.JobsRun)
	assert.Equal(t, []string{"patients"}, resp.Data.Registers)

	id, err := uuid.Parse(resp.Data.RunID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	assert.Contains(t, stderr, "Total Updated: 1", "job details go to stderr in JSON mode")
}

func TestRunLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantCode string
		wantMsg  string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.yaml"), ErrCodeNotFound, "pipeline file not found"},
		{"directory", t.TempDir(), ErrCodeNotFound, "not a file"},
		{"unsupported extension", "loader.go", ErrCodeUnsupported, "unsupported pipeline extension"},
		{"cue syntax", pipelineFixture("syntax.cue"), ErrCodeLoadFailed, "compiling CUE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRunCommand(&RootOptions{Format: "text"})
			stdout, _, err := execute(cmd, "--db", filepath.Join(t.TempDir(), "x.db"), tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Contains(t, stdout, "Error ["+tt.wantCode+"]")
		})
	}
}

func TestRunInvalidPipeline(t *testing.T) {
	dbPath := patientsDBFile(t)
	cmd := NewRunCommand(&RootOptions{Format: "text"})

	stdout, _, err := execute(cmd, "--db", dbPath, pipelineFixture("invalid.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid pipeline")
	assert.Contains(t, stdout, "Error [E101]")
	assert.Contains(t, stdout, "table_name: is required")

	s := openPatientsDB(t, dbPath)
	assert.Len(t, testutil.QueryPatients(t, s), 3, "nothing runs when a job is misconfigured")
}

func TestRunUnknownDriver(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})

	stdout, _, err := execute(cmd, "--driver", "oracle", "--db", "x", pipelineFixture("sync.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E201]")
}

func TestRunJobFailure(t *testing.T) {
	dbPath := patientsDBFile(t)
	cmd := NewRunCommand(&RootOptions{Format: "text"})

	stdout, stderr, err := execute(cmd, "--db", dbPath, pipelineFixture("missing_table.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), `job "load_ghosts"`)
	assert.Contains(t, err.Error(), "no such table")
	assert.Contains(t, stdout, "Error [E202]")
	assert.Contains(t, stderr, "job failed")
}
