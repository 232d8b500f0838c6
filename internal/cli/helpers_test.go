package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dbfuel/internal/store"
	"github.com/roach88/dbfuel/internal/testutil"
)

// pipelineFixture returns the path of a file under testdata/pipelines.
func pipelineFixture(name string) string {
	return filepath.Join("testdata", "pipelines", name)
}

// patientsDBFile creates a seeded patients database file and returns its path.
func patientsDBFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patients.db")

	s, err := store.Open("sqlite3", path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.ExecScript(ctx, testutil.PatientsSchema))
	require.NoError(t, s.ExecScript(ctx, testutil.PatientsSeed))
	return path
}

// openPatientsDB reopens a database created by patientsDBFile.
func openPatientsDB(t *testing.T, path string) *store.Store {
	t.Helper()
	s, err := store.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// execute runs cmd with args and returns what it wrote to stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (stdout, stderr string, err error) {
	outBuf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}
