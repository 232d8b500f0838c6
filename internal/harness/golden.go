package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/dbfuel/internal/canonical"
)

// Snapshot captures the observable outcome of a scenario run.
type Snapshot struct {
	Scenario  string
	RunID     string
	JobsRun   int
	Output    []string
	Registers []string
	RunError  string
}

// NewSnapshot captures result for the named scenario.
func NewSnapshot(name string, result *Result) Snapshot {
	return Snapshot{
		Scenario:  name,
		RunID:     result.RunID,
		JobsRun:   result.JobsRun,
		Output:    result.Output,
		Registers: result.Registers,
		RunError:  result.RunError,
	}
}

// toCanonicalMap converts a Snapshot to a map for canonical JSON
// serialization, which only handles maps, slices and primitives.
func (s Snapshot) toCanonicalMap() map[string]any {
	output := make([]any, len(s.Output))
	for i, line := range s.Output {
		output[i] = line
	}
	registers := make([]any, len(s.Registers))
	for i, name := range s.Registers {
		registers[i] = name
	}

	m := map[string]any{
		"scenario":  s.Scenario,
		"run_id":    s.RunID,
		"jobs_run":  s.JobsRun,
		"output":    output,
		"registers": registers,
	}
	if s.RunError != "" {
		m["run_error"] = s.RunError
	}
	return m
}

// Marshal renders the snapshot as canonical JSON followed by a newline.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := canonical.Marshal(s.toCanonicalMap())
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario cannot be run. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the named golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(name, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
