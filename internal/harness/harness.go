package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/roach88/dbfuel/internal/jobs"
	"github.com/roach88/dbfuel/internal/pipeline"
	"github.com/roach88/dbfuel/internal/store"
	"github.com/roach88/dbfuel/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs one scenario with a deterministic clock and run id.
type Harness struct {
	store *store.Store
	now   time.Time
	ids   pipeline.IDGenerator
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Run SQL files and inline setup scripts
// 3. Build the pipeline with every job type registered
// 4. Execute it against a payload seeded from the scenario registers
// 5. Check the expected failure, then evaluate assertions
//
// An error is returned only when the scenario cannot be run at all; a
// failing run or assertion is reported through Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	now := testutil.FixedNow
	if scenario.Now != "" {
		now, err = time.Parse(time.RFC3339, scenario.Now)
		if err != nil {
			return nil, fmt.Errorf("invalid now: %w", err)
		}
	}

	h := &Harness{
		store: st,
		now:   now,
		ids:   testutil.NewFixedRunIDGenerator(scenario.RunID),
	}

	if err := h.executeSetup(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	env := pipeline.Env{DB: st, Dialect: st.Dialect()}
	p, err := pipeline.New(scenario.Pipeline, jobs.NewRegistry(), env, pipeline.WithIDGenerator(h.ids))
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	payload := h.seedPayload(scenario.Registers)

	result := NewResult()
	var buf bytes.Buffer
	run, runErr := p.Execute(ctx, pipeline.NewOutput(&buf), payload)

	result.RunID = run.RunID
	result.JobsRun = run.JobsRun
	result.Output = splitLines(buf.String())
	result.Registers = payload.Registers()
	if runErr != nil {
		result.RunError = runErr.Error()
	}

	checkExpectation(result, scenario.Expect)

	actx := &AssertionContext{
		Ctx:     ctx,
		Store:   st,
		Payload: payload,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// RunFile loads the scenario at path and runs it.
func RunFile(ctx context.Context, path string) (*Scenario, *Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, nil, err
	}
	result, err := Run(ctx, scenario)
	if err != nil {
		return scenario, nil, err
	}
	return scenario, result, nil
}

// executeSetup runs the SQL files and then the inline scripts.
func (h *Harness) executeSetup(ctx context.Context, scenario *Scenario) error {
	for _, path := range scenario.SQLFiles {
		script, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := h.store.ExecScript(ctx, string(script)); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	for i, script := range scenario.Setup {
		if err := h.store.ExecScript(ctx, script); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	return nil
}

// seedPayload sets every scenario register, in name order.
func (h *Harness) seedPayload(registers map[string]any) *pipeline.Payload {
	payload := pipeline.NewPayload(h.now)

	names := make([]string, 0, len(registers))
	for name := range registers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		payload.Set(name, registers[name])
	}
	return payload
}

// checkExpectation compares the run outcome with the expected failure.
func checkExpectation(result *Result, expect *ExpectClause) {
	switch {
	case expect == nil && result.RunError != "":
		result.AddError(fmt.Sprintf("pipeline failed: %s", result.RunError))
	case expect != nil && result.RunError == "":
		result.AddError(fmt.Sprintf("expected error containing %q, but the run succeeded", expect.Error))
	case expect != nil && !strings.Contains(result.RunError, expect.Error):
		result.AddError(fmt.Sprintf("expected error containing %q, got %q", expect.Error, result.RunError))
	}
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}
