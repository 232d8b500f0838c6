package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dbfuel/internal/pipeline"
)

// Scenario defines a pipeline run and what it must leave behind.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// SQLFiles lists SQL scripts run before Setup, in order.
	// Paths are relative to the scenario file location.
	SQLFiles []string `yaml:"sql_files,omitempty"`

	// Setup contains inline SQL scripts run before the pipeline.
	Setup []string `yaml:"setup,omitempty"`

	// Now is the RFC 3339 invocation time of the run. Defaults to
	// testutil.FixedNow.
	Now string `yaml:"now,omitempty"`

	// RunID is the fixed run id. Defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Registers seeds the payload before the first job runs.
	Registers map[string]any `yaml:"registers,omitempty"`

	// Pipeline is the pipeline under test.
	Pipeline pipeline.Config `yaml:"pipeline"`

	// Expect describes an expected run failure. Nil expects success.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the captured output and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// ExpectClause specifies expected run failure.
type ExpectClause struct {
	// Error is a substring of the expected pipeline error.
	Error string `yaml:"error"`
}

// Assertion validates output, registers or final table state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "output_contains": Check some output line contains Line
	// - "output_order": Check Lines appear on output lines in order
	// - "register_count": Check Register holds Count rows
	// - "row_count": Check Table holds Count rows matching Where
	// - "final_state": Query Table and verify expected values
	Type string `yaml:"type"`

	// Line is the expected output text (used by output_contains).
	Line string `yaml:"line,omitempty"`

	// Lines are the expected output texts, in order (used by output_order).
	Lines []string `yaml:"lines,omitempty"`

	// Register is the payload register (used by register_count).
	Register string `yaml:"register,omitempty"`

	// Table is the table name (used by row_count and final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by row_count and final_state).
	// All fields must match exactly.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of rows (used by register_count and
	// row_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertOutputContains = "output_contains"
	AssertOutputOrder    = "output_order"
	AssertRegisterCount  = "register_count"
	AssertRowCount       = "row_count"
	AssertFinalState     = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// SQL file paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML, resolving SQL file paths relative to
// basePath.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve paths BEFORE validation so existence checks see real files
	for i, sqlPath := range scenario.SQLFiles {
		if !filepath.IsAbs(sqlPath) && basePath != "" {
			scenario.SQLFiles[i] = filepath.Join(basePath, sqlPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Pipeline.Jobs) == 0 {
		return fmt.Errorf("pipeline.jobs is required and must be non-empty")
	}

	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required unless expect is given")
	}

	if s.Expect != nil && s.Expect.Error == "" {
		return fmt.Errorf("expect: error is required")
	}

	if s.Now != "" {
		if _, err := time.Parse(time.RFC3339, s.Now); err != nil {
			return fmt.Errorf("now: %w", err)
		}
	}

	for _, sqlPath := range s.SQLFiles {
		if _, err := os.Stat(sqlPath); os.IsNotExist(err) {
			return fmt.Errorf("sql file not found: %s", sqlPath)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutputContains:
		if a.Line == "" {
			return fmt.Errorf("assertions[%d]: line is required for output_contains", index)
		}
	case AssertOutputOrder:
		if len(a.Lines) == 0 {
			return fmt.Errorf("assertions[%d]: lines list is required for output_order", index)
		}
	case AssertRegisterCount:
		if a.Register == "" {
			return fmt.Errorf("assertions[%d]: register is required for register_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for register_count", index)
		}
	case AssertRowCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for row_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
