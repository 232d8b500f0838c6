package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dbfuel/internal/dialect"
	"github.com/roach88/dbfuel/internal/jobs"
	"github.com/roach88/dbfuel/internal/pipeline"
)

// ValidationProblem is one configuration problem found in a pipeline.
type ValidationProblem struct {
	Code    string `json:"code"`
	Job     string `json:"job,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                `json:"valid"`
	Jobs   int                 `json:"jobs"`
	Steps  []string            `json:"steps,omitempty"`
	Errors []ValidationProblem `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var driver string

	cmd := &cobra.Command{
		Use:   "validate <pipeline>",
		Short: "Validate a pipeline without touching a database",
		Long: `Validate a pipeline file without connecting to a database.

Every job is constructed so option problems (missing table_name, unknown
transformer types, invalid queries and so on) are reported together. SQL is
generated for the dialect of --driver.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, driver, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "sqlite3", "database/sql driver whose dialect is used")

	return cmd
}

func runValidate(opts *RootOptions, driver, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	d, err := dialect.ForDriver(driver)
	if err != nil {
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), 0)
	}

	loaded, err := LoadPipeline(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			line := 0
			if loadErr.Pos.IsValid() {
				line = loadErr.Pos.Line()
			}
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, line)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), 0)
	}

	formatter.VerboseLog("Validating %d job(s) from %s", len(loaded.Config.Jobs), path)

	steps, problems := ValidatePipeline(loaded.Config, jobs.NewRegistry(), pipeline.Env{Dialect: d})
	result := ValidationResult{
		Valid:  len(problems) == 0,
		Jobs:   len(loaded.Config.Jobs),
		Steps:  steps,
		Errors: problems,
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidatePipeline constructs every job of cfg and then the pipeline itself.
// Job problems are collected across all jobs; step and name problems are
// only checked once every job builds.
func ValidatePipeline(cfg pipeline.Config, reg *pipeline.Registry, env pipeline.Env) ([]string, []ValidationProblem) {
	var problems []ValidationProblem
	for i, def := range cfg.Jobs {
		if _, err := reg.Build(def, env); err != nil {
			problems = append(problems, problemFor(err, fmt.Sprintf("jobs[%d]", i)))
		}
	}
	if len(problems) > 0 {
		return nil, problems
	}

	p, err := pipeline.New(cfg, reg, env)
	if err != nil {
		return nil, []ValidationProblem{problemFor(err, "pipeline")}
	}
	return p.Steps(), nil
}

// problemFor converts a construction error, falling back to where as the
// job when the error does not name one.
func problemFor(err error, where string) ValidationProblem {
	var ce *pipeline.ConfigError
	if !errors.As(err, &ce) {
		return ValidationProblem{Code: ErrCodeGeneric, Job: where, Message: err.Error()}
	}

	job := ce.Job
	if job == "" {
		job = where
	}
	return ValidationProblem{
		Code:    MapConfigErrorToCode(ce),
		Job:     job,
		Field:   ce.Field,
		Message: ce.Error(),
	}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	formatter.Check("Pipeline valid: %d job(s), steps: %s", result.Jobs, strings.Join(result.Steps, ", "))
	return nil
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string, line int) error {
	var details any
	if line > 0 {
		details = map[string]int{"line": line}
	}
	_ = formatter.Error(code, message, details)
	// Unreadable pipelines are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every configuration problem.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    result.Errors[0].Code,
				Message: result.Errors[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return failure
	}

	errorColor.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, p := range result.Errors {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", p.Code, p.Message)
	}

	return failure
}
