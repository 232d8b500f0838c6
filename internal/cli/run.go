package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dbfuel/internal/jobs"
	"github.com/roach88/dbfuel/internal/pipeline"
	"github.com/roach88/dbfuel/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Driver   string

	// IDGenerator allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator pipeline.IDGenerator

	// Now supplies the invocation time of each run (for testing).
	// If nil, defaults to time.Now.
	Now func() time.Time
}

// RunSummary is the JSON payload of a finished run.
type RunSummary struct {
	RunID     string   `json:"run_id"`
	JobsRun   int      `json:"jobs_run"`
	Registers []string `json:"registers"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <pipeline>",
		Short: "Run a pipeline once against a database",
		Long: `Run every step of a pipeline file against a database.

The pipeline is read from a YAML (.yaml, .yml) or CUE (.cue) file. Jobs run
in the order given by its steps list, sharing one payload of registers.
Each job prints a title line followed by its detail lines.

Example:
  dbfuel run --db ./app.db ./sync.yaml
  dbfuel run --driver postgres --db "postgres://localhost/app?sslmode=disable" ./sync.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args[0], cmd)
		},
	}

	addDatabaseFlags(cmd, &opts.Database, &opts.Driver)
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// addDatabaseFlags registers --db and --driver on cmd.
func addDatabaseFlags(cmd *cobra.Command, database, driver *string) {
	cmd.Flags().StringVar(database, "db", "", "database DSN (a file path for sqlite3)")
	cmd.Flags().StringVar(driver, "driver", "sqlite3", "database/sql driver (sqlite3|postgres|pgx|mysql)")
}

func runPipeline(opts *RunOptions, path string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose, cmd.ErrOrStderr())
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	p, st, err := openPipeline(formatter, opts, path)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx, stop := signalContext(cmd)
	defer stop()

	out := pipelineOutput(formatter)
	payload := pipeline.NewPayload(opts.now())

	result, err := p.Execute(ctx, out, payload)
	if err != nil {
		_ = formatter.Error(ErrCodeJobFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "pipeline failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(RunSummary{
			RunID:     result.RunID,
			JobsRun:   result.JobsRun,
			Registers: payload.Registers(),
		})
	}
	formatter.Check("Pipeline finished: %d job(s) run", result.JobsRun)
	return nil
}

// openPipeline loads the pipeline file, connects to the database and builds
// every job. Problems are reported through formatter and returned as
// *ExitError.
func openPipeline(formatter *OutputFormatter, opts *RunOptions, path string) (*pipeline.Pipeline, *store.Store, error) {
	slog.Info("loading pipeline", "path", path)
	loaded, err := LoadPipeline(path)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return nil, nil, WrapExitError(ExitCommandError, "failed to load pipeline", err)
	}
	formatter.VerboseLog("Loaded %d job(s) from %s (%s)", len(loaded.Config.Jobs), path, loaded.Format)

	slog.Info("opening database", "driver", opts.Driver)
	st, err := store.Open(opts.Driver, opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	env := pipeline.Env{DB: st, Dialect: st.Dialect()}
	p, err := pipeline.New(loaded.Config, jobs.NewRegistry(), env, pipeline.WithIDGenerator(opts.idGenerator()))
	if err != nil {
		closeStore(st)
		_ = formatter.Error(configErrorCode(err), err.Error(), nil)
		return nil, nil, WrapExitError(ExitCommandError, "invalid pipeline", err)
	}
	slog.Info("pipeline ready", "steps", len(p.Steps()))

	return p, st, nil
}

// configErrorCode maps err to a pipeline construction code.
func configErrorCode(err error) string {
	var ce *pipeline.ConfigError
	if errors.As(err, &ce) {
		return MapConfigErrorToCode(ce)
	}
	return ErrCodeGeneric
}

// pipelineOutput sends job detail lines to stdout in text mode and to the
// diagnostic writer in JSON mode.
func pipelineOutput(formatter *OutputFormatter) pipeline.Output {
	if formatter.Format == "json" {
		return pipeline.NewOutput(formatter.GetErrWriter())
	}
	return pipeline.NewOutput(formatter.Writer)
}

// configureLogging installs the process-wide slog handler.
func configureLogging(verbose bool, w io.Writer) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// signalContext derives a context from the command's that is cancelled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

func (o *RunOptions) idGenerator() pipeline.IDGenerator {
	if o.IDGenerator != nil {
		return o.IDGenerator
	}
	return pipeline.UUIDv7Generator{}
}

func (o *RunOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
