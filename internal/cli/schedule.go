package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/roach88/dbfuel/internal/pipeline"
)

// ScheduleOptions holds flags for the schedule command.
type ScheduleOptions struct {
	RunOptions
	Cron    string
	MaxRuns int
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScheduleOptions{RunOptions: RunOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "schedule <pipeline>",
		Short: "Run a pipeline on a cron schedule",
		Long: `Run a pipeline repeatedly on a cron schedule until interrupted.

The schedule uses standard five-field cron syntax or descriptors such as
@hourly and @every 30s. Each run starts from an empty payload. A run that
is still going when the next one is due causes that tick to be skipped.

Example:
  dbfuel schedule --cron "*/15 * * * *" --db ./app.db ./sync.yaml
  dbfuel schedule --cron "@every 1m" --max-runs 10 --db ./app.db ./sync.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(opts, args[0], cmd)
		},
	}

	addDatabaseFlags(cmd, &opts.Database, &opts.Driver)
	cmd.Flags().StringVar(&opts.Cron, "cron", "", "cron expression (required)")
	cmd.Flags().IntVar(&opts.MaxRuns, "max-runs", 0, "stop after this many runs (0 runs until interrupted)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("cron")

	return cmd
}

func runSchedule(opts *ScheduleOptions, path string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose, cmd.ErrOrStderr())
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.MaxRuns < 0 {
		_ = formatter.Error(ErrCodeSchedule, "--max-runs must not be negative", nil)
		return NewExitError(ExitCommandError, "invalid --max-runs")
	}

	schedule, err := cron.ParseStandard(opts.Cron)
	if err != nil {
		_ = formatter.Error(ErrCodeSchedule, fmt.Sprintf("invalid cron expression %q: %v", opts.Cron, err), nil)
		return WrapExitError(ExitCommandError, "invalid cron expression", err)
	}

	p, st, err := openPipeline(formatter, &opts.RunOptions, path)
	if err != nil {
		return err
	}
	defer closeStore(st)

	sigCtx, stop := signalContext(cmd)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	out := pipelineOutput(formatter)
	var runs, failures atomic.Int64

	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(schedule, cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}

		result, err := p.Execute(ctx, out, pipeline.NewPayload(opts.now()))
		if err != nil {
			failures.Add(1)
			slog.Error("scheduled run failed", "run_id", result.RunID, "error", err)
			_ = formatter.Error(ErrCodeJobFailed, err.Error(), nil)
		}

		if n := runs.Add(1); opts.MaxRuns > 0 && n >= int64(opts.MaxRuns) {
			cancel()
		}
	}))

	c.Start()
	slog.Info("scheduler started", "cron", opts.Cron, "next", schedule.Next(time.Now()))
	formatter.VerboseLog("Scheduler started (%s). Press Ctrl-C to stop.", opts.Cron)

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("scheduler stopped", "runs", runs.Load(), "failures", failures.Load())

	summary := ScheduleSummary{Runs: runs.Load(), Failures: failures.Load()}
	if summary.Failures > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scheduled run(s) failed", summary.Failures, summary.Runs))
	}
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}
	formatter.Check("Scheduler stopped after %d run(s)", summary.Runs)
	return nil
}

// ScheduleSummary is the JSON payload of a stopped scheduler.
type ScheduleSummary struct {
	Runs     int64 `json:"runs"`
	Failures int64 `json:"failures"`
}

// cronLogger routes scheduler logs through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
