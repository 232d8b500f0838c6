package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config is a pipeline declaration.
type Config struct {
	// Jobs are the job definitions, in declaration order.
	Jobs []Definition `yaml:"jobs" json:"jobs"`

	// Steps names the jobs to run, in order. Empty runs every job in
	// declaration order.
	Steps []string `yaml:"steps,omitempty" json:"steps,omitempty"`
}

type step struct {
	job     Job
	jobType string
}

// Pipeline is a validated, ready to run list of jobs.
type Pipeline struct {
	steps []step
	ids   IDGenerator
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithIDGenerator overrides the run id generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(p *Pipeline) {
		p.ids = gen
	}
}

// Result summarizes a run.
type Result struct {
	RunID   string
	JobsRun int
}

// New builds every job of cfg through reg. Job names must be unique and
// every step must name a declared job. The first problem is returned as a
// *ConfigError.
func New(cfg Config, reg *Registry, env Env, opts ...Option) (*Pipeline, error) {
	if len(cfg.Jobs) == 0 {
		return nil, NewConfigError("", "jobs", "at least one job is required")
	}

	byName := make(map[string]step, len(cfg.Jobs))
	order := make([]string, 0, len(cfg.Jobs))
	for i, def := range cfg.Jobs {
		job, err := reg.Build(def, env)
		if err != nil {
			return nil, fmt.Errorf("jobs[%d]: %w", i, err)
		}
		if _, dup := byName[job.Name()]; dup {
			return nil, NewConfigError(job.Name(), "name", "is declared more than once")
		}
		byName[job.Name()] = step{job: job, jobType: def.Type()}
		order = append(order, job.Name())
	}

	if len(cfg.Steps) > 0 {
		order = cfg.Steps
	}

	p := &Pipeline{ids: UUIDv7Generator{}}
	for _, name := range order {
		st, ok := byName[name]
		if !ok {
			return nil, NewConfigError("", "steps", "unknown job %q", name)
		}
		p.steps = append(p.steps, st)
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Steps returns the names of the jobs that run, in order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, st := range p.steps {
		names[i] = st.job.Name()
	}
	return names
}

// Execute runs every step against payload. The first job error stops the
// run and is returned wrapped with the job name.
func (p *Pipeline) Execute(ctx context.Context, out Output, payload *Payload) (Result, error) {
	result := Result{RunID: p.ids.Generate()}
	start := time.Now()

	slog.Info("pipeline starting", "run_id", result.RunID, "jobs", len(p.steps))

	for i, st := range p.steps {
		name := st.job.Name()
		if err := ctx.Err(); err != nil {
			slog.Info("pipeline stopping: context cancelled", "run_id", result.RunID, "next_job", name)
			return result, fmt.Errorf("job %q: %w", name, err)
		}

		out.Title(i+1, st.jobType, name)
		slog.Debug("job starting", "run_id", result.RunID, "job", name, "type", st.jobType)

		jobStart := time.Now()
		if err := st.job.Perform(ctx, out, payload); err != nil {
			slog.Error("job failed", "run_id", result.RunID, "job", name, "error", err)
			return result, fmt.Errorf("job %q: %w", name, err)
		}
		result.JobsRun++

		slog.Debug("job finished", "run_id", result.RunID, "job", name, "duration", time.Since(jobStart))
	}

	slog.Info("pipeline finished",
		"run_id", result.RunID,
		"jobs_run", result.JobsRun,
		"duration", time.Since(start))

	return result, nil
}
