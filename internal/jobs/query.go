package jobs

import (
	"context"
	"fmt"

	"github.com/roach88/dbfuel/internal/pipeline"
	"github.com/roach88/dbfuel/internal/queryir"
	"github.com/roach88/dbfuel/internal/querysql"
	"github.com/roach88/dbfuel/internal/store"
)

// QueryOptions configure a query job.
type QueryOptions struct {
	pipeline.JobOptions `yaml:",inline"`

	Model queryir.Model `yaml:"model"`
	Query queryir.Query `yaml:"query,omitempty"`
	Debug bool          `yaml:"debug,omitempty"`
}

// reader holds what query and range jobs share: a compiled-on-demand query
// and the register its results replace.
type reader struct {
	name     string
	register string
	model    queryir.Model
	query    queryir.Query
	debug    bool

	db       store.ExecQuerier
	compiler *querysql.SQLCompiler
}

func newReader(opts QueryOptions, env pipeline.Env) (reader, error) {
	if err := queryir.Validate(opts.Model, opts.Query).Err(); err != nil {
		return reader{}, pipeline.WrapConfigError(opts.Name, "query", err)
	}

	return reader{
		name:     opts.Name,
		register: opts.RegisterOrDefault(),
		model:    opts.Model,
		query:    opts.Query,
		debug:    opts.Debug,
		db:       env.DB,
		compiler: querysql.NewSQLCompiler(env.Dialect),
	}, nil
}

// Name implements pipeline.Job.
func (r *reader) Name() string {
	return r.name
}

// execute compiles q, runs it and replaces the register with the result
// rows in result order. label prefixes the debug SQL line.
func (r *reader) execute(ctx context.Context, out pipeline.Output, payload *pipeline.Payload, q queryir.Query, label string) error {
	if r.db == nil {
		return fmt.Errorf("no database configured")
	}

	sql, args, err := r.compiler.CompileQuery(r.model, q)
	if err != nil {
		return fmt.Errorf("compile query: %w", err)
	}

	if r.debug {
		out.Detail("%s SQL: %s", label, r.compiler.Dialect().Interpolate(sql, args))
	}

	records, err := store.QueryRows(ctx, r.db, sql, args...)
	if err != nil {
		return fmt.Errorf("query %s: %w", r.model.TableName(), err)
	}

	out.Detail("Loading %d record(s) into %s", len(records), r.register)
	payload.Set(r.register, records)
	return nil
}

// Query loads the result of a model query into a register.
type Query struct {
	reader
}

// NewQuery validates the model and query up front.
func NewQuery(opts QueryOptions, env pipeline.Env) (*Query, error) {
	r, err := newReader(opts, env)
	if err != nil {
		return nil, err
	}
	return &Query{reader: r}, nil
}

// Perform implements pipeline.Job.
func (q *Query) Perform(ctx context.Context, out pipeline.Output, payload *pipeline.Payload) error {
	return q.execute(ctx, out, payload, q.query, "Query")
}
