package jobs

import (
	"context"
	"fmt"

	"github.com/roach88/dbfuel/internal/objectpath"
	"github.com/roach88/dbfuel/internal/pipeline"
	"github.com/roach88/dbfuel/internal/queryir"
)

// RangeOptions configure a range job.
type RangeOptions struct {
	QueryOptions `yaml:",inline"`

	Key       string `yaml:"key"`
	KeyPath   string `yaml:"key_path,omitempty"`
	Separator string `yaml:"separator,omitempty"`
}

// Range narrows a model query to the values found under Key in the
// register's current rows, then replaces the register with the results.
//
// When the register yields no values the base query runs unfiltered.
type Range struct {
	reader
	key      string
	keyPath  string
	resolver objectpath.Resolver
}

// NewRange validates the options. key is required; key_path defaults to key.
func NewRange(opts RangeOptions, env pipeline.Env) (*Range, error) {
	if opts.Key == "" {
		return nil, pipeline.NewConfigError(opts.Name, "key", "is required")
	}

	keyPath := opts.KeyPath
	if keyPath == "" {
		keyPath = opts.Key
	}

	probe := opts.Query.WithFilters(queryir.Filter{Type: queryir.FilterEquals, KeyPath: keyPath})
	if err := queryir.Validate(opts.Model, probe).Err(); err != nil {
		return nil, pipeline.WrapConfigError(opts.Name, "key_path", err)
	}

	r, err := newReader(opts.QueryOptions, env)
	if err != nil {
		return nil, err
	}

	return &Range{
		reader:   r,
		key:      opts.Key,
		keyPath:  keyPath,
		resolver: objectpath.NewResolver(opts.Separator),
	}, nil
}

// Perform implements pipeline.Job.
func (r *Range) Perform(ctx context.Context, out pipeline.Output, payload *pipeline.Payload) error {
	return r.execute(ctx, out, payload, r.rangeQuery(payload), "Range")
}

// rangeQuery appends the membership filter built from the register, if any.
func (r *Range) rangeQuery(payload *pipeline.Payload) queryir.Query {
	values := r.values(payload)
	if len(values) == 0 {
		return r.query
	}
	return r.query.WithFilters(queryir.Filter{
		Type:    queryir.FilterEquals,
		KeyPath: r.keyPath,
		Value:   values,
	})
}

// values collects the non-nil values under key, deduplicated in first-seen
// order. Values of different types never collapse into one.
func (r *Range) values(payload *pipeline.Payload) []any {
	seen := make(map[string]struct{})
	var values []any
	for _, row := range payload.Values(r.register) {
		v := r.resolver.Get(row, r.key)
		if v == nil {
			continue
		}
		id := fmt.Sprintf("%T:%v", v, v)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		values = append(values, v)
	}
	return values
}
