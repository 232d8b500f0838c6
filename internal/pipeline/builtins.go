package pipeline

import (
	"context"

	"github.com/roach88/dbfuel/internal/canonical"
)

// Built-in job types.
const (
	StaticValueType = "b/value/static"
	PrintType       = "b/io/print"
)

func registerBuiltins(r *Registry) {
	r.Register(StaticValueType, newStaticValue)
	r.Register(PrintType, newPrint)
}

// StaticValue sets a register to a fixed value.
type StaticValue struct {
	name     string
	register string
	value    any
}

type staticValueOptions struct {
	JobOptions `yaml:",inline"`
	Value      any `yaml:"value"`
}

func newStaticValue(def Definition, _ Env) (Job, error) {
	var opts staticValueOptions
	if err := def.Decode(&opts); err != nil {
		return nil, WrapConfigError(def.Name(), "", err)
	}
	return &StaticValue{
		name:     opts.Name,
		register: opts.RegisterOrDefault(),
		value:    opts.Value,
	}, nil
}

// Name implements Job.
func (j *StaticValue) Name() string { return j.name }

// Perform implements Job.
func (j *StaticValue) Perform(_ context.Context, _ Output, payload *Payload) error {
	payload.Set(j.register, j.value)
	return nil
}

// Print writes a register as canonical JSON to the output.
type Print struct {
	name     string
	register string
}

func newPrint(def Definition, _ Env) (Job, error) {
	var opts JobOptions
	if err := def.Decode(&opts); err != nil {
		return nil, WrapConfigError(def.Name(), "", err)
	}
	return &Print{name: opts.Name, register: opts.RegisterOrDefault()}, nil
}

// Name implements Job.
func (j *Print) Name() string { return j.name }

// Perform implements Job.
func (j *Print) Perform(_ context.Context, out Output, payload *Payload) error {
	out.Detail("%s", canonical.String(payload.Get(j.register)))
	return nil
}
