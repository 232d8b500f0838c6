package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Job is one executable step of a pipeline.
type Job interface {
	// Name is the unique name of the job within its pipeline.
	Name() string

	// Perform runs the job against the payload, reporting through out.
	Perform(ctx context.Context, out Output, payload *Payload) error
}

// JobOptions are the options every job type accepts. Option structs embed
// it inline.
type JobOptions struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Register string `yaml:"register,omitempty"`
}

// RegisterOrDefault returns Register, defaulting to DefaultRegister.
func (o JobOptions) RegisterOrDefault() string {
	if o.Register == "" {
		return DefaultRegister
	}
	return o.Register
}

// Definition is the raw option map of one job as declared in a pipeline.
type Definition map[string]any

// Name returns the "name" option.
func (d Definition) Name() string {
	s, _ := d["name"].(string)
	return s
}

// Type returns the "type" option.
func (d Definition) Type() string {
	s, _ := d["type"].(string)
	return s
}

// Decode decodes the definition into a typed option struct. Unknown
// options are rejected.
func (d Definition) Decode(target any) error {
	data, err := yaml.Marshal(map[string]any(d))
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	return nil
}
