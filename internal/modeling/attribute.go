package modeling

import (
	"fmt"
	"time"

	"github.com/roach88/dbfuel/internal/objectpath"
)

// Column names written by the synthesized timestamp attributes.
const (
	CreatedAt = "created_at"
	UpdatedAt = "updated_at"
)

// Attribute maps a destination key to a value derived from a source row.
// An empty transformer chain reads Key verbatim from the row.
type Attribute struct {
	Key          string        `yaml:"key" json:"key"`
	Transformers []Transformer `yaml:"transformers,omitempty" json:"transformers,omitempty"`
}

// Renderer evaluates one attribute against rows.
type Renderer struct {
	key         string
	steps       []StepFunc
	resolver    objectpath.Resolver
	synthesized bool
}

// NewRenderer validates attr and resolves its transformer chain.
func NewRenderer(attr Attribute, resolver objectpath.Resolver) (Renderer, error) {
	if attr.Key == "" {
		return Renderer{}, fmt.Errorf("attribute key is required")
	}

	steps := make([]StepFunc, 0, len(attr.Transformers))
	for i, t := range attr.Transformers {
		step, err := buildStep(t, resolver)
		if err != nil {
			return Renderer{}, fmt.Errorf("attribute %q transformers[%d]: %w", attr.Key, i, err)
		}
		steps = append(steps, step)
	}

	return Renderer{key: attr.Key, steps: steps, resolver: resolver}, nil
}

// Key returns the destination key of the renderer.
func (r Renderer) Key() string {
	return r.key
}

// Synthesized reports whether the renderer is an injected timestamp.
func (r Renderer) Synthesized() bool {
	return r.synthesized
}

// Transform computes the attribute value for row at now.
//
// The chain is seeded with the row's value at Key (nil when absent). Each
// step receives the previous result.
func (r Renderer) Transform(row any, now time.Time) any {
	value := r.resolver.Get(row, r.key)
	for _, step := range r.steps {
		value = step(value, row, now)
	}
	return value
}

// timestampRenderer builds a synthesized renderer producing now under key.
func timestampRenderer(key string, resolver objectpath.Resolver) Renderer {
	now, _ := buildStep(Transformer{Type: NowType}, resolver)
	return Renderer{
		key:         key,
		steps:       []StepFunc{now},
		resolver:    resolver,
		synthesized: true,
	}
}
