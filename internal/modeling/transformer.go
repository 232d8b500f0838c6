package modeling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/dbfuel/internal/objectpath"
)

// NowType is the transformer type producing the invocation timestamp.
const NowType = "r/value/now"

// Transformer is one step of an attribute's transformation chain.
//
// Type selects the registered step kind. Every other key of the declaration
// is collected into Options:
//
//	{type: r/value/static, value: Active}
type Transformer struct {
	Type    string         `yaml:"type" json:"type"`
	Options map[string]any `yaml:",inline" json:"-"`
}

// StepFunc computes a value from the prior value in the chain, the source
// row and the invocation timestamp. Steps never fail; option problems are
// reported when the step is built.
type StepFunc func(value any, row any, now time.Time) any

// StepFactory builds a step from transformer options.
type StepFactory func(options map[string]any, resolver objectpath.Resolver) (StepFunc, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]StepFactory{}
)

// RegisterTransformer adds or replaces the factory for a transformer type.
func RegisterTransformer(kind string, factory StepFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = factory
}

// TransformerTypes lists the registered transformer types in sorted order.
func TransformerTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// buildStep resolves a transformer declaration against the registry.
func buildStep(t Transformer, resolver objectpath.Resolver) (StepFunc, error) {
	registryMu.RLock()
	factory, ok := registry[t.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown transformer type %q", t.Type)
	}

	step, err := factory(t.Options, resolver)
	if err != nil {
		return nil, fmt.Errorf("transformer %q: %w", t.Type, err)
	}
	return step, nil
}

func init() {
	RegisterTransformer(NowType, func(map[string]any, objectpath.Resolver) (StepFunc, error) {
		return func(_ any, _ any, now time.Time) any { return now }, nil
	})

	RegisterTransformer("r/value/static", func(opts map[string]any, _ objectpath.Resolver) (StepFunc, error) {
		static := objectpath.Normalize(opts["value"])
		return func(any, any, time.Time) any { return static }, nil
	})

	RegisterTransformer("r/value/default", func(opts map[string]any, _ objectpath.Resolver) (StepFunc, error) {
		fallback := objectpath.Normalize(opts["value"])
		return func(value any, _ any, _ time.Time) any {
			if value == nil {
				return fallback
			}
			return value
		}, nil
	})

	RegisterTransformer("r/value/resolve", func(opts map[string]any, resolver objectpath.Resolver) (StepFunc, error) {
		key, _ := opts["key"].(string)
		if key == "" {
			return nil, fmt.Errorf("key option is required")
		}
		return func(_ any, row any, _ time.Time) any { return resolver.Get(row, key) }, nil
	})

	RegisterTransformer("r/value/blank_to_nil", func(map[string]any, objectpath.Resolver) (StepFunc, error) {
		return func(value any, _ any, _ time.Time) any {
			if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
				return nil
			}
			return value
		}, nil
	})

	RegisterTransformer("r/format/string", func(map[string]any, objectpath.Resolver) (StepFunc, error) {
		return func(value any, _ any, _ time.Time) any {
			if value == nil {
				return nil
			}
			return fmt.Sprint(value)
		}, nil
	})

	RegisterTransformer("r/format/upcase", stringStep(strings.ToUpper))
	RegisterTransformer("r/format/downcase", stringStep(strings.ToLower))
	RegisterTransformer("r/format/trim", stringStep(strings.TrimSpace))

	RegisterTransformer("r/format/titleize", func(map[string]any, objectpath.Resolver) (StepFunc, error) {
		return func(value any, _ any, _ time.Time) any {
			s, ok := value.(string)
			if !ok {
				return value
			}
			// Casers carry state between calls.
			return cases.Title(language.Und).String(s)
		}, nil
	})
}

// stringStep lifts a string function into a step; non-strings pass through.
func stringStep(fn func(string) string) StepFactory {
	return func(map[string]any, objectpath.Resolver) (StepFunc, error) {
		return func(value any, _ any, _ time.Time) any {
			s, ok := value.(string)
			if !ok {
				return value
			}
			return fn(s)
		}, nil
	}
}
