package pipeline

import (
	"sort"
	"sync"

	"github.com/roach88/dbfuel/internal/dialect"
	"github.com/roach88/dbfuel/internal/store"
)

// Env carries the collaborators jobs are built with.
type Env struct {
	// DB executes statements. Nil for pipelines that never touch a database.
	DB store.ExecQuerier

	// Dialect is the SQL flavour of DB.
	Dialect dialect.Dialect
}

// Factory builds a job from its definition.
type Factory func(def Definition, env Env) (Job, error)

// Registry maps job type names to factories.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a registry holding the built-in job types.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	registerBuiltins(r)
	return r
}

// Register adds or replaces a job type.
func (r *Registry) Register(jobType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[jobType] = factory
}

// Build resolves the definition's type and constructs the job. Failures are
// returned as *ConfigError.
func (r *Registry) Build(def Definition, env Env) (Job, error) {
	name := def.Name()
	if name == "" {
		return nil, NewConfigError("", "name", "is required")
	}

	jobType := def.Type()
	r.mu.RLock()
	factory, ok := r.factories[jobType]
	r.mu.RUnlock()
	if !ok {
		return nil, NewConfigError(name, "type", "unknown job type %q", jobType)
	}

	job, err := factory(def, env)
	if err != nil {
		if IsConfigError(err) {
			return nil, err
		}
		return nil, &ConfigError{Job: name, Message: "invalid configuration", Err: err}
	}
	return job, nil
}

// Types returns the registered job type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
