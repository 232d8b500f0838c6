package queryir

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationResult lists the problems found in a model and query.
type ValidationResult struct {
	// Problems is empty when the query can be lowered.
	Problems []string
}

// IsValid reports whether no problems were found.
func (r ValidationResult) IsValid() bool {
	return len(r.Problems) == 0
}

// Err joins the problems into a single error, or returns nil.
func (r ValidationResult) Err() error {
	if r.IsValid() {
		return nil
	}
	return errors.New("invalid query: " + strings.Join(r.Problems, "; "))
}

var filterTypes = map[string]bool{
	FilterEquals:               true,
	FilterNotEquals:            true,
	FilterGreaterThan:          true,
	FilterGreaterThanOrEqualTo: true,
	FilterLessThan:             true,
	FilterLessThanOrEqualTo:    true,
	FilterContains:             true,
	FilterNotContain:           true,
	FilterStartsWith:           true,
	FilterNotStartWith:         true,
	FilterEndsWith:             true,
	FilterNotEndWith:           true,
}

// Validate checks a model and query before lowering.
//
// Validate is a pure function with no side effects.
func Validate(m Model, q Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateModel(m)
	v.validateQuery(q)
	return ValidationResult{Problems: v.problems}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateModel(m Model) {
	if m.TableName() == "" {
		v.addProblem("model name is required")
	}
	for i, p := range m.Partitioners {
		if p.Name == "" {
			v.addProblem("model partitioners[%d]: name is required", i)
		}
		v.validateValue(fmt.Sprintf("model partitioners[%d]", i), p.Value, false)
	}
}

func (v *validator) validateQuery(q Query) {
	for i, f := range q.Fields {
		v.validateKeyPath(fmt.Sprintf("fields[%d]", i), f.KeyPath)
	}

	for i, f := range q.Filters {
		where := fmt.Sprintf("filters[%d]", i)
		if !filterTypes[f.Type] {
			v.addProblem("%s: unknown filter type %q", where, f.Type)
		}
		v.validateKeyPath(where, f.KeyPath)
		v.validateValue(where, f.Value, true)
	}

	for i, s := range q.Sorters {
		where := fmt.Sprintf("sorters[%d]", i)
		v.validateKeyPath(where, s.KeyPath)
		switch strings.ToLower(s.Direction) {
		case "", Ascend, "asc", Descend, "desc":
		default:
			v.addProblem("%s: unknown direction %q", where, s.Direction)
		}
	}

	if q.Limit < 0 {
		v.addProblem("limit must not be negative")
	}
}

func (v *validator) validateKeyPath(where, keyPath string) {
	if keyPath == "" {
		v.addProblem("%s: key_path is required", where)
		return
	}
	if strings.Contains(keyPath, ".") {
		v.addProblem("%s: key_path %q traverses an association, which is not supported", where, keyPath)
	}
}

func (v *validator) validateValue(where string, value any, allowList bool) {
	switch val := value.(type) {
	case map[string]any, map[any]any:
		v.addProblem("%s: value must be a scalar or a list of scalars", where)
	case []any:
		if !allowList {
			v.addProblem("%s: value must be a scalar", where)
			return
		}
		for _, elem := range val {
			v.validateValue(where, elem, false)
		}
	}
}
