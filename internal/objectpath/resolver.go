// Package objectpath reads and writes values in row maps using key paths.
//
// A key path is a string such as "name.first". When a Resolver is built with
// a non-empty separator the path is split into segments and each segment
// descends one level of nesting. With an empty separator every key is flat.
//
// Rows decoded from YAML or CUE may carry map[any]any levels. Lookups accept
// them, and Normalize converts them so every key observed by callers is a
// string.
package objectpath

import (
	"fmt"
	"sort"
	"strings"
)

// Resolver resolves key paths against nested maps.
//
// The zero value is a flat resolver (no path splitting).
type Resolver struct {
	separator string
}

// NewResolver creates a resolver splitting paths on separator.
// An empty separator disables splitting.
func NewResolver(separator string) Resolver {
	return Resolver{separator: separator}
}

// Separator returns the configured path separator.
func (r Resolver) Separator() string {
	return r.separator
}

// Get returns the value at path, or nil if any segment is missing or an
// intermediate value is not a map.
func (r Resolver) Get(obj any, path string) any {
	current := obj
	for _, segment := range r.split(path) {
		next, ok := lookup(current, segment)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

// Set writes value at path, creating intermediate maps as needed.
// A non-map intermediate value is replaced by a fresh map.
func (r Resolver) Set(obj map[string]any, path string, value any) {
	segments := r.split(path)
	current := obj

	for _, segment := range segments[:len(segments)-1] {
		var next map[string]any
		switch existing := current[segment].(type) {
		case map[string]any:
			next = existing
		case map[any]any:
			next = normalizeMap(existing)
		default:
			next = map[string]any{}
		}
		current[segment] = next
		current = next
	}

	current[segments[len(segments)-1]] = value
}

func (r Resolver) split(path string) []string {
	if r.separator == "" {
		return []string{path}
	}
	return strings.Split(path, r.separator)
}

// lookup fetches key from a single map level.
func lookup(obj any, key string) (any, bool) {
	switch m := obj.(type) {
	case map[string]any:
		v, ok := m[key]
		return v, ok
	case map[any]any:
		if v, ok := m[key]; ok {
			return v, true
		}
		for k, v := range m {
			if fmt.Sprint(k) == key {
				return v, true
			}
		}
		return nil, false
	default:
		return nil, false
	}
}

// Normalize recursively converts map[any]any values to map[string]any.
// Slices are rebuilt with normalized elements; scalars are returned as is.
func Normalize(v any) any {
	switch val := v.(type) {
	case map[any]any:
		return normalizeMap(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Normalize(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Normalize(elem)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Normalize(elem)
		}
		return out
	default:
		return v
	}
}

// AsRow returns v as a string-keyed map when it is any kind of map.
// Nested levels are normalized in place of the originals, so the returned
// map may be a copy when v was a map[any]any.
func AsRow(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		for k, elem := range val {
			if nested, ok := elem.(map[any]any); ok {
				val[k] = normalizeMap(nested)
			}
		}
		return val, true
	case map[any]any:
		return normalizeMap(val), true
	default:
		return nil, false
	}
}

func normalizeMap(m map[any]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[fmt.Sprint(k)] = Normalize(v)
	}
	return out
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
