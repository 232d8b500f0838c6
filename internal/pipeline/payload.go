package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/roach88/dbfuel/internal/objectpath"
)

// DefaultRegister is the register jobs use when none is configured.
const DefaultRegister = "default"

// Payload is the mutable state shared by the jobs of one pipeline run.
//
// Payload is not safe for concurrent use; a run owns it exclusively.
type Payload struct {
	registers map[string]any

	// Time is the instant of the run. Timestamp transformers read it so
	// every row of a run shares one value.
	Time time.Time
}

// NewPayload creates an empty payload for a run at now.
func NewPayload(now time.Time) *Payload {
	return &Payload{
		registers: make(map[string]any),
		Time:      now,
	}
}

// Get returns the value of a register, or nil when it is unset.
func (p *Payload) Get(register string) any {
	return p.registers[register]
}

// Set replaces the value of a register. Maps with non-string keys are
// normalized so every observable key is a string.
func (p *Payload) Set(register string, value any) {
	p.registers[register] = objectpath.Normalize(value)
}

// Rows returns the register as a row set.
//
// nil becomes an empty set and a single object becomes a one-row set. The
// normalized slice is stored back, so mutating the returned rows mutates the
// register. Any non-object element is an error.
func (p *Payload) Rows(register string) ([]map[string]any, error) {
	switch val := p.registers[register].(type) {
	case nil:
		rows := []map[string]any{}
		p.registers[register] = rows
		return rows, nil
	case []map[string]any:
		return val, nil
	case map[string]any:
		rows := []map[string]any{val}
		p.registers[register] = rows
		return rows, nil
	case []any:
		rows := make([]map[string]any, len(val))
		for i, elem := range val {
			row, ok := objectpath.AsRow(elem)
			if !ok {
				return nil, fmt.Errorf("register %q: element %d is %T, not an object", register, i, elem)
			}
			rows[i] = row
		}
		p.registers[register] = rows
		return rows, nil
	default:
		if row, ok := objectpath.AsRow(val); ok {
			rows := []map[string]any{row}
			p.registers[register] = rows
			return rows, nil
		}
		return nil, fmt.Errorf("register %q holds %T, not a list of objects", register, val)
	}
}

// Values returns the register as a list. nil becomes an empty list and a
// scalar becomes a one-element list.
func (p *Payload) Values(register string) []any {
	switch val := p.registers[register].(type) {
	case nil:
		return []any{}
	case []any:
		return val
	case []map[string]any:
		out := make([]any, len(val))
		for i, row := range val {
			out[i] = row
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	default:
		return []any{val}
	}
}

// Registers returns the names of all set registers, sorted.
func (p *Payload) Registers() []string {
	names := make([]string, 0, len(p.registers))
	for name := range p.registers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
