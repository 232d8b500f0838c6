// Package pipeline runs an ordered list of jobs against a shared payload.
//
// A pipeline is declared as a list of job definitions plus an optional list
// of steps naming which jobs run, in which order. Each definition carries a
// name, a registered type and the type's options. Job types are resolved
// through a Registry into Job values before anything executes, so every
// configuration error surfaces up front.
//
// ARCHITECTURE:
//
// Payload:
// Registers are named slots holding the data jobs read and write. Row sets
// are []map[string]any; Payload.Rows normalizes whatever a register holds
// into that shape and writes it back, so in-place row mutation (generated
// primary keys) is visible to later jobs.
//
// Output:
// Jobs report progress through Output.Detail. Detail lines are the
// caller-visible channel; operational logging goes through log/slog.
//
// Execution:
// Jobs run sequentially in a single goroutine. The first job error stops
// the run and is returned wrapped with the job name. Context cancellation
// is checked between jobs.
package pipeline
