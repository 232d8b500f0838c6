package pipeline

import (
	"fmt"
	"io"
	"sync"
)

// Output receives the caller-visible progress lines of a run.
type Output interface {
	// Title announces the job about to run.
	Title(index int, jobType, name string)

	// Detail writes one progress line for the current job.
	Detail(format string, args ...any)
}

// WriterOutput writes titles and details as plain text lines.
//
// Thread-safety: WriterOutput is safe for concurrent use via internal mutex.
type WriterOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewOutput creates an Output writing to w.
func NewOutput(w io.Writer) *WriterOutput {
	return &WriterOutput{w: w}
}

// Title writes "[index] type::name".
func (o *WriterOutput) Title(index int, jobType, name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.w, "[%d] %s::%s\n", index, jobType, name)
}

// Detail writes "  - message".
func (o *WriterOutput) Detail(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.w, "  - "+format+"\n", args...)
}

// Discard is an Output that drops everything.
var Discard Output = NewOutput(io.Discard)
