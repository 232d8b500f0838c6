package harness

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when the run matched its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	RunID   string `json:"run_id"`
	JobsRun int    `json:"jobs_run"`

	// Output holds the captured title and detail lines, in order.
	Output []string `json:"output"`

	// Registers names every register set when the run ended.
	Registers []string `json:"registers"`

	// RunError is the pipeline error text, empty when the run succeeded.
	RunError string `json:"run_error,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Output:    []string{},
		Registers: []string{},
		Errors:    []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
