package harness

// TraceEvent records what one flow step did.
type TraceEvent struct {
	// Step is the step name.
	Step string `json:"step"`

	// Session is the id of the engine that ran the step.
	Session string `json:"session"`

	// Restarted reports that the step reopened the engine from its cache.
	Restarted bool `json:"restarted,omitempty"`

	// Executed maps query kinds to how often each executed during the
	// step's checks. Kinds that did not execute are absent.
	Executed map[string]int64 `json:"executed"`

	// Checked lists the checked files, in check order.
	Checked []string `json:"checked"`

	// Bindings maps each checked file to its rendered bindings.
	Bindings map[string][]string `json:"bindings"`

	// Codes are the reported diagnostic codes, in report order.
	Codes []string `json:"codes,omitempty"`

	// Diagnostics are the brief renderings of the reported diagnostics,
	// one line per diagnostic or note.
	Diagnostics []string `json:"diagnostics,omitempty"`

	// Errors and Warnings count the reported diagnostics by severity.
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step to the trace.
func (r *Result) AddStep(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
