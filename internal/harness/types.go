package harness

// TraceEvent records the outcome of one step.
type TraceEvent struct {
	Step int    `json:"step"`
	Kind string `json:"kind"` // "query" or "update"

	Form      string              `json:"form,omitempty"`
	Variables []string            `json:"variables,omitempty"`
	Rows      []map[string]string `json:"rows,omitempty"`
	Boolean   *bool               `json:"boolean,omitempty"`
	Triples   []string            `json:"triples,omitempty"`
	Partial   bool                `json:"partial,omitempty"`

	Applied int `json:"applied,omitempty"`
	Skipped int `json:"skipped,omitempty"`

	// Error is the error code of a failed step.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []TraceEvent{}, Errors: []string{}}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
