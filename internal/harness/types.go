package harness

import "github.com/roach88/nmlc/internal/engine"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expectations match.
	Pass bool `json:"pass"`

	// Status is the pipeline outcome.
	Status engine.Status `json:"-"`

	// Length is the final stream length.
	Length int `json:"length"`

	// Header reports whether a sprite-count header was injected.
	Header bool `json:"header"`

	// Kinds and Labels describe the emitted records in order.
	Kinds  []string `json:"kinds"`
	Labels []string `json:"labels"`

	// NFO is the committed NFO listing; empty unless the run succeeded.
	NFO []byte `json:"-"`

	// Trace lists pipeline events: resolve order, sink writes and releases.
	Trace []string `json:"trace"`

	// Err is the error the pipeline returned, if any.
	Err error `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Kinds:  []string{},
		Labels: []string{},
		Trace:  []string{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
