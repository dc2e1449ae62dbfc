package harness

import (
	"github.com/roach88/chrona/internal/simtime"
	"github.com/roach88/chrona/internal/trace"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every event the scheduler emitted, in order.
	Trace []trace.Event `json:"-"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// FinalTime is the scheduler clock when the run stopped.
	FinalTime simtime.Time `json:"final_time"`

	// FinalState is the formatted machine state (reactive only).
	FinalState string `json:"final_state,omitempty"`

	// Actors lists the registered keys at the end (entity only).
	Actors []string `json:"actors,omitempty"`

	// Digest is the chained hash of Trace.
	Digest string `json:"digest"`

	// Steps is the number of steps taken.
	Steps int `json:"steps"`

	// Truncated is set when the run stopped at max_steps with work pending.
	Truncated bool `json:"truncated,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []trace.Event{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
