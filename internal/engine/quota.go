package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts the steps of one run and enforces a maximum.
//
// The unbounded loops of both schedulers (RunUntilEmpty, Run) never
// terminate on their own when actors always re-admit. The quota turns such a
// run into a clean StepsExceededError instead of a hang.
//
// A limit of zero or less disables the quota.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{
		maxSteps: maxSteps,
		current:  0,
	}
}

// Check increments the step counter and validates against the limit.
//
// Returns StepsExceededError if the quota is exceeded. Call it before each
// step that is about to run.
func (q *QuotaEnforcer) Check(run string) error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{
			Run:   run,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Reset resets the step counter to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the maximum steps limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// Enabled reports whether the quota limits anything.
func (q *QuotaEnforcer) Enabled() bool {
	return q != nil && q.maxSteps > 0
}

// StepsExceededError is returned when a run exceeds the max steps quota.
//
// The scheduler itself is left intact: the step that would have exceeded the
// quota was never taken, so the caller may inspect or resume it.
type StepsExceededError struct {
	Run   string // Label of the run that exceeded the quota
	Steps int    // Number of steps attempted
	Limit int    // Maximum allowed steps
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("%s run exceeded max steps quota: %d steps > %d limit",
		e.Run, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
