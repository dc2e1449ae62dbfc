package engine

import (
	"context"
)

// Loop drives a scheduler's step function until the queue runs dry, a step
// limit is reached, the quota is exhausted or ctx is cancelled.
//
// The context is checked between steps only; a step that has started always
// runs to completion.
type Loop struct {
	// Name labels the run in quota errors ("entity", "reactive", or a scenario name).
	Name string

	// Pending returns the number of queued items.
	Pending func() int

	// Step performs exactly one step. Only called when Pending() > 0.
	Step func() error

	// Quota bounds the total number of steps; nil means unbounded.
	Quota *QuotaEnforcer
}

// Run steps at most limit times (limit < 0 means no limit) and returns the
// number of steps taken. It returns nil once the queue is empty or the limit
// is reached.
func (l Loop) Run(ctx context.Context, limit int) (int, error) {
	steps := 0
	for limit < 0 || steps < limit {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		if l.Pending() == 0 {
			return steps, nil
		}
		if l.Quota != nil {
			if err := l.Quota.Check(l.Name); err != nil {
				return steps, err
			}
		}
		if err := l.Step(); err != nil {
			return steps, err
		}
		steps++
	}
	return steps, nil
}
