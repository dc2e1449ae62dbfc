package reactive

import (
	"github.com/roach88/chrona/internal/simtime"
)

// Action is a one-shot transformation of the state, delayed relative to the
// moment the trigger that produced it ran.
type Action[S any] struct {
	// Name labels the action in traces. Empty names are traced as "action".
	Name string

	// Delay must be finite and non-negative.
	Delay simtime.Time

	// Apply returns the next state. A nil Apply leaves the state unchanged.
	Apply func(S) S
}

// Trigger returns the actions caused by entering state.
type Trigger[S any] func(state S) []Action[S]

// Transition describes one applied action.
type Transition[S any] struct {
	Name     string
	Time     simtime.Time
	Before   S
	After    S
	Admitted int // actions produced by the trigger for After
}

// After builds an action named name that runs apply after delay.
func After[S any](name string, delay simtime.Time, apply func(S) S) Action[S] {
	return Action[S]{Name: name, Delay: delay, Apply: apply}
}

func (a Action[S]) label() string {
	if a.Name == "" {
		return "action"
	}
	return a.Name
}

func (a Action[S]) run(state S) S {
	if a.Apply == nil {
		return state
	}
	return a.Apply(state)
}
