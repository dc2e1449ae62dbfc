package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/chrona/internal/entity"
	"github.com/roach88/chrona/internal/simtime"
)

// ScriptedActor is an entity.Actor driven by plain fields, for tests.
//
// It records the time of every activation, runs OnActivate (if set) and then
// applies the next entry of RateSteps as its new rate. It retires after
// Lifetime activations; a Lifetime of zero or less never retires.
type ScriptedActor struct {
	RateValue   float64
	Lifetime    int
	RateSteps   []float64
	OnActivate  func(h *entity.Handle)
	Activations []simtime.Time
}

// NewScriptedActor creates an actor with the given rate and lifetime.
func NewScriptedActor(rate float64, lifetime int) *ScriptedActor {
	return &ScriptedActor{RateValue: rate, Lifetime: lifetime}
}

// Rate implements entity.Actor.
func (a *ScriptedActor) Rate() float64 {
	return a.RateValue
}

// Activate implements entity.Actor.
func (a *ScriptedActor) Activate(h *entity.Handle) bool {
	a.Activations = append(a.Activations, h.Now())
	if a.OnActivate != nil {
		a.OnActivate(h)
	}
	if len(a.RateSteps) > 0 {
		a.RateValue = a.RateSteps[0]
		a.RateSteps = a.RateSteps[1:]
	}
	return a.Lifetime <= 0 || len(a.Activations) < a.Lifetime
}

// Count returns how many times the actor has been activated.
func (a *ScriptedActor) Count() int {
	return len(a.Activations)
}

// StepN calls s.Step n times and returns the activations. It fails the test
// on a step error or when the queue runs dry early.
func StepN(t *testing.T, s *entity.Scheduler, n int) []entity.Activation {
	t.Helper()
	out := make([]entity.Activation, 0, n)
	for i := 0; i < n; i++ {
		act, ok, err := s.Step()
		require.NoError(t, err, "step %d", i+1)
		require.True(t, ok, "queue empty at step %d", i+1)
		out = append(out, act)
	}
	return out
}
