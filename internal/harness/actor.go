package harness

import (
	"github.com/roach88/chrona/internal/entity"
)

// scriptActor plays back an ActorSpec.
type scriptActor struct {
	spec  ActorSpec
	rate  float64
	steps []float64
	count int

	// fail receives the first error raised through the handle. Actors cannot
	// return errors, so the harness checks it after the run.
	fail *error
}

func newScriptActor(spec ActorSpec, fail *error) *scriptActor {
	return &scriptActor{
		spec:  spec,
		rate:  spec.Rate,
		steps: append([]float64(nil), spec.RateStep...),
		fail:  fail,
	}
}

func (a *scriptActor) Rate() float64 {
	return a.rate
}

func (a *scriptActor) Activate(h *entity.Handle) bool {
	a.count++

	for _, rm := range a.spec.Removes {
		if rm.At == a.count {
			h.Remove(entity.Key(rm.Key))
		}
	}
	for _, sp := range a.spec.Spawn {
		if sp.At != a.count {
			continue
		}
		key := entity.Key(sp.Key)
		if key == "" {
			key = h.NextFreshKey()
		}
		child := newScriptActor(ActorSpec{Key: string(key), Rate: sp.Rate, Lifetime: sp.Lifetime}, a.fail)
		if err := h.Insert(key, child); err != nil && *a.fail == nil {
			*a.fail = err
		}
	}

	if len(a.steps) > 0 {
		a.rate = a.steps[0]
		a.steps = a.steps[1:]
	}
	return a.spec.Lifetime <= 0 || a.count < a.spec.Lifetime
}
