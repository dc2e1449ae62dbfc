package engine

import (
	"github.com/roach88/chrona/internal/trace"
)

// Observer receives every trace event a scheduler emits, synchronously and in
// order. Observers must not call back into the scheduler.
type Observer interface {
	OnEvent(e trace.Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e trace.Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e trace.Event) {
	f(e)
}

// Observers fans one event out to several observers, in slice order.
type Observers []Observer

// OnEvent forwards e to every observer.
func (o Observers) OnEvent(e trace.Event) {
	for _, obs := range o {
		obs.OnEvent(e)
	}
}

// Emitter stamps events with the clock and forwards them. Every event takes
// a sequence number, even when no observer is registered.
type Emitter struct {
	clock     *Clock
	observers Observers
}

// NewEmitter creates an emitter over clock.
func NewEmitter(clock *Clock, observers ...Observer) *Emitter {
	em := &Emitter{clock: clock}
	for _, o := range observers {
		em.Add(o)
	}
	return em
}

// Add registers another observer.
func (em *Emitter) Add(o Observer) {
	if o != nil {
		em.observers = append(em.observers, o)
	}
}

// Emit builds an event at the current clock time and delivers it.
// detail is a flat list of key/value pairs; an odd trailing key is dropped.
func (em *Emitter) Emit(kind trace.Kind, subject string, detail ...string) trace.Event {
	e := trace.Event{
		Seq:     em.clock.NextSeq(),
		Time:    em.clock.Now(),
		Kind:    kind,
		Subject: subject,
	}
	if len(detail) >= 2 {
		e.Detail = make(map[string]string, len(detail)/2)
		for i := 0; i+1 < len(detail); i += 2 {
			e.Detail[detail[i]] = detail[i+1]
		}
	}
	em.observers.OnEvent(e)
	return e
}
