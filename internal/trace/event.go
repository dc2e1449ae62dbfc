package trace

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/chrona/internal/simtime"
)

// Kind classifies an event.
type Kind string

const (
	// KindSeed is emitted for every action seeded into a reactive machine.
	KindSeed Kind = "seed"

	// KindAdmit is emitted when an item enters the queue (Add, Insert,
	// re-admission after an activation, or an action produced by a trigger).
	KindAdmit Kind = "admit"

	// KindActivate is emitted when an actor's activation begins.
	KindActivate Kind = "activate"

	// KindRetire is emitted when an actor declines re-admission.
	KindRetire Kind = "retire"

	// KindSpawn is emitted when an actor inserts another actor through its handle.
	KindSpawn Kind = "spawn"

	// KindRemove is emitted when an actor removes another actor through its handle.
	KindRemove Kind = "remove"

	// KindApply is emitted when a delayed action is applied to the shared state.
	KindApply Kind = "apply"
)

var kinds = []Kind{KindSeed, KindAdmit, KindActivate, KindRetire, KindSpawn, KindRemove, KindApply}

// Kinds returns every known kind in a stable order.
func Kinds() []Kind {
	return slices.Clone(kinds)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return slices.Contains(kinds, k)
}

// Event is one entry of a run's timeline.
type Event struct {
	Seq     uint64
	Time    simtime.Time
	Kind    Kind
	Subject string
	Detail  map[string]string
}

// String renders the event on one line, details sorted by key:
//
//	#3 t=50 activate a
//	#4 t=50 admit a due=100
func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d t=%s %s %s", e.Seq, e.Time.Canonical(), e.Kind, e.Subject)
	for _, k := range e.detailKeys() {
		fmt.Fprintf(&b, " %s=%s", k, e.Detail[k])
	}
	return b.String()
}

func (e Event) detailKeys() []string {
	keys := make([]string, 0, len(e.Detail))
	for k := range e.Detail {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Recorder collects events in emission order.
// It satisfies engine.Observer.
//
// Thread-safety: Recorder is NOT safe for concurrent use.
type Recorder struct {
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// OnEvent appends e.
func (r *Recorder) OnEvent(e Event) {
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	return slices.Clone(r.events)
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	return len(r.events)
}

// Reset discards all recorded events.
func (r *Recorder) Reset() {
	r.events = r.events[:0]
}

// Filter returns the events whose subject equals subject, in order.
func Filter(events []Event, subject string) []Event {
	var out []Event
	for _, e := range events {
		if e.Subject == subject {
			out = append(out, e)
		}
	}
	return out
}

// OfKind returns the events of the given kind, in order.
func OfKind(events []Event, kind Kind) []Event {
	var out []Event
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
