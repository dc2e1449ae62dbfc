package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/chrona/internal/simtime"
	"github.com/roach88/chrona/internal/trace"
)

// timeTolerance absorbs rounding when comparing final_time against decimal
// literals written in YAML.
const timeTolerance simtime.Time = 1e-9

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []trace.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", event)
		}
	}

	return buf.String()
}

// label renders an event the way trace_order names it.
func label(e trace.Event) string {
	return string(e.Kind) + " " + e.Subject
}

func selects(e trace.Event, a Assertion) bool {
	return string(e.Kind) == a.Kind && (a.Subject == "" || e.Subject == a.Subject)
}

// assertTraceContains checks for an event of the given kind and subject whose
// details include every entry of a.Detail.
func assertTraceContains(events []trace.Event, a Assertion) error {
	for _, e := range events {
		if !selects(e, a) {
			continue
		}
		if matchDetail(e.Detail, a.Detail) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s %s with detail %v", a.Kind, a.Subject, a.Detail),
		Actual:   "not found in trace",
		Trace:    events,
	}
}

func matchDetail(actual, expected map[string]string) bool {
	for k, v := range expected {
		if actual[k] != v {
			return false
		}
	}
	return true
}

// assertTraceOrder checks that the listed events occur in order. Intervening
// events are allowed and each entry is matched after the previous match, so
// repeated labels ("activate a", "activate a") need distinct occurrences.
func assertTraceOrder(events []trace.Event, a Assertion) error {
	pos := 0
	for i, want := range a.Events {
		found := -1
		for j := pos; j < len(events); j++ {
			if label(events[j]) == want {
				found = j
				break
			}
		}
		if found < 0 {
			actual := fmt.Sprintf("%q not found after position %d", want, pos)
			if i == 0 {
				actual = fmt.Sprintf("missing event: %q", want)
			}
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual:   actual,
				Trace:    events,
			}
		}
		pos = found + 1
	}
	return nil
}

// assertTraceCount checks that exactly Count events match kind and subject.
func assertTraceCount(events []trace.Event, a Assertion) error {
	count := 0
	for _, e := range events {
		if selects(e, a) {
			count++
		}
	}
	if count != a.Count {
		what := a.Kind
		if a.Subject != "" {
			what += " " + a.Subject
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    events,
		}
	}
	return nil
}

func assertFinalTime(r *Result, a Assertion) error {
	want := simtime.Time(*a.Time)
	if !simtime.Within(r.FinalTime, want, timeTolerance) {
		return &AssertionError{
			Type:     AssertFinalTime,
			Expected: fmt.Sprintf("t=%s", want),
			Actual:   fmt.Sprintf("t=%s", r.FinalTime),
		}
	}
	return nil
}

func assertFinalState(r *Result, a Assertion) error {
	want := fmt.Sprint(*a.State)
	if r.FinalState != want {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("state %s", want),
			Actual:   fmt.Sprintf("state %s", r.FinalState),
		}
	}
	return nil
}

// assertFinalActors compares the registered keys as a set.
func assertFinalActors(r *Result, a Assertion) error {
	want := slices.Clone(a.Actors)
	slices.Sort(want)
	got := slices.Clone(r.Actors)
	slices.Sort(got)
	if !slices.Equal(want, got) {
		return &AssertionError{
			Type:     AssertFinalActors,
			Expected: fmt.Sprintf("actors %v", want),
			Actual:   fmt.Sprintf("actors %v", got),
		}
	}
	return nil
}

// EvaluateAssertions runs every assertion against the result and returns the
// failure messages. An empty slice means everything held.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalTime:
			err = assertFinalTime(result, assertion)
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertFinalActors:
			err = assertFinalActors(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
