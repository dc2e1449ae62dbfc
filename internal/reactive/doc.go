// Package reactive implements the reactive state machine: one shared state
// transformed by one-shot delayed actions.
//
// A Trigger looks at a state and returns the actions it causes, each with a
// delay relative to the moment it fires. The machine keeps those actions in a
// time-ordered queue with absolute due times. Every Step pops the earliest
// action, moves the clock to its due time, applies it to the state and feeds
// the new state back through the Trigger.
//
// Seeding happens in New: Trigger(initial) is admitted relative to the start
// time. A machine whose triggers keep returning actions never drains; bound
// Run with a context or WithMaxSteps.
package reactive
