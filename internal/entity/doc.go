// Package entity implements the entity scheduler: many independent actors,
// each activated again and again at a time derived from its own rate.
//
// Each step pops the actor with the nearest due time, moves the clock there
// and calls Activate with a Handle onto the rest of the world. While it runs
// the actor is checked out of the registry: it cannot see, remove or replace
// itself, but it can look up, remove and insert other actors. When Activate
// returns true the actor is re-admitted at now + cooldown(Rate()); false
// retires it for good.
//
// Cooldown is Scale / (K·rate + 1), 100 / (0.01·rate + 1) by default: rate 0
// waits 100 time units, rate 100 waits 50, and faster actors come around
// more often.
//
// A Scheduler is single-threaded and non-reentrant. A panic escaping Activate
// is not recovered; it unwinds to the caller and leaves the scheduler
// poisoned, after which every call returns an ABORTED error.
package entity
